// Package journal keeps an optional record of what happened during an
// experiment session: starts and resets, every published action and every
// audio clip. Writes are buffered and never block the render loop.
package journal

import (
	"context"
	"time"
)

type Kind string

const (
	KindSessionStarted Kind = "session_started"
	KindSessionReset   Kind = "session_reset"
	KindAction         Kind = "action"
	KindAudio          Kind = "audio"
)

type Entry struct {
	ID         uint      `gorm:"primaryKey"`
	CreatedAt  time.Time `gorm:"index"`
	AgentID    string    `gorm:"size:64;index"`
	Kind       Kind      `gorm:"size:32"`
	Detail     string    `gorm:"size:128"` // action name or message kind
	DurationMS int64     // audio clips only
}

func (Entry) TableName() string { return "client_journal" }

type Store interface {
	Save(ctx context.Context, entries []Entry) error
	Close() error
}

// Nop discards everything; used when no journal DSN is configured.
type Nop struct{}

func (Nop) Record(Entry) {}
