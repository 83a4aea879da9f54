package client

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/DoyleJ11/commons-client/internal/queue"
	"github.com/DoyleJ11/commons-client/pkg/types"
)

// Ingestor is the transport handler for the data topic. It runs on the
// transport's delivery goroutine and only decodes and enqueues.
type Ingestor struct {
	queue   *queue.Inbound[types.Snapshot]
	limiter *rate.Limiter
	dropped atomic.Int64
	logger  *zap.Logger
}

func NewIngestor(q *queue.Inbound[types.Snapshot], logger *zap.Logger) *Ingestor {
	return &Ingestor{
		queue:   q,
		limiter: rate.NewLimiter(rate.Every(5*time.Second), 3),
		logger:  logger,
	}
}

func (i *Ingestor) Handle(payload []byte) {
	snap, err := types.DecodeSnapshot(payload)
	if err != nil {
		n := i.dropped.Add(1)
		if i.limiter.Allow() {
			i.logger.Warn("dropping malformed snapshot", zap.Error(err), zap.Int64("dropped_total", n))
		}
		return
	}
	i.queue.Push(snap)
}

// Dropped counts payloads rejected since start.
func (i *Ingestor) Dropped() int64 { return i.dropped.Load() }
