package journal

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBuffer     = 256
	defaultBatch      = 32
	defaultFlushEvery = 2 * time.Second
	shutdownFlush     = 3 * time.Second
)

// Writer batches entries into a Store from its own goroutine.
type Writer struct {
	store   Store
	in      chan Entry
	logger  *zap.Logger
	dropped atomic.Int64
	now     func() time.Time
}

func NewWriter(store Store, logger *zap.Logger) *Writer {
	return &Writer{
		store:  store,
		in:     make(chan Entry, defaultBuffer),
		logger: logger,
		now:    time.Now,
	}
}

// Record enqueues e without blocking. When the buffer is full the entry is
// dropped and counted.
func (w *Writer) Record(e Entry) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = w.now()
	}
	select {
	case w.in <- e:
	default:
		w.dropped.Add(1)
	}
}

func (w *Writer) Dropped() int64 { return w.dropped.Load() }

// RunAfter runs the writer until producerDone is closed, then drains and
// returns. Pass the producer's done channel so entries it records while
// shutting down are still saved.
func (w *Writer) RunAfter(producerDone <-chan struct{}) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-producerDone:
			cancel()
		case <-ctx.Done():
		}
	}()
	return w.Run(ctx)
}

// Run flushes every defaultBatch entries or defaultFlushEvery, whichever
// comes first. On ctx cancellation it drains what is buffered and returns.
func (w *Writer) Run(ctx context.Context) error {
	ticker := time.NewTicker(defaultFlushEvery)
	defer ticker.Stop()

	batch := make([]Entry, 0, defaultBatch)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := w.store.Save(ctx, batch); err != nil {
			w.logger.Warn("journal write failed", zap.Int("entries", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
		drain:
			for {
				select {
				case e := <-w.in:
					batch = append(batch, e)
				default:
					break drain
				}
			}
			flushCtx, cancel := context.WithTimeout(context.Background(), shutdownFlush)
			flush(flushCtx)
			cancel()
			if n := w.Dropped(); n > 0 {
				w.logger.Warn("journal entries dropped", zap.Int64("dropped", n))
			}
			return nil

		case e := <-w.in:
			batch = append(batch, e)
			if len(batch) >= defaultBatch {
				flush(ctx)
			}

		case <-ticker.C:
			flush(ctx)
		}
	}
}
