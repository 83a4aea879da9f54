package audio

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Recorder struct {
	device      Device
	logger      *zap.Logger
	joinTimeout time.Duration

	recording atomic.Bool

	mu     sync.Mutex
	active *capture
}

type capture struct {
	clip *Clip
	done chan struct{}

	mu      sync.Mutex
	stream  Stream
	openErr error
	stopped bool
}

func NewRecorder(device Device, joinTimeout time.Duration, logger *zap.Logger) *Recorder {
	if joinTimeout <= 0 {
		joinTimeout = DefaultJoinTimeout
	}
	return &Recorder{device: device, logger: logger, joinTimeout: joinTimeout}
}

// Start begins filling a new clip tagged kind. The device is opened on the
// capture goroutine; an open failure surfaces from Stop.
func (r *Recorder) Start(kind string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		return ErrAlreadyRecording
	}

	c := &capture{clip: NewClip(kind), done: make(chan struct{})}
	r.active = c
	r.recording.Store(true)
	go r.run(c)

	r.logger.Debug("capture started", zap.String("message_kind", kind))
	return nil
}

func (r *Recorder) run(c *capture) {
	defer close(c.done)

	stream, err := r.device.Open()
	c.mu.Lock()
	switch {
	case err != nil:
		c.openErr = err
		c.mu.Unlock()
		r.logger.Warn("capture open failed", zap.String("message_kind", c.clip.Kind), zap.Error(err))
		return
	case c.stopped:
		// Stop gave up waiting while the device was opening.
		c.mu.Unlock()
		_ = stream.Close()
		return
	}
	c.stream = stream
	c.mu.Unlock()

	chunk := make([]int16, ChunkFrames*Channels)
	for r.recording.Load() {
		n, err := stream.Read(chunk)
		if n > 0 && !c.clip.append(chunk[:n]) {
			return
		}
		if err != nil {
			if !errors.Is(err, ErrStreamClosed) {
				r.logger.Warn("capture read failed", zap.Error(err))
			}
			return
		}
	}
}

// Stop ends the capture and returns its sealed clip. If the goroutine does
// not exit within the join timeout the clip is still returned, together
// with ErrCaptureJoinTimeout. A device that failed to open yields an empty
// clip and the open error.
func (r *Recorder) Stop() (*Clip, error) {
	r.mu.Lock()
	c := r.active
	r.active = nil
	r.mu.Unlock()
	if c == nil {
		return nil, ErrNotRecording
	}

	r.recording.Store(false)

	var err error
	timer := time.NewTimer(r.joinTimeout)
	select {
	case <-c.done:
		timer.Stop()
	case <-timer.C:
		err = ErrCaptureJoinTimeout
	}

	c.mu.Lock()
	c.stopped = true
	stream, openErr := c.stream, c.openErr
	c.mu.Unlock()
	err = multierr.Append(err, openErr)
	if stream != nil {
		err = multierr.Append(err, stream.Close())
	}
	c.clip.seal()

	r.logger.Debug("capture stopped",
		zap.String("message_kind", c.clip.Kind),
		zap.Duration("duration", c.clip.Duration()),
	)
	return c.clip, err
}

func (r *Recorder) Recording() bool {
	return r.recording.Load()
}
