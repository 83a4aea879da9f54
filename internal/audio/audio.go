// Package audio records the operator's microphone while a communication
// action is in progress and ships the result as a WAV clip.
//
// Controller owns the mute state and is driven only from the render loop.
// Recorder owns the capture goroutine, which shares nothing with the loop
// except an atomic recording flag and the clip it fills.
package audio

import (
	"errors"
	"sync"
	"time"
)

const (
	SampleRate  = 44100
	Channels    = 1
	BitDepth    = 16
	ChunkFrames = 1024

	DefaultAutoMute    = 10 * time.Second
	DefaultJoinTimeout = time.Second
)

var ErrCaptureJoinTimeout = errors.New("capture goroutine did not stop in time")
var ErrAlreadyRecording = errors.New("already recording")
var ErrNotRecording = errors.New("not recording")
var ErrStreamClosed = errors.New("stream closed")
var ErrNoDevice = errors.New("no capture device")

type MicState string

const (
	Muted   MicState = "muted"
	Unmuted MicState = "unmuted"
)

// Clip collects samples from one capture. Once sealed it rejects further
// appends, so a capture goroutine that outlives its join cannot mutate a
// clip that is already being encoded.
type Clip struct {
	Kind string

	mu      sync.Mutex
	samples []int16
	sealed  bool
}

func NewClip(kind string) *Clip {
	return &Clip{Kind: kind}
}

func (c *Clip) append(chunk []int16) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sealed {
		return false
	}
	c.samples = append(c.samples, chunk...)
	return true
}

func (c *Clip) seal() {
	c.mu.Lock()
	c.sealed = true
	c.mu.Unlock()
}

func (c *Clip) Samples() []int16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.samples
}

func (c *Clip) Empty() bool {
	return c == nil || len(c.Samples()) == 0
}

func (c *Clip) Duration() time.Duration {
	if c == nil {
		return 0
	}
	frames := len(c.Samples()) / Channels
	return time.Duration(frames) * time.Second / SampleRate
}
