package audio

// Device opens capture streams in the fixed format: mono, 16-bit,
// SampleRate Hz.
type Device interface {
	Open() (Stream, error)
	Close() error
}

// Stream yields interleaved signed 16-bit samples. Read blocks until at
// least one sample is available and returns ErrStreamClosed after Close.
type Stream interface {
	Read(p []int16) (int, error)
	Close() error
}

// NopDevice stands in when no microphone is available; every Open fails
// so the controller still toggles mute state but publishes nothing.
type NopDevice struct{}

func (NopDevice) Open() (Stream, error) { return nil, ErrNoDevice }
func (NopDevice) Close() error          { return nil }
