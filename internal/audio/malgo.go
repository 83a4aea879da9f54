package audio

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"
)

// MalgoDevice captures from the system default input through miniaudio.
type MalgoDevice struct {
	ctx    *malgo.AllocatedContext
	logger *zap.Logger
}

func NewMalgoDevice(logger *zap.Logger) (*MalgoDevice, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("miniaudio", zap.String("message", message))
	})
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	return &MalgoDevice{ctx: ctx, logger: logger}, nil
}

func (d *MalgoDevice) Open() (Stream, error) {
	s := &malgoStream{buf: make([]byte, 0, SampleRate*2)}
	s.cond = sync.NewCond(&s.mu)

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = Channels
	cfg.SampleRate = SampleRate
	cfg.PeriodSizeInFrames = ChunkFrames

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			s.mu.Lock()
			if !s.closed {
				s.buf = append(s.buf, input...)
			}
			s.mu.Unlock()
			s.cond.Signal()
		},
	}

	dev, err := malgo.InitDevice(d.ctx.Context, cfg, callbacks)
	if err != nil {
		return nil, fmt.Errorf("init capture device: %w", err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		return nil, fmt.Errorf("start capture device: %w", err)
	}
	s.device = dev
	return s, nil
}

func (d *MalgoDevice) Close() error {
	err := d.ctx.Uninit()
	d.ctx.Free()
	return err
}

type malgoStream struct {
	device *malgo.Device

	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	closed bool
}

func (s *malgoStream) Read(p []int16) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.buf) < 2 && !s.closed {
		s.cond.Wait()
	}
	if s.closed {
		return 0, ErrStreamClosed
	}

	n := min(len(p), len(s.buf)/2)
	for i := 0; i < n; i++ {
		p[i] = int16(binary.LittleEndian.Uint16(s.buf[2*i:]))
	}
	s.buf = s.buf[2*n:]
	return n, nil
}

func (s *malgoStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()

	err := s.device.Stop()
	s.device.Uninit()
	return err
}
