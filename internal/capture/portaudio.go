package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const portaudioFrames = 1024

// PortAudio is the capture surface backed by the default PortAudio input
// stream, for hosts without a PulseAudio server.
type PortAudio struct {
	events chan Event

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan []byte
}

// NewPortAudio constructs a PortAudio surface recording the default device.
func NewPortAudio() *PortAudio {
	return &PortAudio{
		events: make(chan Event, 64),
	}
}

func (p *PortAudio) Events() <-chan Event {
	return p.events
}

func (p *PortAudio) Begin(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != nil {
		return errors.New("capture already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan []byte, 1)
	p.cancel = cancel
	p.done = done

	go p.recordLoop(runCtx, done)
	return nil
}

// recordLoop reads fixed frame blocks from the default input until cancelled,
// then hands the accumulated PCM to done.
func (p *PortAudio) recordLoop(ctx context.Context, done chan<- []byte) {
	var pcm []byte
	defer func() { done <- pcm }()

	if err := portaudio.Initialize(); err != nil {
		p.events <- Error{Message: fmt.Sprintf("portaudio init failed: %v", err)}
		return
	}
	defer portaudio.Terminate()

	in := make([]int16, portaudioFrames)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(SampleRate), len(in), in)
	if err != nil {
		p.events <- Error{Message: fmt.Sprintf("open stream failed: %v", err)}
		return
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		p.events <- Error{Message: fmt.Sprintf("start stream failed: %v", err)}
		return
	}
	defer stream.Stop()

	p.events <- Started{Device: "default"}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := stream.Read(); err != nil {
			continue
		}
		block := make([]byte, len(in)*bytesPerSample)
		for i, v := range in {
			block[2*i] = byte(uint16(v))
			block[2*i+1] = byte(uint16(v) >> 8)
		}
		pcm = append(pcm, block...)

		select {
		case p.events <- pcmLevel(block):
		default:
		}
	}
}

func (p *PortAudio) End() error {
	pcm, err := p.finish()
	if err != nil {
		return err
	}
	if len(pcm) == 0 {
		p.events <- Error{Message: "no audio captured"}
		return nil
	}
	buf, err := EncodeWAV(pcm)
	if err != nil {
		p.events <- Error{Message: err.Error()}
		return nil
	}
	p.events <- AudioReady{WAV: buf, Duration: PCMDuration(pcm)}
	return nil
}

func (p *PortAudio) Discard() error {
	_, err := p.finish()
	return err
}

// finish stops the record loop and collects whatever it captured.
func (p *PortAudio) finish() ([]byte, error) {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if done == nil {
		return nil, errors.New("no capture in progress")
	}
	cancel()
	return <-done, nil
}
