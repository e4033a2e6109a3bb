package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const (
	chunkSizeBytes = 640 // 20ms @ 16kHz mono s16
)

// Device describes one Pulse input source.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Selection is the resolved capture source plus optional fallback warning context.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

// ListDevices returns available Pulse input sources with default/availability metadata.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("murmur"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}
	defaultID := defaultSource.ID()

	var sourceInfos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &sourceInfos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(sourceInfos))
	for _, source := range sourceInfos {
		if source == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          source.SourceName,
			Description: source.Device,
			State:       sourceStateString(source.State),
			Available:   sourceAvailable(source),
			Muted:       source.Mute,
			Default:     source.SourceName == defaultID,
		})
	}
	return devices, nil
}

// SelectDevice resolves the configured input preference against live devices.
func SelectDevice(ctx context.Context, input string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return selectDeviceFromList(devices, input)
}

// selectDeviceFromList applies selection policy to a pre-fetched device list:
// the configured input when usable, otherwise the default source with a
// warning.
func selectDeviceFromList(devices []Device, input string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, errors.New("no audio input devices found")
	}

	input = strings.TrimSpace(strings.ToLower(input))

	var (
		defaultDevice *Device
		byInput       *Device
	)
	for i := range devices {
		dev := &devices[i]
		if dev.Default {
			defaultDevice = dev
		}
		if byInput == nil && input != "" && input != "default" && deviceMatches(*dev, input) {
			byInput = dev
		}
	}

	chooseDefault := func() (*Device, error) {
		if defaultDevice == nil {
			return nil, errors.New("default audio source is unavailable")
		}
		return defaultDevice, nil
	}

	primary := byInput
	if input == "" || input == "default" {
		d, err := chooseDefault()
		if err != nil {
			return Selection{}, err
		}
		primary = d
	} else if primary == nil {
		return Selection{}, fmt.Errorf("capture input %q did not match any device", input)
	}

	if primary.Available && !primary.Muted {
		return Selection{Device: *primary}, nil
	}

	primaryReason := "unavailable"
	if primary.Muted {
		primaryReason = "muted"
	}

	fallbackDevice, err := chooseDefault()
	if err != nil {
		return Selection{}, fmt.Errorf("capture input %q is %s and no usable fallback: %w", primary.ID, primaryReason, err)
	}
	if fallbackDevice.ID == primary.ID {
		return Selection{}, fmt.Errorf("capture input %q is %s", primary.ID, primaryReason)
	}
	if !fallbackDevice.Available {
		return Selection{}, fmt.Errorf("fallback device %q is not available", fallbackDevice.ID)
	}
	if fallbackDevice.Muted {
		return Selection{}, fmt.Errorf("fallback device %q is muted", fallbackDevice.ID)
	}

	return Selection{
		Device:   *fallbackDevice,
		Warning:  fmt.Sprintf("capture input %q is %s; falling back to %q", primary.ID, primaryReason, fallbackDevice.ID),
		Fallback: true,
	}, nil
}

// deviceMatches reports whether a search term matches a device id or description.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	id := strings.ToLower(device.ID)
	desc := strings.ToLower(device.Description)
	return strings.Contains(id, term) || strings.Contains(desc, term)
}

// pulseStream streams fixed-size PCM chunks from one selected Pulse source.
type pulseStream struct {
	device Device

	client *pulse.Client
	stream *pulse.RecordStream

	chunks chan []byte
	stopCh chan struct{}

	mu      sync.Mutex
	pending []byte
	rawPCM  []byte
	stopped bool

	inflight sync.WaitGroup
	bytes    atomic.Int64
}

// startPulseStream creates and starts a 16kHz mono s16 record stream.
func startPulseStream(ctx context.Context, selected Device) (*pulseStream, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("murmur"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}

	source, err := client.SourceByID(selected.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", selected.ID, err)
	}

	stream := &pulseStream{
		device: selected,
		client: client,
		chunks: make(chan []byte, 128),
		stopCh: make(chan struct{}),
	}

	writer := pulse.NewWriter(writerFunc(stream.onPCM), pulseproto.FormatInt16LE)
	record, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(SampleRate),
		pulse.RecordBufferFragmentSize(chunkSizeBytes),
		pulse.RecordMediaName("murmur dictation"),
	)
	if err != nil {
		stream.close()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}

	stream.stream = record
	record.Start()

	go func() {
		<-ctx.Done()
		_ = stream.stop()
	}()

	return stream, nil
}

// Chunks returns the PCM stream as fixed-size byte slices.
func (s *pulseStream) Chunks() <-chan []byte {
	return s.chunks
}

// BytesCaptured reports total bytes accepted from Pulse.
func (s *pulseStream) BytesCaptured() int64 {
	return s.bytes.Load()
}

// RawPCM returns a snapshot of all captured raw PCM bytes.
func (s *pulseStream) RawPCM() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.rawPCM))
	copy(out, s.rawPCM)
	return out
}

// stop halts the stream, flushes residual PCM, and closes Chunks exactly once.
func (s *pulseStream) stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	close(s.stopCh)
	s.mu.Unlock()

	if s.stream != nil {
		s.stream.Stop()
		s.stream.Close()
	}
	if s.client != nil {
		s.client.Close()
	}

	s.inflight.Wait()

	s.mu.Lock()
	pending := append([]byte(nil), s.pending...)
	s.pending = nil
	s.mu.Unlock()

	if len(pending) > 0 {
		chunk := make([]byte, len(pending))
		copy(chunk, pending)
		select {
		case s.chunks <- chunk:
		default:
		}
	}

	close(s.chunks)
	return nil
}

// close is a convenience alias for stop.
func (s *pulseStream) close() {
	_ = s.stop()
}

// onPCM receives raw Pulse frames and emits chunkSizeBytes slices to s.chunks.
func (s *pulseStream) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	select {
	case <-s.stopCh:
		return 0, io.EOF
	default:
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return 0, io.EOF
	}
	// Guard Add under the same mutex as s.stopped to avoid Add/Wait races.
	s.inflight.Add(1)

	s.rawPCM = append(s.rawPCM, buffer...)
	s.pending = append(s.pending, buffer...)

	chunks := make([][]byte, 0, len(s.pending)/chunkSizeBytes)
	for len(s.pending) >= chunkSizeBytes {
		chunk := make([]byte, chunkSizeBytes)
		copy(chunk, s.pending[:chunkSizeBytes])
		s.pending = s.pending[chunkSizeBytes:]
		chunks = append(chunks, chunk)
	}
	s.mu.Unlock()
	defer s.inflight.Done()

	s.bytes.Add(int64(len(buffer)))

	for _, chunk := range chunks {
		select {
		case <-s.stopCh:
			return 0, io.EOF
		case s.chunks <- chunk:
		}
	}

	return len(buffer), nil
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}

// sourceStateString maps Pulse source state constants to human-readable values.
func sourceStateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// sourceAvailable maps Pulse source port availability to a simple boolean.
func sourceAvailable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	if len(source.Ports) == 0 {
		return true
	}
	for _, port := range source.Ports {
		if port.Name != source.ActivePortName {
			continue
		}
		// PulseAudio values: unknown=0, no=1, yes=2.
		return port.Available == 0 || port.Available == 2
	}
	return true
}

// Pulse is the capture surface backed by a PulseAudio record stream.
type Pulse struct {
	input  string
	events chan Event

	mu     sync.Mutex
	stream *pulseStream
}

// NewPulse constructs a Pulse surface for the configured input preference.
func NewPulse(input string) *Pulse {
	return &Pulse{
		input:  input,
		events: make(chan Event, 64),
	}
}

func (p *Pulse) Events() <-chan Event {
	return p.events
}

func (p *Pulse) Begin(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream != nil {
		return errors.New("capture already running")
	}

	selection, err := SelectDevice(ctx, p.input)
	if err != nil {
		return err
	}
	stream, err := startPulseStream(ctx, selection.Device)
	if err != nil {
		return err
	}
	p.stream = stream

	go p.drain(stream)
	p.emit(Started{Device: selection.Device.ID})
	return nil
}

// drain consumes the chunk stream and publishes amplitude samples until the
// stream closes.
func (p *Pulse) drain(stream *pulseStream) {
	for chunk := range stream.Chunks() {
		// Level samples are best-effort; drop them when the consumer lags.
		select {
		case p.events <- pcmLevel(chunk):
		default:
		}
	}
}

func (p *Pulse) End() error {
	stream, err := p.take()
	if err != nil {
		return err
	}
	_ = stream.stop()

	pcm := stream.RawPCM()
	if len(pcm) == 0 {
		p.emit(Error{Message: "no audio captured"})
		return nil
	}
	buf, err := EncodeWAV(pcm)
	if err != nil {
		p.emit(Error{Message: err.Error()})
		return nil
	}
	p.emit(AudioReady{WAV: buf, Duration: PCMDuration(pcm)})
	return nil
}

func (p *Pulse) Discard() error {
	stream, err := p.take()
	if err != nil {
		return err
	}
	return stream.stop()
}

func (p *Pulse) take() (*pulseStream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream == nil {
		return nil, errors.New("no capture in progress")
	}
	stream := p.stream
	p.stream = nil
	return stream, nil
}

func (p *Pulse) emit(event Event) {
	p.events <- event
}
