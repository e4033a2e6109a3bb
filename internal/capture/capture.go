// Package capture records microphone audio and delivers it as a single WAV
// buffer when the recording ends.
package capture

import (
	"context"
	"encoding/base64"
)

const (
	// SampleRate is the capture rate every backend records at. Whisper-family
	// models expect 16kHz mono s16.
	SampleRate     = 16000
	bytesPerSample = 2
)

// Event is one capture surface notification.
type Event interface{ captureEvent() }

// Started signals that the capture stream is live.
type Started struct {
	Device string
}

// AudioReady carries the finished recording as a WAV buffer.
type AudioReady struct {
	WAV      []byte
	Duration float64
}

// Error reports a capture failure; the stream is dead afterwards.
type Error struct {
	Message string
}

// Level is a periodic amplitude sample for UI feedback, normalized to [0,1].
type Level struct {
	Average float64
	Peak    float64
}

func (Started) captureEvent()    {}
func (AudioReady) captureEvent() {}
func (Error) captureEvent()      {}
func (Level) captureEvent()      {}

// Surface is the capture collaborator the recording controller drives.
// Begin/End/Discard are commands; Events carries the responses. After End the
// surface emits exactly one AudioReady or Error; after Discard it emits
// nothing for the discarded take.
type Surface interface {
	Begin(ctx context.Context) error
	End() error
	Discard() error
	Events() <-chan Event
}

// EncodeBase64 prepares an audio buffer for transport across a process
// boundary.
func EncodeBase64(audio []byte) string {
	return base64.StdEncoding.EncodeToString(audio)
}

// DecodeBase64 is the inverse of EncodeBase64.
func DecodeBase64(encoded string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(encoded)
}

// pcmLevel computes normalized average and peak amplitude of one s16le chunk.
func pcmLevel(pcm []byte) Level {
	if len(pcm) < bytesPerSample {
		return Level{}
	}
	var sum, peak int64
	samples := len(pcm) / bytesPerSample
	for i := 0; i < samples; i++ {
		v := int64(int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8))
		if v < 0 {
			v = -v
		}
		sum += v
		if v > peak {
			peak = v
		}
	}
	return Level{
		Average: float64(sum) / float64(samples) / 32768,
		Peak:    float64(peak) / 32768,
	}
}
