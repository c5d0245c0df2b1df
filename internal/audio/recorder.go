// Package audio provides microphone capture, PCM playback, and playback-time
// ducking of other applications' audio streams.
package audio

import (
	"context"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

// SampleRate is the capture and transcription rate in Hz.
const SampleRate = 16000

const (
	frameSize        = 320 // 20ms at 16 kHz
	frameMillis      = 20
	silenceThreshRMS = 0.015
	silenceDuration  = 600 * time.Millisecond
)

// Recorder captures mono 16 kHz float32 PCM from the default input device.
//
// Gate, when set, is consulted per frame; frames captured while the gate is
// closed are dropped so the microphone never hears the assistant's own
// playback.
type Recorder struct {
	Gate func() bool
}

// NewRecorder returns an uninitialized Recorder; call Init before use.
func NewRecorder() *Recorder { return &Recorder{} }

// Init initializes portaudio. Pair with Close.
func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

// Close terminates portaudio.
func (r *Recorder) Close() {
	portaudio.Terminate()
}

func (r *Recorder) open() bool {
	return r.Gate == nil || r.Gate()
}

// Record listens for up to maxDur and returns one utterance: capture starts
// at the first non-silent frame and stops after 600ms of trailing silence.
// A nil slice means no speech was heard before the deadline or ctx ended.
func (r *Recorder) Record(ctx context.Context, maxDur time.Duration) ([]float32, error) {
	buf := make([]float32, frameSize)
	out := make([]float32, 0, SampleRate*3)

	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	var (
		speaking      bool
		silenceFrames int
	)
	deadline := time.Now().Add(maxDur)

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := stream.Read(); err != nil {
			return nil, err
		}
		if !r.open() {
			continue
		}

		if frameRMS(buf) > silenceThreshRMS {
			speaking = true
			silenceFrames = 0
			out = append(out, buf...)
			continue
		}
		if speaking {
			silenceFrames++
			if time.Duration(silenceFrames)*frameMillis*time.Millisecond >= silenceDuration {
				return out, nil
			}
			out = append(out, buf...)
		}
	}

	if !speaking {
		return nil, nil
	}
	return out, nil
}

func frameRMS(f []float32) float64 {
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
