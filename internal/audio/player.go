package audio

import (
	"context"
	"errors"

	"github.com/gordonklaus/portaudio"
)

const playbackFrame = 1024

// Player writes mono float32 PCM to the default output device. It shares
// the portaudio initialization owned by Recorder.
type Player struct{}

// NewPlayer returns a Player. Portaudio must already be initialized.
func NewPlayer() *Player { return &Player{} }

// Play blocks until all of pcm has been written at sampleRate, or ctx ends.
func (p *Player) Play(ctx context.Context, pcm []float32, sampleRate int) error {
	if len(pcm) == 0 {
		return nil
	}
	if sampleRate <= 0 {
		return errors.New("invalid sample rate")
	}

	buf := make([]float32, playbackFrame)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(sampleRate), len(buf), buf)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return err
	}
	defer stream.Stop()

	for off := 0; off < len(pcm); off += playbackFrame {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n := copy(buf, pcm[off:])
		for i := n; i < len(buf); i++ {
			buf[i] = 0
		}
		if err := stream.Write(); err != nil {
			return err
		}
	}
	return nil
}
