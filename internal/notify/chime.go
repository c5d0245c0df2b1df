// Package notify plays short attention sounds on the default output device.
package notify

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

var initOnce sync.Once

// Chime plays the mp3 at path and blocks until playback finishes.
func Chime(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open chime: %w", err)
	}
	defer f.Close()

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		return fmt.Errorf("decode chime: %w", err)
	}
	defer streamer.Close()

	initOnce.Do(func() {
		err = speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10))
	})
	if err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		close(done)
	})))
	<-done
	return nil
}
