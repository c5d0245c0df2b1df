package stt

import (
	"context"
	"strings"
	"time"

	"nowa/internal/audio"
)

// Engine couples the microphone recorder with the whisper transcriber and
// yields a single normalized utterance per Listen call.
type Engine struct {
	rec  *audio.Recorder
	tr   *Transcriber
	opts Options
}

func NewEngine(rec *audio.Recorder, tr *Transcriber, opts Options) *Engine {
	return &Engine{rec: rec, tr: tr, opts: opts}
}

// Listen records until the speaker falls silent or maxDur passes, then
// recognizes the captured audio. Returns "" when nothing was said.
func (e *Engine) Listen(ctx context.Context, maxDur time.Duration) (string, error) {
	pcm, err := e.rec.Record(ctx, maxDur)
	if err != nil {
		return "", err
	}
	if len(pcm) == 0 {
		return "", nil
	}

	text, err := e.tr.TranscribePCM(ctx, pcm, e.opts)
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(text)), nil
}
