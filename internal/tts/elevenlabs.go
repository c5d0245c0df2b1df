// Package tts speaks Polish responses through the ElevenLabs API.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"nowa/internal/audio"
	"nowa/pkg/audioconv"
)

const (
	endpoint = "https://api.elevenlabs.io/v1/text-to-speech/%s"
	modelID  = "eleven_multilingual_v2"
)

type request struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Engine synthesizes speech and plays it on the default output device,
// ducking other audio streams while it talks.
type Engine struct {
	apiKey  string
	voiceID string
	http    *http.Client
	player  *audio.Player
	ducker  *audio.Ducker

	speaking atomic.Bool
}

func NewEngine(apiKey, voiceID string, httpClient *http.Client, player *audio.Player, ducker *audio.Ducker) *Engine {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Engine{
		apiKey:  apiKey,
		voiceID: voiceID,
		http:    httpClient,
		player:  player,
		ducker:  ducker,
	}
}

// Speaking reports whether playback is currently in progress.
func (e *Engine) Speaking() bool { return e.speaking.Load() }

// Speak synthesizes text and blocks until playback finishes. Errors are
// logged rather than returned so a failed synthesis never tears down the
// listening loop.
func (e *Engine) Speak(text string) {
	if text == "" {
		return
	}
	if e.apiKey == "" || e.voiceID == "" {
		slog.Warn("Eleven Labs nie jest skonfigurowany.")
		return
	}

	e.speaking.Store(true)
	defer e.speaking.Store(false)

	ctx := context.Background()

	pcm, rate, err := e.synthesize(ctx, text)
	if err != nil {
		slog.Error("tts synthesis failed", "err", err)
		return
	}
	if len(pcm) == 0 {
		return
	}

	if e.ducker != nil {
		if err := e.ducker.Duck(ctx, 0.3, 200*time.Millisecond); err != nil {
			slog.Debug("duck failed", "err", err)
		}
		defer func() {
			if err := e.ducker.Restore(ctx, 200*time.Millisecond); err != nil {
				slog.Debug("restore failed", "err", err)
			}
		}()
	}

	if err := e.player.Play(ctx, pcm, rate); err != nil {
		slog.Error("tts playback failed", "err", err)
	}
}

func (e *Engine) synthesize(ctx context.Context, text string) ([]float32, int, error) {
	body, err := json.Marshal(request{
		Text:    text,
		ModelID: modelID,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	})
	if err != nil {
		return nil, 0, err
	}

	url := fmt.Sprintf(endpoint, e.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/wav")
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, 0, fmt.Errorf("elevenlabs: status %d: %s", resp.StatusCode, msg)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return audioconv.Decode(data, 0)
}
