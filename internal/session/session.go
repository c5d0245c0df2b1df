// Package session owns the assistant's listening state machine: it decides
// when a session starts, which transcriptions are real commands versus noise
// or echo, when a session times out, and routes accepted commands through the
// intent router to a handler.
//
// The machine runs as a single long-lived goroutine and performs one blocking
// transcription at a time. Every external collaborator is an injected
// interface, so the transitions are testable with deterministic fakes.
package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"nowa/internal/intent"
	"nowa/internal/similarity"
)

// State is the listening mode of the one process-wide session.
type State int

const (
	// Idle is the transient startup state before the greeting is spoken.
	Idle State = iota

	// AwaitingWakeWord discards everything that does not contain a wake word.
	AwaitingWakeWord

	// ActiveListening treats recognized utterances as commands.
	ActiveListening
)

// Transcriber produces one utterance per call: lowercase trimmed text, or an
// empty string on timeout or silence. The call blocks up to timeout.
type Transcriber interface {
	Listen(ctx context.Context, timeout time.Duration) (string, error)
}

// Speaker voices text and blocks until playback finishes. Speaking reports
// whether playback is in progress so capture can stay suspended meanwhile.
type Speaker interface {
	Speak(text string)
	Speaking() bool
}

// Classifier maps an utterance to exactly one intent.
type Classifier interface {
	Classify(utterance string) intent.Intent
}

// Responder executes an intent and returns the spoken response. It never
// fails; handler errors come back as user-facing message strings.
type Responder interface {
	Respond(ctx context.Context, in intent.Intent) string
}

// Notifier is the fire-and-forget dashboard event sink.
type Notifier interface {
	Emit(event string, payload any)
}

// Entry is one conversation_update payload.
type Entry struct {
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// Status is the listening_status payload.
type Status struct {
	Status bool `json:"status"`
}

// Spoken phrases. The assistant persona is Polish throughout.
const (
	msgReady     = "Jestem gotowa do działania"
	msgWakeAck   = "Tak, słucham?"
	msgForcedAck = "Słucham?"
	msgFarewell  = "Do usłyszenia!"

	sysStarted = "Rozpoczynam nasłuchiwanie."
	sysStopped = "Zatrzymano nasłuchiwanie."
)

// speakPoll is how often the loop re-checks the speaking flag before
// re-opening the microphone.
const speakPoll = 100 * time.Millisecond

// Config tunes the session timing and trigger words.
type Config struct {
	// WakeWords activate a session when any appears in an utterance.
	WakeWords []string

	// WakeListenTimeout bounds one transcription attempt while awaiting
	// the wake word.
	WakeListenTimeout time.Duration

	// CommandListenTimeout bounds one transcription attempt while active.
	CommandListenTimeout time.Duration

	// InactivityTimeout ends an active session with no recognized input.
	InactivityTimeout time.Duration

	// ErrorBackoff is the pause after an unexpected cycle failure.
	ErrorBackoff time.Duration
}

func (c *Config) applyDefaults() {
	if c.WakeListenTimeout <= 0 {
		c.WakeListenTimeout = 10 * time.Second
	}
	if c.CommandListenTimeout <= 0 {
		c.CommandListenTimeout = 30 * time.Second
	}
	if c.InactivityTimeout <= 0 {
		c.InactivityTimeout = 15 * time.Second
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = time.Second
	}
}

// Session is the live listening context. Create with New; all exported
// methods are safe for concurrent use.
type Session struct {
	cfg Config

	transcriber Transcriber
	speaker     Speaker
	classifier  Classifier
	responder   Responder
	notifier    Notifier

	similar func(a, b string) bool
	now     func() time.Time

	mu              sync.Mutex
	state           State
	lastRecognition time.Time
	lastCommand     string
	lastResponse    string
	forceListen     bool
	stopRequested   bool
}

// New wires a Session. The similarity filter defaults to the LCS ratio with
// its standard threshold.
func New(cfg Config, tr Transcriber, sp Speaker, cl Classifier, re Responder, nt Notifier) *Session {
	cfg.applyDefaults()
	return &Session{
		cfg:         cfg,
		transcriber: tr,
		speaker:     sp,
		classifier:  cl,
		responder:   re,
		notifier:    nt,
		similar: func(a, b string) bool {
			return similarity.IsSimilar(a, b, similarity.DefaultThreshold)
		},
		now:   time.Now,
		state: Idle,
	}
}

// State returns the current listening state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ForceListen makes the next cycle enter ActiveListening without a wake
// word. No-op while a session is already active.
func (s *Session) ForceListen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != ActiveListening {
		s.forceListen = true
	}
}

// RequestStop ends the active session at the top of its next iteration,
// without waiting for the inactivity timeout. No-op when not active.
func (s *Session) RequestStop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == ActiveListening {
		s.stopRequested = true
	}
}

// Run announces readiness and then loops for the life of ctx. A failed
// cycle is logged and retried after the configured backoff; the session
// machine itself is never fatal.
func (s *Session) Run(ctx context.Context) error {
	s.speaker.Speak(msgReady)
	s.setState(AwaitingWakeWord)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("session cycle failed", "err", err)
			s.setState(AwaitingWakeWord)
			sleepCtx(ctx, s.cfg.ErrorBackoff)
		}
	}
}

// cycle performs one wake-word wait and, when a session starts, runs it to
// completion.
func (s *Session) cycle(ctx context.Context) error {
	if s.consumeForceListen() {
		s.emitConversation("System", sysStarted)
		s.activate(msgForcedAck)
		return s.listenLoop(ctx)
	}

	heard := s.listen(ctx, s.cfg.WakeListenTimeout)
	if heard == "" {
		return ctx.Err()
	}
	if !s.containsWakeWord(heard) {
		// Intentional noise rejection, not an error.
		slog.Debug("discarding non-wake utterance", "text", heard)
		return ctx.Err()
	}

	slog.Info("wake word detected", "text", heard)
	s.emitConversation("Użytkownik", heard)
	s.activate(msgWakeAck)
	return s.listenLoop(ctx)
}

// activate transitions into ActiveListening and speaks the acknowledgement.
func (s *Session) activate(ack string) {
	s.mu.Lock()
	s.state = ActiveListening
	s.lastRecognition = s.now()
	s.mu.Unlock()

	s.notifier.Emit("listening_status", Status{Status: true})
	s.speaker.Speak(ack)
	s.emitConversation("Nowa", ack)
}

// listenLoop processes commands until the session ends by timeout, end word,
// or external stop.
func (s *Session) listenLoop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.consumeStop() {
			s.endSession(sysStopped, msgFarewell)
			return nil
		}

		// Keep the microphone closed while our own voice is playing.
		for s.speaker.Speaking() {
			if !sleepCtx(ctx, speakPoll) {
				return ctx.Err()
			}
		}

		heard := s.listen(ctx, s.cfg.CommandListenTimeout)
		if heard == "" {
			if s.sinceLastRecognition() > s.cfg.InactivityTimeout {
				slog.Info("session timed out")
				s.endSession("", msgFarewell)
				return nil
			}
			continue
		}
		s.touchRecognition()

		if s.isRepeatOrEcho(heard) {
			slog.Debug("discarding repeated or echoed command", "text", heard)
			continue
		}
		s.setLastCommand(heard)
		s.emitConversation("Użytkownik", heard)

		in := s.classifier.Classify(heard)
		slog.Info("command accepted", "intent", in.Kind.String(), "text", heard)

		response := s.responder.Respond(ctx, in)
		s.setLastResponse(response)
		s.emitConversation("Nowa", response)
		s.speaker.Speak(response)

		if in.Kind == intent.KindEndSession {
			s.endSession("", "")
			return nil
		}
	}
}

// endSession transitions back to AwaitingWakeWord, optionally emitting a
// system line and speaking a farewell.
func (s *Session) endSession(sysLine, farewell string) {
	s.setState(AwaitingWakeWord)
	if sysLine != "" {
		s.emitConversation("System", sysLine)
	}
	s.notifier.Emit("listening_status", Status{Status: false})
	if farewell != "" {
		s.speaker.Speak(farewell)
	}
}

// listen runs one bounded transcription. Transient transcriber failures are
// logged and read as silence for this cycle.
func (s *Session) listen(ctx context.Context, timeout time.Duration) string {
	text, err := s.transcriber.Listen(ctx, timeout)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("transcription failed", "err", err)
		}
		return ""
	}
	return strings.TrimSpace(text)
}

// isRepeatOrEcho rejects a verbatim repeat, a near-duplicate of the previous
// command, or an utterance contained in the previous response (the
// microphone picking our own speech back up).
func (s *Session) isRepeatOrEcho(heard string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if heard == s.lastCommand {
		return true
	}
	if s.similar(heard, s.lastCommand) {
		return true
	}
	return s.lastResponse != "" && strings.Contains(s.lastResponse, heard)
}

func (s *Session) containsWakeWord(heard string) bool {
	for _, w := range s.cfg.WakeWords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" && strings.Contains(heard, w) {
			return true
		}
	}
	return false
}

func (s *Session) emitConversation(speaker, text string) {
	s.notifier.Emit("conversation_update", Entry{
		Speaker:   speaker,
		Text:      text,
		Timestamp: s.now().Format("15:04:05"),
	})
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) consumeForceListen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.forceListen
	s.forceListen = false
	return f
}

func (s *Session) consumeStop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stopRequested
	s.stopRequested = false
	return st
}

func (s *Session) touchRecognition() {
	s.mu.Lock()
	s.lastRecognition = s.now()
	s.mu.Unlock()
}

func (s *Session) sinceLastRecognition() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().Sub(s.lastRecognition)
}

func (s *Session) setLastCommand(c string) {
	s.mu.Lock()
	s.lastCommand = c
	s.mu.Unlock()
}

func (s *Session) setLastResponse(r string) {
	s.mu.Lock()
	s.lastResponse = r
	s.mu.Unlock()
}

// sleepCtx waits d, returning false when ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
