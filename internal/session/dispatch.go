package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"nowa/internal/intent"
	"nowa/internal/notes"
	"nowa/internal/weather"
)

// Notes is the note-store capability the dispatcher needs.
type Notes interface {
	Add(content string) (notes.Note, error)
	All() ([]notes.Note, error)
}

// Weather fetches current conditions; an empty city means the default one.
type Weather interface {
	Current(ctx context.Context, city string) (weather.Report, error)
}

// Waker sends the wake-on-LAN packet.
type Waker interface {
	Configured() bool
	Wake() error
}

// Completer is the language-model fallback.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Dispatcher executes classified intents against the real handlers and
// renders the Polish response strings. It implements Responder. Handler
// failures never propagate; they become spoken messages.
type Dispatcher struct {
	Notes     Notes
	Weather   Weather
	Waker     Waker
	Completer Completer
}

// Respond executes in and returns the response to speak.
func (d *Dispatcher) Respond(ctx context.Context, in intent.Intent) string {
	switch in.Kind {
	case intent.KindSaveNote:
		if _, err := d.Notes.Add(in.Content); err != nil {
			slog.Error("saving note failed", "err", err)
			return "Nie udało się zapisać notatki."
		}
		return "Notatka została zapisana."

	case intent.KindAskForContent:
		return "Co mam zapisać w notatce?"

	case intent.KindListNotes:
		all, err := d.Notes.All()
		if err != nil {
			slog.Error("listing notes failed", "err", err)
			all = nil
		}
		if len(all) == 0 {
			return "Nie masz jeszcze żadnych notatek."
		}
		contents := make([]string, len(all))
		for i, n := range all {
			contents[i] = n.Content
		}
		return "Oto Twoje notatki: " + strings.Join(contents, ", ")

	case intent.KindWeather:
		rep, err := d.Weather.Current(ctx, in.City)
		if err != nil {
			slog.Error("weather lookup failed", "city", in.City, "err", err)
			var apiErr *weather.APIError
			if errors.As(err, &apiErr) {
				return apiErr.Error()
			}
			return weather.ErrUnavailable
		}
		return rep.Speech()

	case intent.KindWakeDevice:
		if !d.Waker.Configured() {
			return "Brak adresu MAC komputera do włączenia w pliku .env."
		}
		if err := d.Waker.Wake(); err != nil {
			slog.Error("wake-on-lan failed", "err", err)
			return "Nie udało się wysłać komendy włączenia komputera."
		}
		return "Wysłałam komendę włączenia komputera."

	case intent.KindEndSession:
		return "Kończę nasłuchiwanie. Miłego dnia!"

	default:
		out, err := d.Completer.Complete(ctx, in.Prompt)
		if err != nil {
			slog.Error("completion failed", "err", err)
			return "Błąd w komunikacji z AI: " + err.Error()
		}
		return out
	}
}
