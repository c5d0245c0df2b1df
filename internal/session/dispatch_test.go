package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"nowa/internal/intent"
	"nowa/internal/notes"
	"nowa/internal/weather"
)

type fakeNotes struct {
	added []string
	list  []notes.Note
	err   error
}

func (f *fakeNotes) Add(content string) (notes.Note, error) {
	if f.err != nil {
		return notes.Note{}, f.err
	}
	f.added = append(f.added, content)
	return notes.Note{ID: 1, Content: content}, nil
}

func (f *fakeNotes) All() ([]notes.Note, error) { return f.list, f.err }

type fakeWeather struct {
	rep weather.Report
	err error
}

func (f *fakeWeather) Current(_ context.Context, city string) (weather.Report, error) {
	return f.rep, f.err
}

type fakeWaker struct {
	configured bool
	err        error
	woken      int
}

func (f *fakeWaker) Configured() bool { return f.configured }

func (f *fakeWaker) Wake() error {
	f.woken++
	return f.err
}

type fakeCompleter struct {
	out string
	err error
}

func (f *fakeCompleter) Complete(context.Context, string) (string, error) { return f.out, f.err }

func newDispatcher() (*Dispatcher, *fakeNotes, *fakeWeather, *fakeWaker, *fakeCompleter) {
	n := &fakeNotes{}
	w := &fakeWeather{}
	wk := &fakeWaker{}
	c := &fakeCompleter{}
	return &Dispatcher{Notes: n, Weather: w, Waker: wk, Completer: c}, n, w, wk, c
}

func TestRespondSaveNote(t *testing.T) {
	t.Parallel()

	d, n, _, _, _ := newDispatcher()
	got := d.Respond(context.Background(), intent.Intent{Kind: intent.KindSaveNote, Content: "kupić mleko"})
	if got != "Notatka została zapisana." {
		t.Errorf("Respond = %q", got)
	}
	if len(n.added) != 1 || n.added[0] != "kupić mleko" {
		t.Errorf("added = %v", n.added)
	}
}

func TestRespondSaveNoteFailure(t *testing.T) {
	t.Parallel()

	d, n, _, _, _ := newDispatcher()
	n.err = errors.New("disk full")
	got := d.Respond(context.Background(), intent.Intent{Kind: intent.KindSaveNote, Content: "x"})
	if got != "Nie udało się zapisać notatki." {
		t.Errorf("Respond = %q", got)
	}
}

func TestRespondAskForContent(t *testing.T) {
	t.Parallel()

	d, _, _, _, _ := newDispatcher()
	got := d.Respond(context.Background(), intent.Intent{Kind: intent.KindAskForContent})
	if got != "Co mam zapisać w notatce?" {
		t.Errorf("Respond = %q", got)
	}
}

func TestRespondListNotes(t *testing.T) {
	t.Parallel()

	d, n, _, _, _ := newDispatcher()

	got := d.Respond(context.Background(), intent.Intent{Kind: intent.KindListNotes})
	if got != "Nie masz jeszcze żadnych notatek." {
		t.Errorf("Respond with no notes = %q", got)
	}

	n.list = []notes.Note{{Content: "kupić mleko"}, {Content: "oddzwonić do mamy"}}
	got = d.Respond(context.Background(), intent.Intent{Kind: intent.KindListNotes})
	if got != "Oto Twoje notatki: kupić mleko, oddzwonić do mamy" {
		t.Errorf("Respond = %q", got)
	}
}

func TestRespondWeather(t *testing.T) {
	t.Parallel()

	d, _, w, _, _ := newDispatcher()
	w.rep = weather.Report{City: "Szczecin", Description: "Słonecznie", Temp: 20, FeelsLike: 19, Humidity: 50, WindSpeed: 5}

	got := d.Respond(context.Background(), intent.Intent{Kind: intent.KindWeather})
	if !strings.HasPrefix(got, "Aktualna pogoda w Szczecin") {
		t.Errorf("Respond = %q", got)
	}
}

func TestRespondWeatherErrors(t *testing.T) {
	t.Parallel()

	d, _, w, _, _ := newDispatcher()

	w.err = &weather.APIError{Message: "city not found"}
	if got := d.Respond(context.Background(), intent.Intent{Kind: intent.KindWeather, City: "Nigdzie"}); got != "Błąd pogody: city not found" {
		t.Errorf("Respond = %q, want API error message", got)
	}

	w.err = errors.New("connection refused")
	if got := d.Respond(context.Background(), intent.Intent{Kind: intent.KindWeather}); got != weather.ErrUnavailable {
		t.Errorf("Respond = %q, want %q", got, weather.ErrUnavailable)
	}
}

func TestRespondWakeDevice(t *testing.T) {
	t.Parallel()

	d, _, _, wk, _ := newDispatcher()

	if got := d.Respond(context.Background(), intent.Intent{Kind: intent.KindWakeDevice}); got != "Brak adresu MAC komputera do włączenia w pliku .env." {
		t.Errorf("Respond unconfigured = %q", got)
	}

	wk.configured = true
	if got := d.Respond(context.Background(), intent.Intent{Kind: intent.KindWakeDevice}); got != "Wysłałam komendę włączenia komputera." {
		t.Errorf("Respond = %q", got)
	}
	if wk.woken != 1 {
		t.Errorf("woken = %d, want 1", wk.woken)
	}

	wk.err = errors.New("network down")
	if got := d.Respond(context.Background(), intent.Intent{Kind: intent.KindWakeDevice}); got != "Nie udało się wysłać komendy włączenia komputera." {
		t.Errorf("Respond = %q", got)
	}
}

func TestRespondEndSession(t *testing.T) {
	t.Parallel()

	d, _, _, _, _ := newDispatcher()
	if got := d.Respond(context.Background(), intent.Intent{Kind: intent.KindEndSession}); got != "Kończę nasłuchiwanie. Miłego dnia!" {
		t.Errorf("Respond = %q", got)
	}
}

func TestRespondFallback(t *testing.T) {
	t.Parallel()

	d, _, _, _, c := newDispatcher()
	c.out = "Jasne, już się robi."

	if got := d.Respond(context.Background(), intent.Intent{Kind: intent.KindFallback, Prompt: "zrób coś"}); got != "Jasne, już się robi." {
		t.Errorf("Respond = %q", got)
	}

	c.err = errors.New("timeout")
	got := d.Respond(context.Background(), intent.Intent{Kind: intent.KindFallback, Prompt: "zrób coś"})
	if !strings.HasPrefix(got, "Błąd w komunikacji z AI: ") {
		t.Errorf("Respond = %q, want AI error message", got)
	}
}
