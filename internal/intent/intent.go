// Package intent classifies a transcribed utterance into exactly one command
// intent. Matching is case-insensitive substring search against fixed Polish
// trigger lists, evaluated in a fixed priority order so that overlapping
// trigger sets stay deterministic.
package intent

import (
	"strings"
	"unicode"
)

// Kind identifies which handler an utterance is routed to.
type Kind int

const (
	// KindSaveNote stores the remainder of the utterance as a note.
	KindSaveNote Kind = iota

	// KindAskForContent is emitted instead of KindSaveNote when the note
	// trigger matched but no content followed it.
	KindAskForContent

	// KindListNotes reads the stored notes back.
	KindListNotes

	// KindWeather asks for current conditions, optionally for a City.
	KindWeather

	// KindWakeDevice sends the wake-on-LAN packet.
	KindWakeDevice

	// KindEndSession terminates the active listening session.
	KindEndSession

	// KindFallback hands the utterance verbatim to the language model.
	KindFallback
)

// String returns a short label for logging.
func (k Kind) String() string {
	switch k {
	case KindSaveNote:
		return "save_note"
	case KindAskForContent:
		return "ask_for_content"
	case KindListNotes:
		return "list_notes"
	case KindWeather:
		return "weather"
	case KindWakeDevice:
		return "wake_device"
	case KindEndSession:
		return "end_session"
	case KindFallback:
		return "fallback"
	}
	return "unknown"
}

// Intent is the classified meaning of one utterance. Only the field matching
// Kind is populated.
type Intent struct {
	Kind Kind

	// Content is the note body for KindSaveNote.
	Content string

	// City is the extracted city for KindWeather; empty means the default
	// city. Capitalization and declension are kept verbatim from the
	// utterance ("w Warszawie" yields "Warszawie", not "Warszawa").
	City string

	// Prompt is the untouched utterance for KindFallback.
	Prompt string
}

var (
	saveNoteTriggers = []string{"zapisz notatkę", "zrób notatkę"}
	listNoteTriggers = []string{"pokaż notatki", "wyświetl notatki"}
	weatherTriggers  = []string{"pogod", "temperatur", "deszcz", "słońc", "śnieg", "wilgotność", "wiatr"}
	wakeTriggers     = []string{"włącz komputer", "uruchom komputer", "włącz pc", "włącz pecet"}
)

// rule pairs a trigger set with the intent it builds. Rules are evaluated in
// order; the first set with any substring hit wins.
type rule struct {
	triggers []string
	build    func(utterance string) Intent
}

// Router classifies utterances. It is stateless after construction and safe
// for concurrent use.
type Router struct {
	rules []rule
}

// NewRouter builds a Router with the given session end words (matched as
// substrings, lowest priority before the LLM fallback).
func NewRouter(endWords []string) *Router {
	ends := make([]string, 0, len(endWords))
	for _, w := range endWords {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			ends = append(ends, w)
		}
	}

	return &Router{rules: []rule{
		{saveNoteTriggers, buildSaveNote},
		{listNoteTriggers, func(string) Intent { return Intent{Kind: KindListNotes} }},
		{weatherTriggers, buildWeather},
		{wakeTriggers, func(string) Intent { return Intent{Kind: KindWakeDevice} }},
		{ends, func(string) Intent { return Intent{Kind: KindEndSession} }},
	}}
}

// Classify maps an utterance to exactly one Intent. It is total: when no
// trigger matches, the utterance becomes a KindFallback prompt.
func (r *Router) Classify(utterance string) Intent {
	lowered := strings.ToLower(utterance)
	for _, rl := range r.rules {
		for _, trig := range rl.triggers {
			if strings.Contains(lowered, trig) {
				return rl.build(lowered)
			}
		}
	}
	return Intent{Kind: KindFallback, Prompt: utterance}
}

func buildSaveNote(utterance string) Intent {
	content := utterance
	for _, trig := range saveNoteTriggers {
		content = strings.ReplaceAll(content, trig, "")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return Intent{Kind: KindAskForContent}
	}
	return Intent{Kind: KindSaveNote, Content: content}
}

func buildWeather(utterance string) Intent {
	return Intent{Kind: KindWeather, City: extractCity(utterance)}
}

// extractCity takes the first word after the token " w " and capitalizes it.
// The declined form is preserved as spoken.
func extractCity(utterance string) string {
	_, after, found := strings.Cut(utterance, " w ")
	if !found {
		return ""
	}
	fields := strings.Fields(after)
	if len(fields) == 0 {
		return ""
	}
	return capitalize(fields[0])
}

func capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
