package sched

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// checkPeriod is how often the wall clock is compared against stored times.
// Well under a minute, so an HH:MM match cannot be skipped.
const checkPeriod = 30 * time.Second

// Speaker voices an announcement. Implemented by the TTS engine.
type Speaker interface {
	Speak(text string)
}

// Notifier broadcasts an event to the dashboard.
type Notifier interface {
	Emit(event string, payload any)
}

// Checker fires due alarms and reminders: it announces them over TTS,
// broadcasts the matching dashboard event, and deactivates each entry so it
// triggers only once.
type Checker struct {
	Alarms    *AlarmStore
	Reminders *ReminderStore
	Speaker   Speaker
	Notifier  Notifier

	now func() time.Time
}

// NewChecker wires a Checker over the two stores.
func NewChecker(alarms *AlarmStore, reminders *ReminderStore, sp Speaker, n Notifier) *Checker {
	return &Checker{Alarms: alarms, Reminders: reminders, Speaker: sp, Notifier: n, now: time.Now}
}

// Run checks every 30 seconds until ctx is canceled.
func (c *Checker) Run(ctx context.Context) error {
	ticker := time.NewTicker(checkPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.CheckOnce(c.now())
		}
	}
}

// CheckOnce fires everything due at the given instant.
func (c *Checker) CheckOnce(now time.Time) {
	hhmm := now.Format("15:04")

	for _, a := range c.Alarms.due(hhmm) {
		slog.Info("alarm fired", "id", a.ID, "time", a.Time, "label", a.Label)
		c.Notifier.Emit("alarm_triggered", a)
		label := a.Label
		if label == "" {
			label = a.Time
		}
		c.Speaker.Speak(fmt.Sprintf("Czas na budzik: %s", label))
	}

	for _, r := range c.Reminders.due(hhmm) {
		slog.Info("reminder fired", "id", r.ID, "time", r.Time)
		c.Notifier.Emit("reminder_triggered", r)
		c.Speaker.Speak(fmt.Sprintf("Przypomnienie: %s", r.Content))
	}
}
