// Package sched persists alarms and reminders and fires them when the wall
// clock reaches their HH:MM time. Both lists live in JSON files shared with
// the web dashboard.
package sched

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"
)

// Alarm is a one-shot wake-up at an HH:MM time of day.
type Alarm struct {
	ID     int64  `json:"id"`
	Time   string `json:"time"`
	Label  string `json:"label"`
	Active bool   `json:"active"`
}

// Reminder is a one-shot spoken reminder at an HH:MM time of day.
type Reminder struct {
	ID        int64  `json:"id"`
	Time      string `json:"time"`
	Content   string `json:"content"`
	Active    bool   `json:"active"`
	Timestamp string `json:"timestamp"`
}

// NormalizeTime reduces a datetime-local value ("2006-01-02T15:04") to the
// bare HH:MM the checker compares against. Already-bare values pass through.
func NormalizeTime(v string) string {
	if len(v) >= 16 && strings.ContainsRune(v, 'T') {
		return v[11:16]
	}
	return v
}

func newID(now time.Time) int64 {
	return now.Unix() + int64(rand.Intn(1000)+1)
}

// jsonFile is the shared load/save primitive for both stores.
type jsonFile[T any] struct {
	mu   sync.Mutex
	path string
}

func (f *jsonFile[T]) load() []T {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil
	}
	var all []T
	if err := json.Unmarshal(data, &all); err != nil {
		return nil
	}
	return all
}

func (f *jsonFile[T]) save(all []T) error {
	if all == nil {
		all = []T{}
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", f.path, err)
	}
	if err := os.WriteFile(f.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	return nil
}

// AlarmStore persists alarms. Safe for concurrent use.
type AlarmStore struct {
	file jsonFile[Alarm]
	now  func() time.Time
}

// NewAlarmStore returns a store backed by the JSON file at path.
func NewAlarmStore(path string) *AlarmStore {
	return &AlarmStore{file: jsonFile[Alarm]{path: path}, now: time.Now}
}

// All returns the stored alarms; a missing or corrupt file reads as empty.
func (s *AlarmStore) All() []Alarm {
	s.file.mu.Lock()
	defer s.file.mu.Unlock()
	return s.file.load()
}

// Add stores a new active alarm and returns it.
func (s *AlarmStore) Add(at, label string) (Alarm, error) {
	s.file.mu.Lock()
	defer s.file.mu.Unlock()

	a := Alarm{ID: newID(s.now()), Time: NormalizeTime(at), Label: label, Active: true}
	all := append(s.file.load(), a)
	if err := s.file.save(all); err != nil {
		return Alarm{}, err
	}
	return a, nil
}

// Delete removes the alarm with the given id, if present.
func (s *AlarmStore) Delete(id int64) error {
	s.file.mu.Lock()
	defer s.file.mu.Unlock()

	all := s.file.load()
	kept := all[:0]
	for _, a := range all {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	return s.file.save(kept)
}

// SetActive flips the active flag of the alarm with the given id.
func (s *AlarmStore) SetActive(id int64, active bool) error {
	s.file.mu.Lock()
	defer s.file.mu.Unlock()

	all := s.file.load()
	for i := range all {
		if all[i].ID == id {
			all[i].Active = active
		}
	}
	return s.file.save(all)
}

// due returns the active alarms matching hhmm and deactivates them in one
// locked pass, so each alarm fires at most once.
func (s *AlarmStore) due(hhmm string) []Alarm {
	s.file.mu.Lock()
	defer s.file.mu.Unlock()

	all := s.file.load()
	var fired []Alarm
	for i := range all {
		if all[i].Active && all[i].Time == hhmm {
			all[i].Active = false
			fired = append(fired, all[i])
		}
	}
	if len(fired) > 0 {
		if err := s.file.save(all); err != nil {
			return nil
		}
	}
	return fired
}

// ReminderStore persists reminders. Safe for concurrent use.
type ReminderStore struct {
	file jsonFile[Reminder]
	now  func() time.Time
}

// NewReminderStore returns a store backed by the JSON file at path.
func NewReminderStore(path string) *ReminderStore {
	return &ReminderStore{file: jsonFile[Reminder]{path: path}, now: time.Now}
}

// All returns the stored reminders; a missing or corrupt file reads as empty.
func (s *ReminderStore) All() []Reminder {
	s.file.mu.Lock()
	defer s.file.mu.Unlock()
	return s.file.load()
}

// Add stores a new active reminder and returns it.
func (s *ReminderStore) Add(at, content string) (Reminder, error) {
	s.file.mu.Lock()
	defer s.file.mu.Unlock()

	now := s.now()
	r := Reminder{
		ID:        newID(now),
		Time:      NormalizeTime(at),
		Content:   content,
		Active:    true,
		Timestamp: now.Format(time.RFC3339),
	}
	all := append(s.file.load(), r)
	if err := s.file.save(all); err != nil {
		return Reminder{}, err
	}
	return r, nil
}

// Delete removes the reminder with the given id, if present.
func (s *ReminderStore) Delete(id int64) error {
	s.file.mu.Lock()
	defer s.file.mu.Unlock()

	all := s.file.load()
	kept := all[:0]
	for _, r := range all {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	return s.file.save(kept)
}

// SetActive flips the active flag of the reminder with the given id.
func (s *ReminderStore) SetActive(id int64, active bool) error {
	s.file.mu.Lock()
	defer s.file.mu.Unlock()

	all := s.file.load()
	for i := range all {
		if all[i].ID == id {
			all[i].Active = active
		}
	}
	return s.file.save(all)
}

func (s *ReminderStore) due(hhmm string) []Reminder {
	s.file.mu.Lock()
	defer s.file.mu.Unlock()

	all := s.file.load()
	var fired []Reminder
	for i := range all {
		if all[i].Active && all[i].Time == hhmm {
			all[i].Active = false
			fired = append(fired, all[i])
		}
	}
	if len(fired) > 0 {
		if err := s.file.save(all); err != nil {
			return nil
		}
	}
	return fired
}
