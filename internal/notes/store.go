// Package notes persists voice and dashboard notes as an ordered JSON array
// on disk. The file is shared with the web dashboard, so the field names and
// ordering are part of the format.
package notes

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"
)

// Note is one stored note.
type Note struct {
	ID        int64  `json:"id"`
	Timestamp string `json:"timestamp"`
	Content   string `json:"content"`
}

// ErrNotFound is returned by Delete for an unknown note id.
var ErrNotFound = errors.New("note not found")

// Store reads and writes the notes file. All methods are safe for
// concurrent use; every call reads the file fresh so dashboard edits and
// voice edits never clobber each other's view.
type Store struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewStore returns a Store backed by the JSON file at path. The file is
// created on first write.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Add appends a note with a fresh id and creation timestamp.
func (s *Store) Add(content string) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.load()
	now := s.now()
	n := Note{
		// Millisecond clock plus a small random suffix, matching the ids the
		// dashboard already has on disk.
		ID:        now.UnixMilli() + int64(rand.Intn(999)+1),
		Timestamp: now.Format(time.RFC3339),
		Content:   content,
	}
	all = append(all, n)
	if err := s.save(all); err != nil {
		return Note{}, err
	}
	return n, nil
}

// All returns every stored note in insertion order. A missing or corrupt
// file reads as an empty list.
func (s *Store) All() ([]Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(), nil
}

// Delete removes the note with the given id.
func (s *Store) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.load()
	kept := all[:0]
	for _, n := range all {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	if len(kept) == len(all) {
		return ErrNotFound
	}
	return s.save(kept)
}

func (s *Store) load() []Note {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	var all []Note
	if err := json.Unmarshal(data, &all); err != nil {
		return nil
	}
	return all
}

func (s *Store) save(all []Note) error {
	if all == nil {
		all = []Note{}
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encode notes: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}
