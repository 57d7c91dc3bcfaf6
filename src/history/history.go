// Package history keeps the most recent recognized formulas, newest first, without
// duplicates, mirrored to a JSON file after every mutation.
package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"latex-ocr/src/apperr"
)

const (
	MaxEntries = 5
	DateLayout = "2006-01-02 15:04:05"
)

type Entry struct {
	Date  string `json:"date"`
	Latex string `json:"latex"`
}

// Store is owned by a single goroutine and is not safe for concurrent use.
type Store struct {
	path    string
	now     func() time.Time
	entries []Entry
}

// New creates an empty store backed by path. Call Load to read existing entries.
func New(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Entries returns a copy of the current entries, newest first.
func (s *Store) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Store) Len() int { return len(s.entries) }

// Load replaces the in-memory entries with the file contents. A missing or corrupt
// file leaves the store empty; the corrupt case is returned as a KindConfig error
// for logging.
func (s *Store) Load() error {
	s.entries = nil
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return apperr.Wrap(err, apperr.KindConfig, "failed to read history")
	}
	var loaded []Entry
	if err := json.Unmarshal(data, &loaded); err != nil {
		return apperr.Wrap(err, apperr.KindConfig, "failed to parse history")
	}
	s.entries = normalize(loaded)
	return nil
}

// Add inserts latex at the front. Empty or already present formulas are ignored and
// reported as false.
func (s *Store) Add(latex string) (bool, error) {
	latex = strings.TrimSpace(latex)
	if latex == "" || s.contains(latex) {
		return false, nil
	}
	entry := Entry{Date: s.now().Format(DateLayout), Latex: latex}
	s.entries = append([]Entry{entry}, s.entries...)
	if len(s.entries) > MaxEntries {
		s.entries = s.entries[:MaxEntries]
	}
	return true, s.persist()
}

// Remove deletes every entry whose formula matches latex after trimming.
func (s *Store) Remove(latex string) error {
	latex = strings.TrimSpace(latex)
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.Latex != latex {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	return s.persist()
}

// Clear empties the store and writes an empty array.
func (s *Store) Clear() error {
	s.entries = nil
	return s.persist()
}

// Destroy clears the store and deletes its file.
func (s *Store) Destroy() error {
	s.entries = nil
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return apperr.Wrap(err, apperr.KindIO, "failed to remove history")
	}
	return nil
}

func (s *Store) contains(latex string) bool {
	for _, e := range s.entries {
		if e.Latex == latex {
			return true
		}
	}
	return false
}

func (s *Store) persist() error {
	entries := s.entries
	if entries == nil {
		entries = []Entry{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return apperr.Wrap(err, apperr.KindIO, "failed to encode history")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return apperr.Wrap(err, apperr.KindIO, "failed to create history directory")
	}
	if err := os.WriteFile(s.path, buf.Bytes(), 0600); err != nil {
		return apperr.Wrap(err, apperr.KindIO, "failed to write history")
	}
	log.Printf("History: saved %d entries", len(entries))
	return nil
}

// normalize applies the collection rules to data read from disk: trimmed, non-empty,
// unique formulas, at most MaxEntries, in file order.
func normalize(in []Entry) []Entry {
	seen := make(map[string]bool, len(in))
	var out []Entry
	for _, e := range in {
		e.Latex = strings.TrimSpace(e.Latex)
		if e.Latex == "" || seen[e.Latex] {
			continue
		}
		seen[e.Latex] = true
		out = append(out, e)
		if len(out) == MaxEntries {
			break
		}
	}
	return out
}
