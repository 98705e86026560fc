// Package state implements the book-state stores (memory summaries, world
// model, narrative state, voice profile, writing rules) over a
// repo.ContentStore, plus the pure projections that render them for prompts.
//
// Every Read returns the store's default when its file is missing or
// unparseable. Every Write overwrites under a just-fetched conflict token
// and surfaces repo.ErrConflict.
package state

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rcliao/scriva/internal/repo"
)

// Store reads and writes the state of one book.
type Store struct {
	cs  repo.ContentStore
	now func() time.Time
}

// New returns a Store over cs.
func New(cs repo.ContentStore) *Store {
	return &Store{cs: cs, now: time.Now}
}

// Content returns the underlying content store.
func (s *Store) Content() repo.ContentStore { return s.cs }

const (
	DefaultFieldLimit       = 300
	DefaultExemplarLimit    = 3
	DefaultAntiPatternLimit = 10
	DefaultPreferenceLimit  = 10
)

// Limits bounds what a projection may emit.
type Limits struct {
	Field        int // max runes of any single free-text field
	Exemplars    int
	AntiPatterns int
	Preferences  int
}

// DefaultLimits returns the default projection limits.
func DefaultLimits() Limits {
	return Limits{
		Field:        DefaultFieldLimit,
		Exemplars:    DefaultExemplarLimit,
		AntiPatterns: DefaultAntiPatternLimit,
		Preferences:  DefaultPreferenceLimit,
	}
}

func (l Limits) normalize() Limits {
	d := DefaultLimits()
	if l.Field <= 0 {
		l.Field = d.Field
	}
	if l.Exemplars <= 0 {
		l.Exemplars = d.Exemplars
	}
	if l.AntiPatterns <= 0 {
		l.AntiPatterns = d.AntiPatterns
	}
	if l.Preferences <= 0 {
		l.Preferences = d.Preferences
	}
	return l
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n-1])) + "…"
}

func joinTruncated(items []string, n int) string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if t := Truncate(it, n); t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, "; ")
}
