package state

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/scriva/internal/model"
	"github.com/rcliao/scriva/internal/repo"
)

func (s *Store) ReadRules(ctx context.Context) (model.WritingRules, error) {
	return repo.ReadJSON(ctx, s.cs, repo.RulesPath, model.WritingRules{})
}

func (s *Store) WriteRules(ctx context.Context, r model.WritingRules) error {
	return repo.WriteJSON(ctx, s.cs, repo.RulesPath, r)
}

func (s *Store) ReadLearned(ctx context.Context) ([]model.LearnedPreference, error) {
	return repo.ReadJSON(ctx, s.cs, repo.LearnedPath, []model.LearnedPreference{})
}

func (s *Store) WriteLearned(ctx context.Context, ps []model.LearnedPreference) error {
	return repo.WriteJSON(ctx, s.cs, repo.LearnedPath, nonNil(ps))
}

// ReadConfig returns the book configuration.
func (s *Store) ReadConfig(ctx context.Context) (model.ScrivaConfig, error) {
	return repo.ReadJSON(ctx, s.cs, repo.ConfigPath, model.ScrivaConfig{})
}

func (s *Store) WriteConfig(ctx context.Context, c model.ScrivaConfig) error {
	return repo.WriteJSON(ctx, s.cs, repo.ConfigPath, c)
}

// RulesToContext renders writing rules. Callers merge chapter overrides
// first with WritingRules.ForChapter.
func RulesToContext(r model.WritingRules, lim Limits) string {
	lim = lim.normalize()
	var b strings.Builder
	list := func(label string, items []string) {
		if len(items) > 0 {
			fmt.Fprintf(&b, "%s: %s\n", label, joinTruncated(items, lim.Field))
		}
	}
	line := func(label, v string) {
		if v = Truncate(v, lim.Field); v != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, v)
		}
	}
	list("Tone", r.Tone)
	list("Avoid", r.Avoid)
	list("Prefer", r.Prefer)
	line("POV", r.PovConsistency)
	line("Tense", r.TenseConsistency)
	line("Dialogue", r.DialogueStyle)
	list("Revision focus", r.RevisionFocus)
	line("Instructions", r.CustomInstructions)

	body := strings.TrimRight(b.String(), "\n")
	if body == "" {
		return ""
	}
	return "## Writing Rules\n" + body
}

// MinRejections is how often a pattern must be rejected before it is
// surfaced to the model.
const MinRejections = 2

// LearnedToContext renders repeatedly rejected patterns, capped at the
// preference limit.
func LearnedToContext(ps []model.LearnedPreference, lim Limits) string {
	lim = lim.normalize()
	var b strings.Builder
	n := 0
	for _, p := range ps {
		if p.AuthorResponse != model.ResponseRejected || p.Count < MinRejections {
			continue
		}
		if n == lim.Preferences {
			break
		}
		fmt.Fprintf(&b, "- %s (rejected %dx)", Truncate(p.Pattern, lim.Field), p.Count)
		if p.InferredRule != "" {
			b.WriteString(": " + Truncate(p.InferredRule, lim.Field))
		}
		b.WriteString("\n")
		n++
	}
	if n == 0 {
		return ""
	}
	return "## Author Has Rejected\n" + strings.TrimRight(b.String(), "\n")
}

// LoadBook reads the book configuration and returns the Book it describes.
func (s *Store) LoadBook(ctx context.Context, key model.BookKey) (model.Book, model.ScrivaConfig, error) {
	cfg, err := s.ReadConfig(ctx)
	if err != nil {
		return model.Book{}, cfg, fmt.Errorf("read book config: %w", err)
	}
	return model.NewBook(key, cfg), cfg, nil
}
