package state

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/rcliao/scriva/internal/model"
	"github.com/rcliao/scriva/internal/repo"
)

func (s *Store) ReadVoiceProfile(ctx context.Context) (model.VoiceProfile, error) {
	return repo.ReadJSON(ctx, s.cs, repo.VoiceProfilePath, model.VoiceProfile{})
}

func (s *Store) ReadExemplars(ctx context.Context) ([]model.VoiceExemplar, error) {
	return repo.ReadJSON(ctx, s.cs, repo.ExemplarsPath, []model.VoiceExemplar{})
}

func (s *Store) ReadAntiPatterns(ctx context.Context) ([]model.AntiPattern, error) {
	return repo.ReadJSON(ctx, s.cs, repo.AntiPatternsPath, []model.AntiPattern{})
}

func (s *Store) ReadDrift(ctx context.Context) ([]model.DriftReport, error) {
	return repo.ReadJSON(ctx, s.cs, repo.DriftPath, []model.DriftReport{})
}

func (s *Store) WriteVoiceProfile(ctx context.Context, v model.VoiceProfile) error {
	return repo.WriteJSON(ctx, s.cs, repo.VoiceProfilePath, v)
}

// WriteExemplars overwrites the exemplar list, assigning ids where missing.
func (s *Store) WriteExemplars(ctx context.Context, es []model.VoiceExemplar) error {
	es = slices.Clone(es)
	for i := range es {
		if es[i].ID == "" {
			es[i].ID = NewID(s.now())
		}
	}
	return repo.WriteJSON(ctx, s.cs, repo.ExemplarsPath, nonNil(es))
}

// WriteAntiPatterns overwrites the anti-pattern list, assigning ids where missing.
func (s *Store) WriteAntiPatterns(ctx context.Context, as []model.AntiPattern) error {
	as = slices.Clone(as)
	for i := range as {
		if as[i].ID == "" {
			as[i].ID = NewID(s.now())
		}
	}
	return repo.WriteJSON(ctx, s.cs, repo.AntiPatternsPath, nonNil(as))
}

// AppendDrift records a drift measurement, stamping it if unstamped.
func (s *Store) AppendDrift(ctx context.Context, d model.DriftReport) error {
	drift, err := s.ReadDrift(ctx)
	if err != nil {
		return err
	}
	if d.MeasuredAt == 0 {
		d.MeasuredAt = s.now().UnixMilli()
	}
	return repo.WriteJSON(ctx, s.cs, repo.DriftPath, append(drift, d))
}

// VoiceToContext renders a compact voice profile. An empty profile renders "".
func VoiceToContext(v model.VoiceProfile, lim Limits) string {
	lim = lim.normalize()
	if strings.TrimSpace(v.Summary) == "" && v.Metrics == (model.VoiceMetrics{}) {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Voice Profile\n")
	if sum := Truncate(v.Summary, lim.Field); sum != "" {
		b.WriteString(sum + "\n")
	}
	m := v.Metrics
	if m.PovStyle != "" || m.TenseUsage != "" {
		fmt.Fprintf(&b, "POV: %s. Tense: %s.\n", m.PovStyle, m.TenseUsage)
	}
	if m.AvgSentenceLength > 0 {
		fmt.Fprintf(&b, "Avg sentence length: %.1f words. Dialogue/narration: %.2f.\n",
			m.AvgSentenceLength, m.DialogueToNarrationRatio)
	}
	if m.ParagraphRhythm != "" {
		b.WriteString("Rhythm: " + Truncate(m.ParagraphRhythm, lim.Field) + "\n")
	}
	if m.MetaphorUsage != "" {
		b.WriteString("Metaphor: " + Truncate(m.MetaphorUsage, lim.Field) + "\n")
	}
	if gc := Truncate(v.GenreCalibration, lim.Field); gc != "" {
		b.WriteString("Genre calibration: " + gc + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// SelectExemplars returns up to limit exemplars carrying any of tags,
// best quality first; equal quality keeps stored order.
func SelectExemplars(es []model.VoiceExemplar, tags []string, limit int) []model.VoiceExemplar {
	var out []model.VoiceExemplar
	for _, e := range es {
		if e.HasAnyTag(tags) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].QualityRank() < out[j].QualityRank()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ExemplarsToContext renders the exemplars matching tags.
func ExemplarsToContext(es []model.VoiceExemplar, tags []string, lim Limits) string {
	lim = lim.normalize()
	picked := SelectExemplars(es, tags, lim.Exemplars)
	if len(picked) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Voice Exemplars\n")
	for _, e := range picked {
		fmt.Fprintf(&b, "[%s, %s] %s\n", e.Quality, strings.Join(e.Tags, "/"), Truncate(e.Text, lim.Field))
	}
	return strings.TrimRight(b.String(), "\n")
}

// AntiPatternsToContext renders up to the limit of anti-patterns.
func AntiPatternsToContext(as []model.AntiPattern, lim Limits) string {
	if len(as) == 0 {
		return ""
	}
	lim = lim.normalize()
	if len(as) > lim.AntiPatterns {
		as = as[:lim.AntiPatterns]
	}
	var b strings.Builder
	b.WriteString("## Avoid These Patterns\n")
	for _, a := range as {
		fmt.Fprintf(&b, "- \"%s\"", Truncate(a.Original, lim.Field))
		if a.Correction != "" {
			fmt.Fprintf(&b, " -> \"%s\"", Truncate(a.Correction, lim.Field))
		}
		if a.Reason != "" {
			b.WriteString(": " + Truncate(a.Reason, lim.Field))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// DriftToContext renders the latest n drift measurements.
func DriftToContext(ds []model.DriftReport, n int, lim Limits) string {
	if len(ds) == 0 {
		return ""
	}
	lim = lim.normalize()
	if n > 0 && len(ds) > n {
		ds = ds[len(ds)-n:]
	}
	var b strings.Builder
	b.WriteString("## Voice Drift\n")
	for _, d := range ds {
		fmt.Fprintf(&b, "- %s: %.2f %s\n", d.ChapterID, d.Score, Truncate(d.Notes, lim.Field))
	}
	return strings.TrimRight(b.String(), "\n")
}
