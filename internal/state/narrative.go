package state

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/rcliao/scriva/internal/model"
	"github.com/rcliao/scriva/internal/repo"
)

func (s *Store) ReadNarrativeState(ctx context.Context) (model.NarrativeState, error) {
	return repo.ReadJSON(ctx, s.cs, repo.NarrativeStatePath, model.NarrativeState{})
}

func (s *Store) ReadPromises(ctx context.Context) ([]model.NarrativePromise, error) {
	return repo.ReadJSON(ctx, s.cs, repo.PromisesPath, []model.NarrativePromise{})
}

func (s *Store) ReadThreads(ctx context.Context) ([]model.PlotThread, error) {
	return repo.ReadJSON(ctx, s.cs, repo.ThreadsPath, []model.PlotThread{})
}

func (s *Store) ReadTension(ctx context.Context) ([]model.TensionData, error) {
	return repo.ReadJSON(ctx, s.cs, repo.TensionPath, []model.TensionData{})
}

// ReadNarrative reads the four narrative sub-stores concurrently.
func (s *Store) ReadNarrative(ctx context.Context) (model.Narrative, error) {
	var n model.Narrative
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		n.State, err = s.ReadNarrativeState(gctx)
		return err
	})
	g.Go(func() (err error) {
		n.Promises, err = s.ReadPromises(gctx)
		return err
	})
	g.Go(func() (err error) {
		n.Threads, err = s.ReadThreads(gctx)
		return err
	})
	g.Go(func() (err error) {
		n.Tension, err = s.ReadTension(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.Narrative{}, err
	}
	return n, nil
}

func (s *Store) WriteNarrativeState(ctx context.Context, st model.NarrativeState) error {
	return repo.WriteJSON(ctx, s.cs, repo.NarrativeStatePath, st)
}

func (s *Store) WritePromises(ctx context.Context, ps []model.NarrativePromise) error {
	return repo.WriteJSON(ctx, s.cs, repo.PromisesPath, nonNil(ps))
}

func (s *Store) WriteThreads(ctx context.Context, ts []model.PlotThread) error {
	return repo.WriteJSON(ctx, s.cs, repo.ThreadsPath, nonNil(ts))
}

func (s *Store) WriteTension(ctx context.Context, ts []model.TensionData) error {
	return repo.WriteJSON(ctx, s.cs, repo.TensionPath, nonNil(ts))
}

// NarrativeToContext summarises the current point, the tension of chapterID,
// open promises and active threads. Promises and threads are included only
// when withThreads is set.
func NarrativeToContext(n model.Narrative, chapterID string, withState, withThreads bool, lim Limits) string {
	lim = lim.normalize()
	var b strings.Builder

	if withState {
		if cp := Truncate(n.State.CurrentPoint, lim.Field); cp != "" {
			b.WriteString("Current point: " + cp + "\n")
		}
		if t, ok := TensionFor(n.Tension, chapterID); ok {
			b.WriteString(tensionLine(t, lim) + "\n")
		}
		if len(n.State.ReaderKnows) > 0 {
			b.WriteString("Reader knows: " + joinTruncated(n.State.ReaderKnows, lim.Field) + "\n")
		}
		if len(n.State.ReaderExpects) > 0 {
			b.WriteString("Reader expects: " + joinTruncated(n.State.ReaderExpects, lim.Field) + "\n")
		}
		if len(n.State.DramaticIrony) > 0 {
			b.WriteString("Dramatic irony: " + joinTruncated(n.State.DramaticIrony, lim.Field) + "\n")
		}
	}

	if withThreads {
		var open []model.NarrativePromise
		for _, p := range n.Promises {
			if p.Open() {
				open = append(open, p)
			}
		}
		if len(open) > 0 {
			b.WriteString("Open promises:\n")
			for _, p := range open {
				fmt.Fprintf(&b, "- [%s/%s] %s (set up in %s)\n", p.Status, p.Urgency,
					Truncate(p.Setup, lim.Field), p.SetupChapter)
			}
		}
		var active []model.PlotThread
		for _, t := range n.Threads {
			if t.Active() {
				active = append(active, t)
			}
		}
		if len(active) > 0 {
			b.WriteString("Active threads:\n")
			for _, t := range active {
				fmt.Fprintf(&b, "- %s (%s): %s\n", t.Name, t.Status, Truncate(t.Summary, lim.Field))
			}
		}
	}

	body := strings.TrimRight(b.String(), "\n")
	if body == "" {
		return ""
	}
	return "## Narrative State\n" + body
}

// PromisesDue returns the promises that are still owed a payoff and not
// pinned by the author, in stored order.
func PromisesDue(ps []model.NarrativePromise) []model.NarrativePromise {
	var out []model.NarrativePromise
	for _, p := range ps {
		if p.Due() {
			out = append(out, p)
		}
	}
	return out
}

// PromisesDueToContext renders the due promises relative to chapterID.
func PromisesDueToContext(due []model.NarrativePromise, chapterID string, lim Limits) string {
	if len(due) == 0 {
		return ""
	}
	lim = lim.normalize()
	var b strings.Builder
	fmt.Fprintf(&b, "## Promises Due (as of %s)\n", chapterID)
	for _, p := range due {
		fmt.Fprintf(&b, "- %s [%s, urgency %s]", Truncate(p.Setup, lim.Field), p.Status, p.Urgency)
		if p.PayoffChapter != "" {
			fmt.Fprintf(&b, " payoff planned for %s", p.PayoffChapter)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// TensionFor returns the tension reading for chapterID.
func TensionFor(ts []model.TensionData, chapterID string) (model.TensionData, bool) {
	if chapterID == "" {
		return model.TensionData{}, false
	}
	for _, t := range ts {
		if t.ChapterID == chapterID {
			return t, true
		}
	}
	return model.TensionData{}, false
}

func tensionLine(t model.TensionData, lim Limits) string {
	line := fmt.Sprintf("Tension (%s): %d/10", t.ChapterID, t.TensionLevel)
	if beat := Truncate(t.EmotionalBeat, lim.Field); beat != "" {
		line += " " + beat
	}
	if t.PacingNote != "" {
		line += " (" + Truncate(t.PacingNote, lim.Field) + ")"
	}
	return line
}
