package proposal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rcliao/scriva/internal/merge"
	"github.com/rcliao/scriva/internal/model"
	"github.com/rcliao/scriva/internal/state"
)

// Result describes what an Apply call changed.
type Result struct {
	Applied    bool     `json:"applied"`
	Targets    []string `json:"targets,omitempty"`
	RevisionID string   `json:"revisionId,omitempty"`
	Reason     string   `json:"reason,omitempty"`
}

// Applier merges proposals into one book's stores.
type Applier struct {
	st  *state.Store
	log *zap.Logger
}

// NewApplier returns an Applier writing through st. A nil logger discards.
func NewApplier(st *state.Store, log *zap.Logger) *Applier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Applier{st: st, log: log}
}

// ApplyRaw parses an AI completion and applies it. Malformed output is a
// no-op reported in Result.Reason, not an error. Store failures, including
// repo.ErrConflict, are returned.
func (a *Applier) ApplyRaw(ctx context.Context, raw string) (Result, error) {
	p, err := Parse(raw)
	if errors.Is(err, ErrMalformed) {
		a.log.Warn("proposal rejected", zap.Error(err))
		return Result{Reason: err.Error()}, nil
	}
	if err != nil {
		return Result{}, err
	}
	return a.Apply(ctx, p)
}

// Apply merges p into the persisted stores it touches and records a
// revision entry. Each store is read fresh and written under its
// just-fetched conflict token; the first failure stops the apply.
func (a *Applier) Apply(ctx context.Context, p Proposal) (Result, error) {
	targets := p.Targets()
	if len(targets) == 0 {
		return Result{Reason: "empty proposal"}, nil
	}

	if err := a.applyWorld(ctx, p); err != nil {
		return Result{}, err
	}
	if err := a.applyNarrative(ctx, p); err != nil {
		return Result{}, err
	}
	if p.VoiceProfile != nil {
		cur, err := a.st.ReadVoiceProfile(ctx)
		if err != nil {
			return Result{}, err
		}
		if err := a.st.WriteVoiceProfile(ctx, merge.Singleton(cur, p.VoiceProfile)); err != nil {
			return Result{}, err
		}
	}

	rev, err := a.st.AppendRevision(ctx, model.RevisionEntry{
		Kind:    "proposal",
		Targets: targets,
		Summary: summarize(p),
	})
	if err != nil {
		return Result{}, fmt.Errorf("record revision: %w", err)
	}
	a.log.Info("proposal applied",
		zap.Strings("targets", targets),
		zap.String("revision_id", rev.ID),
	)
	return Result{Applied: true, Targets: targets, RevisionID: rev.ID}, nil
}

func (a *Applier) applyWorld(ctx context.Context, p Proposal) error {
	if len(p.Characters)+len(p.Places)+len(p.Timeline)+len(p.Objects)+len(p.WorldRules) == 0 {
		return nil
	}
	cur, err := a.st.ReadWorld(ctx)
	if err != nil {
		return err
	}
	next := merge.World(cur, model.WorldModel{
		Characters: p.Characters,
		Places:     p.Places,
		Timeline:   p.Timeline,
		Objects:    p.Objects,
		Rules:      p.WorldRules,
	})
	if len(p.Characters) > 0 {
		if err := a.st.WriteCharacters(ctx, next.Characters); err != nil {
			return err
		}
	}
	if len(p.Places) > 0 {
		if err := a.st.WritePlaces(ctx, next.Places); err != nil {
			return err
		}
	}
	if len(p.Timeline) > 0 {
		if err := a.st.WriteTimeline(ctx, next.Timeline); err != nil {
			return err
		}
	}
	if len(p.Objects) > 0 {
		if err := a.st.WriteObjects(ctx, next.Objects); err != nil {
			return err
		}
	}
	if len(p.WorldRules) > 0 {
		return a.st.WriteWorldRules(ctx, next.Rules)
	}
	return nil
}

func (a *Applier) applyNarrative(ctx context.Context, p Proposal) error {
	if p.NarrativeState != nil {
		cur, err := a.st.ReadNarrativeState(ctx)
		if err != nil {
			return err
		}
		if err := a.st.WriteNarrativeState(ctx, merge.Singleton(cur, p.NarrativeState)); err != nil {
			return err
		}
	}
	if len(p.Promises) > 0 {
		cur, err := a.st.ReadPromises(ctx)
		if err != nil {
			return err
		}
		if err := a.st.WritePromises(ctx, merge.ByID(cur, p.Promises)); err != nil {
			return err
		}
	}
	if len(p.Threads) > 0 {
		cur, err := a.st.ReadThreads(ctx)
		if err != nil {
			return err
		}
		if err := a.st.WriteThreads(ctx, merge.ByID(cur, p.Threads)); err != nil {
			return err
		}
	}
	if len(p.Tension) > 0 {
		cur, err := a.st.ReadTension(ctx)
		if err != nil {
			return err
		}
		if err := a.st.WriteTension(ctx, merge.Tension(cur, p.Tension)); err != nil {
			return err
		}
	}
	return nil
}

func summarize(p Proposal) string {
	var parts []string
	count := func(key string, n int) {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, key))
		}
	}
	count(KeyCharacters, len(p.Characters))
	count(KeyPlaces, len(p.Places))
	count(KeyTimeline, len(p.Timeline))
	count(KeyObjects, len(p.Objects))
	count(KeyWorldRules, len(p.WorldRules))
	count(KeyPromises, len(p.Promises))
	count(KeyThreads, len(p.Threads))
	count(KeyTension, len(p.Tension))
	if p.NarrativeState != nil {
		parts = append(parts, KeyNarrativeState)
	}
	if p.VoiceProfile != nil {
		parts = append(parts, KeyVoiceProfile)
	}
	return "merged " + strings.Join(parts, ", ")
}
