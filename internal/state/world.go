package state

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/rcliao/scriva/internal/model"
	"github.com/rcliao/scriva/internal/repo"
)

// ReadCharacters returns the character collection.
func (s *Store) ReadCharacters(ctx context.Context) ([]model.CharacterNode, error) {
	return repo.ReadJSON(ctx, s.cs, repo.CharactersPath, []model.CharacterNode{})
}

// ReadWorld reads the five world sub-collections concurrently.
func (s *Store) ReadWorld(ctx context.Context) (model.WorldModel, error) {
	var w model.WorldModel
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		w.Characters, err = s.ReadCharacters(gctx)
		return err
	})
	g.Go(func() (err error) {
		w.Places, err = repo.ReadJSON(gctx, s.cs, repo.PlacesPath, []model.PlaceNode{})
		return err
	})
	g.Go(func() (err error) {
		w.Timeline, err = repo.ReadJSON(gctx, s.cs, repo.TimelinePath, []model.TimelineEvent{})
		return err
	})
	g.Go(func() (err error) {
		w.Objects, err = repo.ReadJSON(gctx, s.cs, repo.ObjectsPath, []model.ObjectNode{})
		return err
	})
	g.Go(func() (err error) {
		w.Rules, err = repo.ReadJSON(gctx, s.cs, repo.WorldRulesPath, []model.WorldRule{})
		return err
	})
	if err := g.Wait(); err != nil {
		return model.WorldModel{}, err
	}
	return w, nil
}

func (s *Store) WriteCharacters(ctx context.Context, cs []model.CharacterNode) error {
	return repo.WriteJSON(ctx, s.cs, repo.CharactersPath, nonNil(cs))
}

func (s *Store) WritePlaces(ctx context.Context, ps []model.PlaceNode) error {
	return repo.WriteJSON(ctx, s.cs, repo.PlacesPath, nonNil(ps))
}

func (s *Store) WriteTimeline(ctx context.Context, es []model.TimelineEvent) error {
	return repo.WriteJSON(ctx, s.cs, repo.TimelinePath, nonNil(es))
}

func (s *Store) WriteObjects(ctx context.Context, objs []model.ObjectNode) error {
	return repo.WriteJSON(ctx, s.cs, repo.ObjectsPath, nonNil(objs))
}

func (s *Store) WriteWorldRules(ctx context.Context, rs []model.WorldRule) error {
	return repo.WriteJSON(ctx, s.cs, repo.WorldRulesPath, nonNil(rs))
}

// nonNil keeps empty collections serialised as [] rather than null.
func nonNil[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}

// CharactersToContext renders characters as a bulleted cast list.
func CharactersToContext(chars []model.CharacterNode, lim Limits) string {
	if len(chars) == 0 {
		return ""
	}
	lim = lim.normalize()
	var b strings.Builder
	b.WriteString("## Characters in this chapter\n")
	for _, c := range chars {
		fmt.Fprintf(&b, "- %s", c.Name)
		if len(c.Aliases) > 0 {
			fmt.Fprintf(&b, " (aka %s)", strings.Join(c.Aliases, ", "))
		}
		fmt.Fprintf(&b, " [%s", c.Role)
		if !c.Alive {
			b.WriteString(", deceased")
		}
		b.WriteString("]")
		if d := Truncate(c.Description, lim.Field); d != "" {
			b.WriteString(": " + d)
		}
		if st := Truncate(c.CurrentState, lim.Field); st != "" {
			b.WriteString(" Now: " + st)
		}
		if len(c.Traits) > 0 {
			b.WriteString(" Traits: " + joinTruncated(c.Traits, lim.Field))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// WorldToContext renders the full world model. Empty collections are omitted.
func WorldToContext(w model.WorldModel, lim Limits) string {
	lim = lim.normalize()
	var parts []string
	if len(w.Characters) > 0 {
		parts = append(parts, strings.Replace(CharactersToContext(w.Characters, lim),
			"## Characters in this chapter", "## Characters", 1))
	}
	if len(w.Places) > 0 {
		var b strings.Builder
		b.WriteString("## Places\n")
		for _, p := range w.Places {
			fmt.Fprintf(&b, "- %s: %s\n", p.Name, Truncate(p.Description, lim.Field))
		}
		parts = append(parts, strings.TrimRight(b.String(), "\n"))
	}
	if len(w.Timeline) > 0 {
		var b strings.Builder
		b.WriteString("## Timeline\n")
		for _, e := range w.Timeline {
			fmt.Fprintf(&b, "- %s: %s\n", e.When, Truncate(e.Description, lim.Field))
		}
		parts = append(parts, strings.TrimRight(b.String(), "\n"))
	}
	if len(w.Objects) > 0 {
		var b strings.Builder
		b.WriteString("## Objects\n")
		for _, o := range w.Objects {
			fmt.Fprintf(&b, "- %s: %s", o.Name, Truncate(o.Description, lim.Field))
			if o.Holder != "" {
				fmt.Fprintf(&b, " (held by %s)", o.Holder)
			}
			b.WriteString("\n")
		}
		parts = append(parts, strings.TrimRight(b.String(), "\n"))
	}
	if len(w.Rules) > 0 {
		var b strings.Builder
		b.WriteString("## World Rules\n")
		for _, r := range w.Rules {
			fmt.Fprintf(&b, "- %s\n", Truncate(r.Rule, lim.Field))
		}
		parts = append(parts, strings.TrimRight(b.String(), "\n"))
	}
	return strings.Join(parts, "\n\n")
}
