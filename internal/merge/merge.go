// Package merge reconciles AI-proposed updates into persisted book state.
//
// Replacement is whole-entity and keyed by id. An existing entity marked
// `_override` is never replaced; unknown ids are appended. Existing order is
// preserved and ids stay unique.
package merge

import (
	"time"

	"github.com/rcliao/scriva/internal/model"
)

// ByID merges incoming into current and returns the new collection.
// current is not modified.
func ByID[T model.Entity](current, incoming []T) []T {
	out := make([]T, len(current), len(current)+len(incoming))
	copy(out, current)

	index := make(map[string]int, len(out))
	for i, e := range out {
		if _, seen := index[e.EntityID()]; !seen {
			index[e.EntityID()] = i
		}
	}
	for _, e := range incoming {
		i, ok := index[e.EntityID()]
		if !ok {
			index[e.EntityID()] = len(out)
			out = append(out, e)
			continue
		}
		if out[i].Locked() {
			continue
		}
		out[i] = e
	}
	return out
}

// Lockable is a singleton the author can pin.
type Lockable interface {
	Locked() bool
}

// Singleton returns incoming unless current is locked. A nil incoming
// leaves current in place.
func Singleton[T Lockable](current T, incoming *T) T {
	if incoming == nil || current.Locked() {
		return current
	}
	return *incoming
}

// Tension merges per-chapter tension data keyed by chapter id.
func Tension(current, incoming []model.TensionData) []model.TensionData {
	return ByID(current, incoming)
}

// ObservePreference records one author response to pattern. The count only
// grows; the latest response wins.
func ObservePreference(prefs []model.LearnedPreference, pattern, response string, now time.Time) []model.LearnedPreference {
	out := make([]model.LearnedPreference, len(prefs))
	copy(out, prefs)
	for i := range out {
		if out[i].Pattern != pattern {
			continue
		}
		out[i].Count++
		out[i].AuthorResponse = response
		out[i].LastSeen = now.UnixMilli()
		return out
	}
	return append(out, model.LearnedPreference{
		Pattern:        pattern,
		AuthorResponse: response,
		Count:          1,
		LastSeen:       now.UnixMilli(),
	})
}

// World merges each world sub-collection independently.
func World(current, incoming model.WorldModel) model.WorldModel {
	return model.WorldModel{
		Characters: ByID(current.Characters, incoming.Characters),
		Places:     ByID(current.Places, incoming.Places),
		Timeline:   ByID(current.Timeline, incoming.Timeline),
		Objects:    ByID(current.Objects, incoming.Objects),
		Rules:      ByID(current.Rules, incoming.Rules),
	}
}
