package merge

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/rcliao/scriva/internal/model"
)

func TestByID_LockedPromiseSurvives(t *testing.T) {
	current := []model.NarrativePromise{{ID: "p1", Status: "planted", Override: true}}
	incoming := []model.NarrativePromise{{ID: "p1", Status: "paid"}, {ID: "p2", Status: "planted"}}

	got := ByID(current, incoming)

	want := []model.NarrativePromise{
		{ID: "p1", Status: "planted", Override: true},
		{ID: "p2", Status: "planted"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("merged promises mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "paid", incoming[0].Status, "incoming is not modified")
}

func TestByID_ReplacesInPlace(t *testing.T) {
	current := []model.PlotThread{
		{ID: "a", Name: "Heist", Status: "open"},
		{ID: "b", Name: "Betrayal", Status: "open"},
		{ID: "c", Name: "Storm", Status: "open"},
	}
	incoming := []model.PlotThread{{ID: "b", Name: "Betrayal", Status: "resolved"}}

	got := ByID(current, incoming)

	assert.Equal(t, []string{"a", "b", "c"}, ids(got))
	assert.Equal(t, "resolved", got[1].Status)
	assert.Equal(t, "open", current[1].Status, "current is not modified")
}

func TestByID_WholeEntityReplacement(t *testing.T) {
	current := []model.CharacterNode{{ID: "c1", Name: "Mara", Traits: []string{"loyal"}, Description: "Captain"}}
	incoming := []model.CharacterNode{{ID: "c1", Name: "Mara"}}

	got := ByID(current, incoming)

	assert.Empty(t, got[0].Traits)
	assert.Empty(t, got[0].Description)
}

func TestByID_NoDuplicateIDs(t *testing.T) {
	incoming := []model.PlaceNode{{ID: "x", Name: "first"}, {ID: "x", Name: "second"}}

	got := ByID(nil, incoming)

	assert.Len(t, got, 1)
	assert.Equal(t, "second", got[0].Name)
}

func TestByID_OverrideInvariance(t *testing.T) {
	locked := model.CharacterNode{ID: "c1", Name: "Mara", Role: "protagonist", Alive: true, Override: true}
	state := []model.CharacterNode{locked, {ID: "c2", Name: "Oren"}}

	updates := [][]model.CharacterNode{
		{{ID: "c1", Name: "Mara", Alive: false}},
		{{ID: "c1", Name: "Someone else", Role: "minor"}, {ID: "c3", Name: "Ilse"}},
		{{ID: "c2", Name: "Oren the Younger"}, {ID: "c1"}},
	}
	for _, u := range updates {
		state = ByID(state, u)
	}

	if diff := cmp.Diff(locked, state[0]); diff != "" {
		t.Errorf("locked entity changed (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"c1", "c2", "c3"}, ids(state))
}

func TestByID_Idempotent(t *testing.T) {
	current := []model.TimelineEvent{{ID: "e1", Description: "Departure"}, {ID: "e2", Description: "Storm", Override: true}}
	incoming := []model.TimelineEvent{{ID: "e1", Description: "Early departure"}, {ID: "e2"}, {ID: "e3", Description: "Landfall"}}

	once := ByID(current, incoming)
	twice := ByID(once, incoming)

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second merge changed result (-once +twice):\n%s", diff)
	}
}

func TestSingleton(t *testing.T) {
	t.Run("replaces unlocked", func(t *testing.T) {
		in := model.NarrativeState{CurrentPoint: "after the storm"}
		got := Singleton(model.NarrativeState{CurrentPoint: "before"}, &in)
		assert.Equal(t, "after the storm", got.CurrentPoint)
	})
	t.Run("keeps locked", func(t *testing.T) {
		cur := model.VoiceProfile{Summary: "spare", Override: true}
		in := model.VoiceProfile{Summary: "lush"}
		got := Singleton(cur, &in)
		assert.Equal(t, cur, got)
	})
	t.Run("nil incoming", func(t *testing.T) {
		cur := model.NarrativeState{CurrentPoint: "x"}
		assert.Equal(t, cur, Singleton[model.NarrativeState](cur, nil))
	})
}

func TestTension_KeyedByChapter(t *testing.T) {
	current := []model.TensionData{
		{ChapterID: "ch1", TensionLevel: 3},
		{ChapterID: "ch2", TensionLevel: 5, Override: true},
	}
	incoming := []model.TensionData{
		{ChapterID: "ch1", TensionLevel: 4},
		{ChapterID: "ch2", TensionLevel: 9},
		{ChapterID: "ch3", TensionLevel: 7},
	}

	got := Tension(current, incoming)

	assert.Equal(t, []int{4, 5, 7}, []int{got[0].TensionLevel, got[1].TensionLevel, got[2].TensionLevel})
}

func TestWorld(t *testing.T) {
	current := model.WorldModel{
		Characters: []model.CharacterNode{{ID: "c1", Name: "Mara", Override: true}},
		Rules:      []model.WorldRule{{ID: "r1", Rule: "Iron sinks"}},
	}
	incoming := model.WorldModel{
		Characters: []model.CharacterNode{{ID: "c1", Name: "Renamed"}},
		Places:     []model.PlaceNode{{ID: "p1", Name: "Harbor"}},
	}

	got := World(current, incoming)

	assert.Equal(t, "Mara", got.Characters[0].Name)
	assert.Len(t, got.Places, 1)
	assert.Equal(t, current.Rules, got.Rules)
}

func TestObservePreference(t *testing.T) {
	t0 := time.UnixMilli(1000)
	t1 := time.UnixMilli(2000)

	prefs := ObservePreference(nil, "adverbs", model.ResponseRejected, t0)
	prefs = ObservePreference(prefs, "adverbs", model.ResponseRejected, t1)
	assert.Len(t, prefs, 1)
	assert.Equal(t, 2, prefs[0].Count)
	assert.Equal(t, int64(2000), prefs[0].LastSeen)

	flipped := ObservePreference(prefs, "adverbs", model.ResponseAccepted, t1)
	assert.Equal(t, 3, flipped[0].Count)
	assert.Equal(t, model.ResponseAccepted, flipped[0].AuthorResponse)
	assert.Equal(t, model.ResponseRejected, prefs[0].AuthorResponse, "input is not modified")
}

func ids[T model.Entity](xs []T) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = x.EntityID()
	}
	return out
}
