package proposal

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rcliao/scriva/internal/model"
	"github.com/rcliao/scriva/internal/repo"
	"github.com/rcliao/scriva/internal/state"
)

const (
	mara       = `{"id":"c1","name":"Mara","aliases":[],"role":"protagonist","alive":true,"description":"Captain","currentState":"wounded","traits":["stubborn"],"relationships":[],"appearances":["ch1"]}`
	spareVoice = `{"summary":"spare","metrics":{"avgSentenceLength":11.5,"vocabularyRichness":0.6,"povStyle":"close third","dialogueToNarrationRatio":0.4,"metaphorUsage":"sparse","paragraphRhythm":"short","tenseUsage":"past"},"genreCalibration":"literary","lastUpdated":1700000000000,"analyzedChapters":["ch1"]}`
)

const validPromises = `{"promises":[
  {"id":"p1","setup":"The locked box","setupChapter":"ch1","status":"paid","urgency":"high"},
  {"id":"p2","setup":"The letter","setupChapter":"ch2","status":"planted","urgency":"low"}
]}`

func newTestState(t *testing.T) *state.Store {
	t.Helper()
	r, err := repo.NewSQLiteRepo(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return state.New(r.Book(model.BookKey{Owner: "o", Repo: "r", Branch: "main"}))
}

func TestParse_Valid(t *testing.T) {
	raw := "Here are the updates:\n```json\n" + validPromises + "\n```\nDone."
	p, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, p.Promises, 2)
	assert.Equal(t, "p2", p.Promises[1].ID)
	assert.Equal(t, []string{KeyPromises}, p.Targets())
}

func TestParse_Singletons(t *testing.T) {
	raw := `{"narrativeState":{"currentPoint":"Docked","readerKnows":[],"readerExpects":["a fight"],"dramaticIrony":[]},
	"voiceProfile":` + spareVoice + `}`
	p, err := Parse(raw)
	require.NoError(t, err)
	require.NotNil(t, p.NarrativeState)
	assert.Equal(t, "Docked", p.NarrativeState.CurrentPoint)
	require.NotNil(t, p.VoiceProfile)
	assert.Equal(t, "close third", p.VoiceProfile.Metrics.PovStyle)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no json", "I could not find any updates."},
		{"truncated", `{"promises":[{"id":"p1"`},
		{"unknown key", `{"villains":[]}`},
		{"not an array", `{"promises":{"id":"p1"}}`},
		{"missing field", `{"promises":[{"id":"p1","setup":"x","setupChapter":"ch1","status":"planted"}]}`},
		{"unknown field", `{"worldRules":[{"id":"r1","rule":"x","color":"red"}]}`},
		{"bad enum", `{"promises":[{"id":"p1","setup":"x","setupChapter":"ch1","status":"forgotten","urgency":"low"}]}`},
		{"bad role", `{"characters":[{"id":"c1","name":"Mara","aliases":[],"role":"hero","alive":true,"description":"","currentState":"","traits":[],"relationships":[],"appearances":[]}]}`},
		{"character without appearances", `{"characters":[{"id":"c1","name":"Mara","aliases":[],"role":"protagonist","alive":true,"description":"","currentState":"","traits":[],"relationships":[]}]}`},
		{"empty id", `{"places":[{"id":" ","name":"Harbor","description":"wet","region":"","appearances":[]}]}`},
		{"wrong type", `{"tension":[{"chapterId":"ch1","tensionLevel":"high","pacingNote":"","emotionalBeat":""}]}`},
		{"tension above range", `{"tension":[{"chapterId":"ch1","tensionLevel":11,"pacingNote":"","emotionalBeat":""}]}`},
		{"tension below range", `{"tension":[{"chapterId":"ch1","tensionLevel":0,"pacingNote":"","emotionalBeat":""}]}`},
		{"sets override", `{"worldRules":[{"id":"r1","rule":"x","_override":true}]}`},
		{"partial singleton", `{"narrativeState":{"currentPoint":"x"}}`},
		{"voice without analyzed chapters", `{"voiceProfile":{"summary":"spare","metrics":{"avgSentenceLength":11.5,"vocabularyRichness":0.6,"povStyle":"close third","dialogueToNarrationRatio":0.4,"metaphorUsage":"sparse","paragraphRhythm":"short","tenseUsage":"past"},"genreCalibration":"literary","lastUpdated":1}}`},
		{"partial voice metrics", `{"voiceProfile":{"summary":"spare","metrics":{"povStyle":"close third"},"genreCalibration":"","lastUpdated":1,"analyzedChapters":[]}}`},
		{"array top level", `[{"id":"p1"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestApplyRaw_RespectsOverride(t *testing.T) {
	ctx := context.Background()
	st := newTestState(t)
	require.NoError(t, st.WritePromises(ctx, []model.NarrativePromise{{ID: "p1", Status: "planted", Override: true}}))

	a := NewApplier(st, zaptest.NewLogger(t))
	res, err := a.ApplyRaw(ctx, validPromises)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.NotEmpty(t, res.RevisionID)

	got, err := st.ReadPromises(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.NarrativePromise{ID: "p1", Status: "planted", Override: true}, got[0])
	assert.Equal(t, "p2", got[1].ID)

	log, err := st.ReadRevisionLog(ctx)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, []string{KeyPromises}, log[0].Targets)
}

func TestParse_TensionBounds(t *testing.T) {
	for _, level := range []int{1, 10} {
		raw := fmt.Sprintf(`{"tension":[{"chapterId":"ch1","tensionLevel":%d,"pacingNote":"","emotionalBeat":""}]}`, level)
		p, err := Parse(raw)
		require.NoError(t, err, "level %d", level)
		assert.Equal(t, level, p.Tension[0].TensionLevel)
	}
}

func TestApplyRaw_PartialCharacterKeepsStored(t *testing.T) {
	ctx := context.Background()
	st := newTestState(t)
	stored := model.CharacterNode{ID: "c1", Name: "Mara", Role: "protagonist", Alive: true, Appearances: []string{"ch1", "ch2"}}
	require.NoError(t, st.WriteCharacters(ctx, []model.CharacterNode{stored}))

	a := NewApplier(st, nil)
	res, err := a.ApplyRaw(ctx, `{"characters":[{"id":"c1","name":"Mara","aliases":[],"role":"protagonist","alive":false,"description":"","currentState":"dead","traits":[],"relationships":[]}]}`)
	require.NoError(t, err)
	assert.False(t, res.Applied)

	w, err := st.ReadWorld(ctx)
	require.NoError(t, err)
	require.Len(t, w.Characters, 1)
	assert.Equal(t, []string{"ch1", "ch2"}, w.Characters[0].Appearances)
}

func TestApplyRaw_MalformedIsNoOp(t *testing.T) {
	ctx := context.Background()
	st := newTestState(t)
	before := []model.PlotThread{{ID: "t1", Name: "Heist", Status: "open"}}
	require.NoError(t, st.WriteThreads(ctx, before))

	a := NewApplier(st, nil)
	res, err := a.ApplyRaw(ctx, `{"threads":[{"id":"t1","name":"Heist","status":"closed","chapters":[],"summary":""}]}`)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.NotEmpty(t, res.Reason)

	got, err := st.ReadThreads(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, got)

	log, err := st.ReadRevisionLog(ctx)
	require.NoError(t, err)
	assert.Empty(t, log)
}

func TestApply_WorldTouchesOnlyProposedFiles(t *testing.T) {
	ctx := context.Background()
	st := newTestState(t)
	a := NewApplier(st, nil)

	res, err := a.ApplyRaw(ctx, `{"characters":[`+mara+`]}`)
	require.NoError(t, err)
	require.True(t, res.Applied)

	w, err := st.ReadWorld(ctx)
	require.NoError(t, err)
	require.Len(t, w.Characters, 1)
	assert.Equal(t, []string{"ch1"}, w.Characters[0].Appearances)
	assert.Equal(t, []string{"stubborn"}, w.Characters[0].Traits)

	_, err = st.Content().ReadFile(ctx, repo.PlacesPath)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestApply_Empty(t *testing.T) {
	a := NewApplier(newTestState(t), nil)
	res, err := a.ApplyRaw(context.Background(), `{}`)
	require.NoError(t, err)
	assert.False(t, res.Applied)
}
