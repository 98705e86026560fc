package compiler

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rcliao/scriva/internal/model"
	"github.com/rcliao/scriva/internal/repo"
	"github.com/rcliao/scriva/internal/state"
)

var testKey = model.BookKey{Owner: "o", Repo: "r", Branch: "main"}

var errTransport = errors.New("connection reset")

// flakyStore fails reads of the listed paths with a transport error.
type flakyStore struct {
	repo.ContentStore
	failing map[string]bool
}

func (f flakyStore) ReadFile(ctx context.Context, path string) (*repo.File, error) {
	if f.failing[path] {
		return nil, errTransport
	}
	return f.ContentStore.ReadFile(ctx, path)
}

type fakeRetriever struct {
	results []model.RAGResult
	err     error
	queries []model.RAGQuery
}

func (r *fakeRetriever) Search(_ context.Context, _ model.BookKey, q model.RAGQuery) ([]model.RAGResult, error) {
	r.queries = append(r.queries, q)
	return r.results, r.err
}

func allFeatures() model.ScrivaConfig {
	return model.ScrivaConfig{
		Title: "Salt",
		Features: model.ScrivaFeatures{
			Characters:     true,
			VoiceProfile:   true,
			NarrativeState: true,
			PlotThreads:    true,
			RAG:            true,
			Citations:      true,
		},
		ContextBudget: 100000,
		Structure: []model.Part{
			{ID: "part-1", Title: "Departure", Chapters: []model.ChapterRef{{ID: "ch1"}, {ID: "ch2"}}},
			{ID: "part-2", Title: "Open Water", Chapters: []model.ChapterRef{{ID: "ch3"}}},
		},
	}
}

// seed writes a fully populated book and returns its store.
func seed(t *testing.T) *state.Store {
	t.Helper()
	ctx := context.Background()
	st := state.New(repo.NewDirStore(t.TempDir()))

	require.NoError(t, st.WriteBookSummary(ctx, "A crew steals a ship's ledger."))
	require.NoError(t, st.WriteRules(ctx, model.WritingRules{
		Tone: []string{"wry"},
		PerChapterOverrides: map[string]model.WritingRules{
			"ch2": {Tone: []string{"grim"}},
		},
	}))
	require.NoError(t, st.WriteVoiceProfile(ctx, model.VoiceProfile{Summary: "Short sentences, salt-stained imagery."}))
	require.NoError(t, st.WriteExemplars(ctx, []model.VoiceExemplar{
		{ID: "e1", Text: "The sea kept its own counsel.", Tags: []string{"narrative"}, Quality: "signature"},
		{ID: "e2", Text: "\"Row,\" she said.", Tags: []string{"dialogue"}, Quality: "strong"},
	}))
	require.NoError(t, st.WriteAntiPatterns(ctx, []model.AntiPattern{{ID: "a1", Original: "very unique", Reason: "redundant"}}))
	require.NoError(t, st.WriteArcSummary(ctx, "part-1", "The crew assembles."))
	require.NoError(t, st.WriteChapterSummary(ctx, "ch1", "Mara recruits Oren."))
	require.NoError(t, st.WriteChapterSummary(ctx, "ch3", "The storm."))
	require.NoError(t, st.WriteCharacters(ctx, []model.CharacterNode{
		{ID: "c1", Name: "Mara", Role: "protagonist", Alive: true, Appearances: []string{"ch1", "ch2"}},
		{ID: "c2", Name: "Ilse", Role: "minor", Alive: true, Appearances: []string{"ch3"}},
	}))
	require.NoError(t, st.WriteNarrativeState(ctx, model.NarrativeState{CurrentPoint: "The ledger is hidden."}))
	require.NoError(t, st.WritePromises(ctx, []model.NarrativePromise{
		{ID: "p1", Setup: "The locked box", SetupChapter: "ch1", Status: "planted", Urgency: "high"},
	}))
	require.NoError(t, st.WriteTension(ctx, []model.TensionData{
		{ChapterID: "ch1", TensionLevel: 4, EmotionalBeat: "restless"},
		{ChapterID: "ch2", TensionLevel: 7, EmotionalBeat: "dread"},
	}))
	require.NoError(t, st.AppendDrift(ctx, model.DriftReport{ChapterID: "ch1", Score: 0.31, Notes: "sentences running long"}))
	require.NoError(t, st.WriteCitations(ctx, []model.Citation{{Source: "Tide tables", Note: "Spring tides"}}))
	require.NoError(t, st.WriteLearned(ctx, []model.LearnedPreference{
		{Pattern: "adverbs in dialogue tags", AuthorResponse: "rejected", Count: 3},
	}))
	return st
}

func compile(t *testing.T, c *Compiler, task model.CompileTask, cfg model.ScrivaConfig) model.ContextBriefing {
	t.Helper()
	b, err := c.Compile(context.Background(), task, cfg, model.NewBook(testKey, cfg))
	require.NoError(t, err)
	return b
}

func TestBudgetFor(t *testing.T) {
	tests := []struct {
		task     model.TaskType
		override int
		want     int
	}{
		{model.TaskChat, 0, 2000},
		{model.TaskWrite, 0, 4000},
		{model.TaskContinue, 0, 3500},
		{model.TaskEdit, 0, 3000},
		{model.TaskCritique, 0, 5000},
		{model.TaskResearch, 0, 4000},
		{model.TaskRevisionPlan, 0, 6000},
		{"unknown", 0, DefaultBudget},
		{model.TaskChat, 12000, 12000},
		{model.TaskRevisionPlan, 100, 100},
	}
	for _, tt := range tests {
		got := BudgetFor(tt.task, model.ScrivaConfig{ContextBudget: tt.override})
		assert.Equal(t, tt.want, got, "%s with override %d", tt.task, tt.override)
	}
}

func TestCompile_FeaturesOffChatTask(t *testing.T) {
	st := seed(t)
	cfg := model.ScrivaConfig{Title: "Salt", Structure: allFeatures().Structure}
	require.NoError(t, st.WriteLearned(context.Background(), nil))

	b := compile(t, New(st, &fakeRetriever{}, nil), model.CompileTask{Type: model.TaskChat, UserMessage: "hi"}, cfg)

	assert.Equal(t, []string{LabelBookSummary, LabelRules}, b.Labels())
	assert.Equal(t, 2000, b.Budget)
}

func TestCompile_FeaturesOffKeepsLearned(t *testing.T) {
	st := seed(t)
	cfg := model.ScrivaConfig{Title: "Salt", Structure: allFeatures().Structure}

	b := compile(t, New(st, &fakeRetriever{}, nil), model.CompileTask{Type: model.TaskChat, UserMessage: "hi"}, cfg)

	assert.Equal(t, []string{LabelBookSummary, LabelRules, LabelLearned}, b.Labels())
	assert.Contains(t, b.Sections[2].Content, "adverbs in dialogue tags")
}

func TestCompile_PartWithoutChapter(t *testing.T) {
	st := seed(t)
	b := compile(t, New(st, nil, nil), model.CompileTask{Type: model.TaskRevisionPlan, PartID: "part-1"}, allFeatures())

	assert.Contains(t, b.Labels(), LabelArc)
	assert.NotContains(t, b.Labels(), LabelPrevChapter)
	for _, sec := range b.Sections {
		if sec.Label == LabelArc {
			assert.Contains(t, sec.Content, "Departure")
			assert.Contains(t, sec.Content, "The crew assembles.")
		}
	}
}

func TestCompile_TinyBudgetExcludesEverything(t *testing.T) {
	ctx := context.Background()
	st := state.New(repo.NewDirStore(t.TempDir()))
	require.NoError(t, st.WriteBookSummary(ctx, strings.Repeat("x", 40000)))

	cfg := model.ScrivaConfig{ContextBudget: 10}
	b := compile(t, New(st, nil, nil), model.CompileTask{Type: model.TaskChat}, cfg)

	assert.Empty(t, b.Sections)
	assert.NotNil(t, b.Sections)
	assert.Equal(t, 0, b.TotalTokens)
	assert.Equal(t, 10, b.Budget)
}

func TestCompile_SectionOrder(t *testing.T) {
	st := seed(t)
	retriever := &fakeRetriever{results: []model.RAGResult{{
		Chunk:   model.TextChunk{ID: "ch1-0", ChapterID: "ch1", Type: model.ChunkDialogue},
		Score:   0.9,
		Context: "\"Row,\" she said.",
	}}}
	c := New(st, retriever, zaptest.NewLogger(t))

	task := model.CompileTask{Type: model.TaskWrite, ChapterID: "ch2", Characters: []string{"Mara"}, UserMessage: "Draft the escape"}
	b := compile(t, c, task, allFeatures())

	want := []string{
		LabelBookSummary, LabelRules, LabelVoice,
		LabelExemplars, LabelAntiPatterns, LabelPrevChapter, LabelNextChapter, LabelWorld,
		LabelArc, LabelNarrative, LabelPromisesDue,
		LabelPassages, LabelLearned,
	}
	if diff := cmp.Diff(want, b.Labels()); diff != "" {
		t.Errorf("section order mismatch (-want +got):\n%s", diff)
	}

	total := 0
	for _, s := range b.Sections {
		assert.NotEmpty(t, s.Source, s.Label)
		total += s.Tokens
	}
	assert.Equal(t, total, b.TotalTokens)

	require.Len(t, retriever.queries, 1)
	assert.Equal(t, "Draft the escape", retriever.queries[0].Text)
	assert.Equal(t, PassageTopK, retriever.queries[0].TopK)
	assert.Equal(t, []string{"Mara"}, retriever.queries[0].Filters.Characters)
}

func TestCompile_IsDeterministic(t *testing.T) {
	st := seed(t)
	c := New(st, nil, nil)
	task := model.CompileTask{Type: model.TaskContinue, ChapterID: "ch2"}

	first := compile(t, c, task, allFeatures())
	second := compile(t, c, task, allFeatures())

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("compiles differ:\n%s", diff)
	}
}

func TestCompile_SectionContent(t *testing.T) {
	st := seed(t)
	b := compile(t, New(st, nil, nil), model.CompileTask{Type: model.TaskEdit, ChapterID: "ch2"}, allFeatures())

	byLabel := map[string]model.BriefingSection{}
	for _, s := range b.Sections {
		byLabel[s.Label] = s
	}

	assert.Contains(t, byLabel[LabelRules].Content, "Tone: grim", "chapter override applies")
	assert.Contains(t, byLabel[LabelPrevChapter].Content, "Mara recruits Oren.")
	assert.Contains(t, byLabel[LabelNextChapter].Content, "The storm.")
	assert.Contains(t, byLabel[LabelArc].Content, "Departure")
	assert.Contains(t, byLabel[LabelWorld].Content, "Mara")
	assert.NotContains(t, byLabel[LabelWorld].Content, "Ilse", "only characters in the chapter")
	assert.Contains(t, byLabel[LabelPromisesDue].Content, "The locked box")
	assert.Contains(t, byLabel[LabelNarrative].Content, "Tension (ch2): 7/10 dread")
	assert.NotContains(t, byLabel[LabelNarrative].Content, "restless", "only the task chapter's tension")
	assert.Contains(t, byLabel[LabelVoice].Content, "## Voice Drift\n- ch1: 0.31 sentences running long")

	ex := byLabel[LabelExemplars].Content
	assert.Contains(t, ex, "Row", "edit keeps dialogue exemplars")
	assert.NotContains(t, ex, "own counsel", "edit drops narrative exemplars")

	assert.Equal(t, repo.ArcSummaryPath("part-1"), byLabel[LabelArc].Source)
	assert.Equal(t, model.PriorityHigh, byLabel[LabelPrevChapter].Priority)
}

func TestCompile_CritiqueSkipsDraftingSections(t *testing.T) {
	st := seed(t)
	b := compile(t, New(st, nil, nil), model.CompileTask{Type: model.TaskCritique, ChapterID: "ch1"}, allFeatures())

	labels := b.Labels()
	assert.Contains(t, labels, LabelVoice)
	for _, sec := range b.Sections {
		if sec.Label == LabelNarrative {
			assert.Contains(t, sec.Content, "Tension (ch1): 4/10 restless")
		}
	}
	assert.NotContains(t, labels, LabelExemplars)
	assert.NotContains(t, labels, LabelAntiPatterns)
	assert.NotContains(t, labels, LabelPrevChapter, "ch1 has no previous chapter")
	assert.Equal(t, 5000, BudgetFor(model.TaskCritique, model.ScrivaConfig{}))
}

func TestCompile_ResearchNotes(t *testing.T) {
	st := seed(t)
	cfg := allFeatures()

	b := compile(t, New(st, nil, nil), model.CompileTask{Type: model.TaskResearch}, cfg)
	assert.Contains(t, b.Labels(), LabelResearch)

	cfg.Features.Citations = false
	b = compile(t, New(st, nil, nil), model.CompileTask{Type: model.TaskResearch}, cfg)
	assert.NotContains(t, b.Labels(), LabelResearch)
}

func TestCompile_OptionalFailuresDegrade(t *testing.T) {
	st := seed(t)
	flaky := state.New(flakyStore{
		ContentStore: st.Content(),
		failing:      map[string]bool{repo.ExemplarsPath: true, repo.CharactersPath: true},
	})
	retriever := &fakeRetriever{err: errors.New("index unavailable")}

	b := compile(t, New(flaky, retriever, zaptest.NewLogger(t)),
		model.CompileTask{Type: model.TaskWrite, ChapterID: "ch2", UserMessage: "go"}, allFeatures())

	labels := b.Labels()
	assert.NotContains(t, labels, LabelExemplars)
	assert.NotContains(t, labels, LabelWorld)
	assert.NotContains(t, labels, LabelPassages)
	assert.Contains(t, labels, LabelAntiPatterns)
	assert.Contains(t, labels, LabelLearned)
}

func TestCompile_BookSummaryFailureIsFatal(t *testing.T) {
	st := seed(t)
	flaky := state.New(flakyStore{
		ContentStore: st.Content(),
		failing:      map[string]bool{repo.BookSummaryPath: true},
	})

	_, err := New(flaky, nil, nil).Compile(context.Background(),
		model.CompileTask{Type: model.TaskChat}, allFeatures(), model.NewBook(testKey, allFeatures()))

	assert.ErrorIs(t, err, errTransport)
}

func TestCompile_NoQuerySkipsRetriever(t *testing.T) {
	st := seed(t)
	retriever := &fakeRetriever{}

	compile(t, New(st, retriever, nil), model.CompileTask{Type: model.TaskWrite, ChapterID: "ch2"}, allFeatures())

	assert.Empty(t, retriever.queries)
}

func section(label string, prio model.Priority, tokens int) model.BriefingSection {
	return model.BriefingSection{Label: label, Content: label, Priority: prio, Tokens: tokens}
}

func TestFill_SkipAndContinue(t *testing.T) {
	sections := []model.BriefingSection{
		section("low", model.PriorityLow, 2),
		section("crit", model.PriorityCritical, 5),
		section("big-high", model.PriorityHigh, 50),
		section("small-high", model.PriorityHigh, 3),
		section("medium", model.PriorityMedium, 1),
	}

	b := Fill(sections, 10)

	assert.Equal(t, []string{"crit", "small-high", "medium"}, b.Labels())
	assert.Equal(t, 9, b.TotalTokens)
}

func TestFill_DropsBlankSections(t *testing.T) {
	blank := model.BriefingSection{Label: "blank", Content: "  \n", Priority: model.PriorityCritical, Tokens: 1}
	b := Fill([]model.BriefingSection{blank}, 100)
	assert.Empty(t, b.Sections)
	assert.Zero(t, b.TotalTokens)
}

func TestFill_TotalNeverDecreasesWithBudget(t *testing.T) {
	sections := []model.BriefingSection{
		section("a", model.PriorityCritical, 40),
		section("b", model.PriorityCritical, 7),
		section("c", model.PriorityHigh, 25),
		section("d", model.PriorityHigh, 12),
		section("e", model.PriorityMedium, 30),
		section("f", model.PriorityLow, 3),
		section("g", model.PriorityLow, 18),
	}
	prev := 0
	for budget := 0; budget <= 200; budget++ {
		b := Fill(sections, budget)
		assert.LessOrEqual(t, b.TotalTokens, budget)
		assert.GreaterOrEqual(t, b.TotalTokens, prev, "budget %d", budget)
		prev = b.TotalTokens
	}
}

func TestFill_NoFittingHigherPrioritySkipped(t *testing.T) {
	sections := []model.BriefingSection{
		section("c1", model.PriorityCritical, 6),
		section("h1", model.PriorityHigh, 5),
		section("m1", model.PriorityMedium, 2),
		section("l1", model.PriorityLow, 1),
	}
	for budget := 0; budget <= 15; budget++ {
		b := Fill(sections, budget)
		accepted := map[string]bool{}
		for _, s := range b.Sections {
			accepted[s.Label] = true
		}
		used := 0
		for _, s := range sections {
			if accepted[s.Label] {
				used += s.Tokens
				continue
			}
			// Anything skipped must not have fit at the moment it was considered.
			assert.Greater(t, used+s.Tokens, budget, "budget %d skipped %s", budget, s.Label)
		}
	}
}

func TestBriefingToPrompt(t *testing.T) {
	b := model.ContextBriefing{Sections: []model.BriefingSection{
		{Content: "## Book Summary\nA heist."},
		{Content: "## Writing Rules\nTone: wry"},
	}}

	got := BriefingToPrompt(b, "Salt")

	parts := strings.Split(got, "\n\n")
	require.Len(t, parts, 3)
	assert.Contains(t, parts[0], `"Salt"`)
	assert.Equal(t, "## Book Summary\nA heist.", parts[1])
	assert.Equal(t, "## Writing Rules\nTone: wry", parts[2])

	assert.NotContains(t, BriefingToPrompt(model.ContextBriefing{}, "Salt"), "\n\n")
}
