package compiler

import (
	"fmt"
	"strings"

	"github.com/rcliao/scriva/internal/model"
	"github.com/rcliao/scriva/internal/repo"
	"github.com/rcliao/scriva/internal/state"
)

// Section labels, in discovery order.
const (
	LabelBookSummary  = "Book Summary"
	LabelRules        = "Writing Rules"
	LabelVoice        = "Voice Profile"
	LabelExemplars    = "Voice Exemplars"
	LabelAntiPatterns = "Anti-Patterns"
	LabelArc          = "Arc Summary"
	LabelPrevChapter  = "Previous Chapter"
	LabelNextChapter  = "Next Chapter"
	LabelWorld        = "World Model"
	LabelNarrative    = "Narrative State"
	LabelPromisesDue  = "Promises Due"
	LabelResearch     = "Research Notes"
	LabelPassages     = "Relevant Passages"
	LabelLearned      = "Learned Preferences"
)

// passageLimit bounds each retrieved passage in runes.
const passageLimit = 600

// driftShown is how many recent drift reports ride along with the voice profile.
const driftShown = 3

// inputs is everything a compile read, gathered before any section is
// rendered.
type inputs struct {
	task   model.CompileTask
	cfg    model.ScrivaConfig
	limits state.Limits

	summary     string
	rules       model.WritingRules
	voice       model.VoiceProfile
	exemplars   []model.VoiceExemplar
	antiPattern []model.AntiPattern
	drift       []model.DriftReport
	part        model.Part
	arc         string
	prevID      string
	prev        string
	nextID      string
	next        string
	world       model.WorldModel
	narrative   model.Narrative
	citations   []model.Citation
	passages    []model.RAGResult
	learned     []model.LearnedPreference
}

// producer renders one section. Producers run in slice order, which is
// the discovery order the budget fill breaks ties with.
type producer struct {
	label    string
	priority model.Priority
	source   func(in *inputs) string
	render   func(in *inputs) string
}

func fixed(path string) func(*inputs) string {
	return func(*inputs) string { return path }
}

var producers = []producer{
	{LabelBookSummary, model.PriorityCritical, fixed(repo.BookSummaryPath), func(in *inputs) string {
		return state.SummaryToContext(LabelBookSummary, in.summary)
	}},
	{LabelRules, model.PriorityCritical, fixed(repo.RulesPath), func(in *inputs) string {
		return state.RulesToContext(in.rules.ForChapter(in.task.ChapterID), in.limits)
	}},
	{LabelVoice, model.PriorityCritical, fixed(repo.VoiceProfilePath), func(in *inputs) string {
		if !in.cfg.Features.VoiceProfile {
			return ""
		}
		return joinParts(state.VoiceToContext(in.voice, in.limits), state.DriftToContext(in.drift, driftShown, in.limits))
	}},
	{LabelExemplars, model.PriorityHigh, fixed(repo.ExemplarsPath), func(in *inputs) string {
		if !in.cfg.Features.VoiceProfile || !in.task.Type.Drafting() {
			return ""
		}
		return state.ExemplarsToContext(in.exemplars, exemplarTags(in.task.Type), in.limits)
	}},
	{LabelAntiPatterns, model.PriorityHigh, fixed(repo.AntiPatternsPath), func(in *inputs) string {
		if !in.cfg.Features.VoiceProfile || !in.task.Type.Drafting() {
			return ""
		}
		return state.AntiPatternsToContext(in.antiPattern, in.limits)
	}},
	{LabelArc, model.PriorityMedium, func(in *inputs) string { return repo.ArcSummaryPath(in.part.ID) }, func(in *inputs) string {
		if in.part.ID == "" {
			return ""
		}
		heading := LabelArc
		if in.part.Title != "" {
			heading += ": " + in.part.Title
		}
		return state.SummaryToContext(heading, in.arc)
	}},
	{LabelPrevChapter, model.PriorityHigh, func(in *inputs) string { return repo.ChapterSummaryPath(in.prevID) }, func(in *inputs) string {
		if in.prevID == "" {
			return ""
		}
		return state.SummaryToContext(fmt.Sprintf("%s (%s)", LabelPrevChapter, in.prevID), in.prev)
	}},
	{LabelNextChapter, model.PriorityHigh, func(in *inputs) string { return repo.ChapterSummaryPath(in.nextID) }, func(in *inputs) string {
		if in.nextID == "" {
			return ""
		}
		return state.SummaryToContext(fmt.Sprintf("%s (%s)", LabelNextChapter, in.nextID), in.next)
	}},
	{LabelWorld, model.PriorityHigh, fixed(repo.CharactersPath), func(in *inputs) string {
		if !in.cfg.Features.Characters || in.task.ChapterID == "" {
			return ""
		}
		return state.CharactersToContext(in.world.CharactersIn(in.task.ChapterID), in.limits)
	}},
	{LabelNarrative, model.PriorityMedium, fixed(repo.NarrativeStatePath), func(in *inputs) string {
		f := in.cfg.Features
		if !f.NarrativeState && !f.PlotThreads {
			return ""
		}
		return state.NarrativeToContext(in.narrative, in.task.ChapterID, f.NarrativeState, f.PlotThreads, in.limits)
	}},
	{LabelPromisesDue, model.PriorityMedium, fixed(repo.PromisesPath), func(in *inputs) string {
		if !in.cfg.Features.PlotThreads || in.task.ChapterID == "" {
			return ""
		}
		return state.PromisesDueToContext(state.PromisesDue(in.narrative.Promises), in.task.ChapterID, in.limits)
	}},
	{LabelResearch, model.PriorityMedium, fixed(repo.CitationsPath), func(in *inputs) string {
		if !in.cfg.Features.Citations || in.task.Type != model.TaskResearch {
			return ""
		}
		return state.CitationsToContext(in.citations, in.task.ChapterID, in.limits)
	}},
	{LabelPassages, model.PriorityLow, fixed(repo.ChunksPath), func(in *inputs) string {
		return passagesToContext(in.passages)
	}},
	{LabelLearned, model.PriorityLow, fixed(repo.LearnedPath), func(in *inputs) string {
		return state.LearnedToContext(in.learned, in.limits)
	}},
}

// exemplarTags picks the craft tags exemplars are filtered by.
func exemplarTags(t model.TaskType) []string {
	if t == model.TaskEdit {
		return []string{"dialogue", "description"}
	}
	return []string{"dialogue", "description", "narrative"}
}

// joinParts joins the non-empty rendered parts of one section.
func joinParts(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}

func passagesToContext(rs []model.RAGResult) string {
	if len(rs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## " + LabelPassages + "\n")
	for _, r := range rs {
		fmt.Fprintf(&b, "[%s, %s, %.2f]\n%s\n\n", r.Chunk.ChapterID, r.Chunk.Type, r.Score,
			state.Truncate(r.Context, passageLimit))
	}
	return strings.TrimRight(b.String(), "\n")
}
