// Package compiler assembles the token-budgeted context briefing handed to
// the model for every AI request.
package compiler

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rcliao/scriva/internal/model"
	"github.com/rcliao/scriva/internal/state"
	"github.com/rcliao/scriva/internal/tokens"
)

// PassageTopK is how many retrieved passages a briefing may carry.
const PassageTopK = 5

// Retriever searches a book's indexed passages.
type Retriever interface {
	Search(ctx context.Context, key model.BookKey, q model.RAGQuery) ([]model.RAGResult, error)
}

// Compiler builds briefings from one book's state.
type Compiler struct {
	st        *state.Store
	retriever Retriever
	log       *zap.Logger

	// Limits bounds the projections of every section.
	Limits state.Limits
}

// New returns a Compiler reading st. retriever may be nil, which disables
// the Relevant Passages section. A nil logger discards.
func New(st *state.Store, retriever Retriever, log *zap.Logger) *Compiler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Compiler{st: st, retriever: retriever, log: log, Limits: state.DefaultLimits()}
}

// Compile gathers every section the task and features call for and fills
// the budget critical-first. Only a failure to read the book summary fails
// the compile; any other failed source is omitted.
func (c *Compiler) Compile(ctx context.Context, task model.CompileTask, cfg model.ScrivaConfig, book model.Book) (model.ContextBriefing, error) {
	log := c.log.With(
		zap.String("compile_id", uuid.NewString()),
		zap.String("task", string(task.Type)),
		zap.String("chapter_id", task.ChapterID),
	)
	budget := BudgetFor(task.Type, cfg)

	in, err := c.gather(ctx, log, task, cfg, book)
	if err != nil {
		return model.ContextBriefing{}, err
	}

	var candidates []model.BriefingSection
	for _, p := range producers {
		content := p.render(in)
		if strings.TrimSpace(content) == "" {
			continue
		}
		candidates = append(candidates, model.BriefingSection{
			Label:    p.label,
			Content:  content,
			Tokens:   tokens.Estimate(content),
			Priority: p.priority,
			Source:   p.source(in),
		})
	}

	b := Fill(candidates, budget)
	log.Info("briefing compiled",
		zap.Int("budget", b.Budget),
		zap.Int("total_tokens", b.TotalTokens),
		zap.Int("sections", len(b.Sections)),
		zap.Int("skipped", len(candidates)-len(b.Sections)),
	)
	return b, nil
}

// Fill accepts sections bucket by bucket in priority order, keeping input
// order within a bucket. A section that would overflow the budget is
// skipped and filling continues with the next one.
func Fill(sections []model.BriefingSection, budget int) model.ContextBriefing {
	out := model.ContextBriefing{Budget: budget, Sections: []model.BriefingSection{}}
	for _, prio := range model.Priorities {
		for _, s := range sections {
			if s.Priority != prio || strings.TrimSpace(s.Content) == "" {
				continue
			}
			if out.TotalTokens+s.Tokens > budget {
				continue
			}
			out.Sections = append(out.Sections, s)
			out.TotalTokens += s.Tokens
		}
	}
	return out
}

// gather performs every read the task needs. Independent reads run
// concurrently; the arc and chapter summaries depend on the resolved part
// and neighbours, which come from the in-memory structure.
func (c *Compiler) gather(ctx context.Context, log *zap.Logger, task model.CompileTask, cfg model.ScrivaConfig, book model.Book) (*inputs, error) {
	in := &inputs{task: task, cfg: cfg, limits: c.Limits}
	f := cfg.Features

	switch {
	case task.ChapterID != "":
		// A chapter missing from the structure falls back to the caller's part.
		if p, ok := book.PartOf(task.ChapterID); ok {
			in.part = p
		} else if task.PartID != "" {
			in.part = partByID(book, task.PartID)
		}
		in.prevID, in.nextID = book.Adjacent(task.ChapterID)
	case task.PartID != "":
		in.part = partByID(book, task.PartID)
	}

	g, gctx := errgroup.WithContext(ctx)

	// optional runs fn and downgrades its failure to an omitted section.
	optional := func(source string, fn func() error) {
		g.Go(func() error {
			if err := fn(); err != nil {
				log.Warn("optional source omitted", zap.String("source", source), zap.Error(err))
			}
			return nil
		})
	}

	g.Go(func() error {
		s, err := c.st.ReadBookSummary(gctx)
		if err != nil {
			return fmt.Errorf("read book summary: %w", err)
		}
		in.summary = s
		return nil
	})
	optional("rules", func() (err error) {
		in.rules, err = c.st.ReadRules(gctx)
		return err
	})
	if f.VoiceProfile {
		optional("voice profile", func() (err error) {
			in.voice, err = c.st.ReadVoiceProfile(gctx)
			return err
		})
		optional("voice drift", func() (err error) {
			in.drift, err = c.st.ReadDrift(gctx)
			return err
		})
		if task.Type.Drafting() {
			optional("exemplars", func() (err error) {
				in.exemplars, err = c.st.ReadExemplars(gctx)
				return err
			})
			optional("anti-patterns", func() (err error) {
				in.antiPattern, err = c.st.ReadAntiPatterns(gctx)
				return err
			})
		}
	}
	if in.part.ID != "" {
		optional("arc summary", func() (err error) {
			in.arc, err = c.st.ReadArcSummary(gctx, in.part.ID)
			return err
		})
	}
	if in.prevID != "" {
		optional("previous chapter summary", func() (err error) {
			in.prev, err = c.st.ReadChapterSummary(gctx, in.prevID)
			return err
		})
	}
	if in.nextID != "" {
		optional("next chapter summary", func() (err error) {
			in.next, err = c.st.ReadChapterSummary(gctx, in.nextID)
			return err
		})
	}
	if f.Characters && task.ChapterID != "" {
		optional("world model", func() (err error) {
			in.world, err = c.st.ReadWorld(gctx)
			return err
		})
	}
	if f.NarrativeState || f.PlotThreads {
		optional("narrative", func() (err error) {
			in.narrative, err = c.st.ReadNarrative(gctx)
			return err
		})
	}
	if f.Citations && task.Type == model.TaskResearch {
		optional("citations", func() (err error) {
			in.citations, err = c.st.ReadCitations(gctx)
			return err
		})
	}
	if q := passageQuery(task); f.RAG && c.retriever != nil && q != "" {
		optional("passages", func() (err error) {
			in.passages, err = c.retriever.Search(gctx, book.Key, model.RAGQuery{
				Text:    q,
				TopK:    PassageTopK,
				Filters: model.RAGFilters{Characters: task.Characters},
			})
			return err
		})
	}
	optional("learned preferences", func() (err error) {
		in.learned, err = c.st.ReadLearned(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return in, nil
}

// partByID returns the structure's part with id, or a bare part when the
// structure does not list it.
func partByID(book model.Book, id string) model.Part {
	for _, p := range book.Parts {
		if p.ID == id {
			return p
		}
	}
	return model.Part{ID: id}
}

func passageQuery(t model.CompileTask) string {
	if q := strings.TrimSpace(t.UserMessage); q != "" {
		return q
	}
	return strings.TrimSpace(t.Selection)
}

// BriefingToPrompt renders a briefing as system-prompt text: a framing
// sentence naming the book, then each section's content, blank-line
// separated.
func BriefingToPrompt(b model.ContextBriefing, bookTitle string) string {
	parts := make([]string, 0, len(b.Sections)+1)
	parts = append(parts, fmt.Sprintf("You are assisting the author of %q. The following is the current state of the book.", bookTitle))
	for _, s := range b.Sections {
		parts = append(parts, s.Content)
	}
	return strings.Join(parts, "\n\n")
}
