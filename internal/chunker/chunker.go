// Package chunker splits chapter manuscripts into tagged chunks for
// retrieval indexing.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rcliao/scriva/internal/model"
	"github.com/rcliao/scriva/internal/tokens"
)

const DefaultMaxTokens = 400

// Options configures chunking behavior.
type Options struct {
	// MaxTokens is the estimated size a chunk may not grow past by
	// accumulation. A single oversized paragraph still forms its own chunk.
	MaxTokens int
}

// DefaultOptions returns default chunking options.
func DefaultOptions() Options {
	return Options{MaxTokens: DefaultMaxTokens}
}

// sceneBreak matches a line holding only a scene-break rule: ***, * * *,
// ---, or an em-dash rule.
var sceneBreak = regexp.MustCompile(`^(?:(?:\*\s*){3,}|-{3,}|—+)$`)

// ChunkChapter chunks content with the default options. world may be nil,
// in which case no characters are tagged.
func ChunkChapter(content, chapterID, source string, world *model.WorldModel) []model.TextChunk {
	return ChunkChapterWith(content, chapterID, source, world, DefaultOptions())
}

// ChunkChapterWith splits content into scenes, then packs each scene's
// paragraphs greedily into chunks. Chunks never span a scene break.
func ChunkChapterWith(content, chapterID, source string, world *model.WorldModel, opts Options) []model.TextChunk {
	if opts.MaxTokens <= 0 {
		opts = DefaultOptions()
	}
	if strings.TrimSpace(content) == "" {
		return nil
	}

	total := utf8.RuneCountInString(content)
	names := castNames(world)

	var out []model.TextChunk
	for _, scene := range splitScenes(content) {
		for _, b := range packParagraphs(scene, opts.MaxTokens) {
			start := utf8.RuneCountInString(content[:b.offset])
			out = append(out, model.TextChunk{
				ID:         fmt.Sprintf("%s-%d", chapterID, len(out)),
				Text:       b.text,
				Tokens:     tokens.Estimate(b.text),
				Source:     source,
				ChapterID:  chapterID,
				Type:       Classify(b.text),
				Characters: tagCharacters(b.text, names),
				Position:   float64(start) / float64(total),
			})
		}
	}
	return out
}

// block is a paragraph or packed chunk plus the byte offset where it starts
// in the chapter.
type block struct {
	text   string
	offset int
}

// splitScenes splits content into scenes of paragraphs. Scene-break lines
// and blank lines are consumed as delimiters.
func splitScenes(content string) [][]block {
	var scenes [][]block
	var paras []block
	var cur []string
	curStart := 0

	flushPara := func() {
		if len(cur) > 0 {
			paras = append(paras, block{text: strings.Join(cur, "\n"), offset: curStart})
			cur = nil
		}
	}
	flushScene := func() {
		flushPara()
		if len(paras) > 0 {
			scenes = append(scenes, paras)
			paras = nil
		}
	}

	offset := 0
	for _, raw := range strings.SplitAfter(content, "\n") {
		line := strings.TrimRight(raw, "\r\n")
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flushPara()
		case sceneBreak.MatchString(trimmed):
			flushScene()
		default:
			if len(cur) == 0 {
				curStart = offset
			}
			cur = append(cur, line)
		}
		offset += len(raw)
	}
	flushScene()
	return scenes
}

// packParagraphs accumulates paragraphs until the next one would push the
// chunk past maxTokens, then starts a new chunk with that paragraph.
func packParagraphs(paras []block, maxTokens int) []block {
	var out []block
	var acc block
	for _, p := range paras {
		if acc.text == "" {
			acc = p
			continue
		}
		combined := acc.text + "\n\n" + p.text
		if tokens.Estimate(combined) > maxTokens {
			out = append(out, acc)
			acc = p
			continue
		}
		acc.text = combined
	}
	if acc.text != "" {
		out = append(out, acc)
	}
	return out
}
