package state

import (
	"context"
	"strings"

	"github.com/rcliao/scriva/internal/repo"
)

// ReadBookSummary returns the whole-book summary, or "" if none exists.
func (s *Store) ReadBookSummary(ctx context.Context) (string, error) {
	return repo.ReadText(ctx, s.cs, repo.BookSummaryPath)
}

// ReadArcSummary returns the summary of one part.
func (s *Store) ReadArcSummary(ctx context.Context, partID string) (string, error) {
	return repo.ReadText(ctx, s.cs, repo.ArcSummaryPath(partID))
}

// ReadChapterSummary returns the summary of one chapter.
func (s *Store) ReadChapterSummary(ctx context.Context, chapterID string) (string, error) {
	return repo.ReadText(ctx, s.cs, repo.ChapterSummaryPath(chapterID))
}

func (s *Store) WriteBookSummary(ctx context.Context, text string) error {
	return repo.WriteText(ctx, s.cs, repo.BookSummaryPath, text)
}

func (s *Store) WriteArcSummary(ctx context.Context, partID, text string) error {
	return repo.WriteText(ctx, s.cs, repo.ArcSummaryPath(partID), text)
}

func (s *Store) WriteChapterSummary(ctx context.Context, chapterID, text string) error {
	return repo.WriteText(ctx, s.cs, repo.ChapterSummaryPath(chapterID), text)
}

// SummaryToContext renders a markdown summary under a heading.
// Blank summaries render as "".
func SummaryToContext(heading, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return "## " + heading + "\n" + text
}
