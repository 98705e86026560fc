package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/scriva/internal/repo"
)

func init() {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index chapters for passage search",
		Long:  "Re-index every chapter whose manuscript changed since it was last indexed, or one chapter with --chapter.",
		Run:   runIndex,
	}

	cmd.Flags().String("chapter", "", "Index only this chapter")

	RootCmd.AddCommand(cmd)
}

func runIndex(cmd *cobra.Command, args []string) {
	chapter, _ := cmd.Flags().GetString("chapter")

	s := openSession(true)
	defer s.Close()
	ctx := cmd.Context()
	book, _ := s.book(ctx)
	e := s.mustEngine()

	if chapter == "" {
		rep, err := e.IndexBook(ctx, book)
		if err != nil {
			exitErr("index", err)
		}
		printJSON(rep)
		return
	}

	ch, ok := book.Chapter(chapter)
	if !ok {
		exitErr("index", fmt.Errorf("chapter %q is not in the book structure", chapter))
	}
	f, err := s.store().Content().ReadFile(ctx, ch.ManuscriptPath())
	if errors.Is(err, repo.ErrNotFound) {
		exitErr("index", fmt.Errorf("no manuscript at %s", ch.ManuscriptPath()))
	}
	if err != nil {
		exitErr("read manuscript", err)
	}
	n, err := e.IndexChapter(ctx, s.key, chapter, ch.ManuscriptPath(), f.Content)
	if err != nil {
		exitErr("index", err)
	}
	printJSON(map[string]any{"chapterId": chapter, "chunks": n})
}
