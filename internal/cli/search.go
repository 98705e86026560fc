package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/scriva/internal/model"
	"github.com/rcliao/scriva/internal/retrieval"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search indexed passages",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().IntP("top-k", "k", retrieval.DefaultTopK, "Max results")
	cmd.Flags().String("chapters", "", "Comma-separated chapter ids to restrict to")
	cmd.Flags().String("types", "", "Comma-separated chunk types")
	cmd.Flags().String("characters", "", "Comma-separated character names; any match passes")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	topK, _ := cmd.Flags().GetInt("top-k")
	chapters, _ := cmd.Flags().GetString("chapters")
	types, _ := cmd.Flags().GetString("types")
	characters, _ := cmd.Flags().GetString("characters")

	s := openSession(true)
	defer s.Close()

	results, err := s.mustEngine().Search(cmd.Context(), s.key, model.RAGQuery{
		Text: strings.Join(args, " "),
		TopK: topK,
		Filters: model.RAGFilters{
			ChapterIDs: splitList(chapters),
			Types:      splitList(types),
			Characters: splitList(characters),
		},
	})
	if errors.Is(err, retrieval.ErrIndexMismatch) {
		exitErr("search", fmt.Errorf("%w; run 'scriva index' to rebuild", err))
	}
	if err != nil {
		exitErr("search", err)
	}

	if formatFlag != "text" {
		printJSON(results)
		return
	}
	for _, r := range results {
		fmt.Printf("%.3f  %s  [%s]\n%s\n\n", r.Score, r.Chunk.ChapterID, r.Chunk.Type, r.Chunk.Text)
	}
}
