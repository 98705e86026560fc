package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rcliao/scriva/internal/retrieval"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stale",
		Short: "List chapters whose index is out of date",
		Run:   runStale,
	}

	RootCmd.AddCommand(cmd)
}

func runStale(cmd *cobra.Command, args []string) {
	s := openSession(true)
	defer s.Close()
	ctx := cmd.Context()
	book, _ := s.book(ctx)

	// Staleness only reads the manifest, so no provider is needed.
	e := s.engine()
	if e == nil {
		e = retrieval.NewEngine(s.books, nil, nil, s.log)
	}
	stale, err := e.Stale(ctx, book)
	if err != nil {
		exitErr("stale", err)
	}

	if formatFlag != "text" {
		printJSON(stale)
		return
	}
	if len(stale) == 0 {
		fmt.Println(color.GreenString("all chapters indexed"))
		return
	}
	for _, id := range stale {
		fmt.Printf("%s %s\n", color.RedString("stale"), id)
	}
}
