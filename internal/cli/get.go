package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Read a book file",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	cmd.Flags().Bool("history", false, "List every stored version (newest first)")

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	history, _ := cmd.Flags().GetBool("history")
	path := args[0]

	s := openSession(true)
	defer s.Close()
	ctx := cmd.Context()

	if history {
		if s.db == nil {
			exitErr("get", fmt.Errorf("--history needs the database store"))
		}
		versions, err := s.db.History(ctx, s.key, path)
		if err != nil {
			exitErr("history", err)
		}
		printJSON(versions)
		return
	}

	f, err := s.store().Content().ReadFile(ctx, path)
	if err != nil {
		exitErr("get", err)
	}
	if formatFlag == "text" {
		fmt.Print(f.Content)
		return
	}
	printJSON(f)
}
