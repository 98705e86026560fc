package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/scriva/internal/state"
)

func init() {
	cmd := &cobra.Command{
		Use:   "world",
		Short: "Show the book's world model",
		Run:   runWorld,
	}

	RootCmd.AddCommand(cmd)
}

func runWorld(cmd *cobra.Command, args []string) {
	s := openSession(true)
	defer s.Close()

	w, err := s.store().ReadWorld(cmd.Context())
	if err != nil {
		exitErr("read world", err)
	}

	if formatFlag == "text" {
		fmt.Println(state.WorldToContext(w, state.DefaultLimits()))
		return
	}
	printJSON(w)
}
