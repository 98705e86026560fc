package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/scriva/internal/proposal"
)

func init() {
	cmd := &cobra.Command{
		Use:   "apply [json]",
		Short: "Merge proposed story-state updates",
		Long: "Merge a JSON object of proposed updates into the book's state. The payload can be a " +
			"positional arg or piped via stdin; surrounding prose and code fences are ignored. " +
			"Malformed payloads change nothing.",
		Run: runApply,
	}

	RootCmd.AddCommand(cmd)
}

func runApply(cmd *cobra.Command, args []string) {
	raw, err := readContent(args, os.Stdin)
	if err != nil {
		exitErr("read stdin", err)
	}
	if strings.TrimSpace(raw) == "" {
		exitErr("apply", fmt.Errorf("updates are required (positional arg or stdin)"))
	}

	s := openSession(true)
	defer s.Close()

	res, err := proposal.NewApplier(s.store(), s.log).ApplyRaw(cmd.Context(), raw)
	if err != nil {
		exitErr("apply", err)
	}
	printJSON(res)
}
