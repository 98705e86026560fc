package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/scriva/internal/merge"
	"github.com/rcliao/scriva/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Record the author's response to a suggestion pattern",
		Long: "Record that the author accepted or rejected a kind of suggestion. Patterns rejected " +
			"repeatedly are carried into later briefings.",
		Run: runLearn,
	}

	cmd.Flags().StringP("pattern", "p", "", "The suggestion pattern (required)")
	cmd.Flags().StringP("response", "r", model.ResponseRejected, "Author response: accepted or rejected")
	cmd.Flags().String("rule", "", "Rule inferred from the pattern")

	cmd.MarkFlagRequired("pattern")

	RootCmd.AddCommand(cmd)
}

func runLearn(cmd *cobra.Command, args []string) {
	pattern, _ := cmd.Flags().GetString("pattern")
	response, _ := cmd.Flags().GetString("response")
	rule, _ := cmd.Flags().GetString("rule")

	if response != model.ResponseAccepted && response != model.ResponseRejected {
		exitErr("learn", fmt.Errorf("response must be %q or %q", model.ResponseAccepted, model.ResponseRejected))
	}

	s := openSession(true)
	defer s.Close()
	ctx := cmd.Context()
	st := s.store()

	prefs, err := st.ReadLearned(ctx)
	if err != nil {
		exitErr("read preferences", err)
	}
	prefs = merge.ObservePreference(prefs, pattern, response, time.Now())
	if rule != "" {
		for i := range prefs {
			if prefs[i].Pattern == pattern {
				prefs[i].InferredRule = rule
			}
		}
	}
	if err := st.WriteLearned(ctx, prefs); err != nil {
		exitErr("write preferences", err)
	}

	for _, p := range prefs {
		if p.Pattern == pattern {
			printJSON(p)
		}
	}
}
