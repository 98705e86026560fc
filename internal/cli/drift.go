package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/scriva/internal/model"
	"github.com/rcliao/scriva/internal/state"
)

func init() {
	cmd := &cobra.Command{
		Use:   "drift",
		Short: "Record or show voice drift measurements",
		Long: "With --chapter, append a drift measurement for that chapter. Without it, show the " +
			"most recent measurements.",
		Run: runDrift,
	}

	cmd.Flags().String("chapter", "", "Chapter the measurement is for")
	cmd.Flags().Float64("score", 0, "Drift score, 0 means on-voice")
	cmd.Flags().String("notes", "", "What drifted")
	cmd.Flags().IntP("last", "n", 5, "How many recent measurements to show")

	RootCmd.AddCommand(cmd)
}

func runDrift(cmd *cobra.Command, args []string) {
	chapter, _ := cmd.Flags().GetString("chapter")
	score, _ := cmd.Flags().GetFloat64("score")
	notes, _ := cmd.Flags().GetString("notes")
	last, _ := cmd.Flags().GetInt("last")

	if score < 0 {
		exitErr("drift", fmt.Errorf("score must not be negative, got %v", score))
	}

	s := openSession(true)
	defer s.Close()

	var rec *model.DriftReport
	if chapter != "" {
		rec = &model.DriftReport{ChapterID: chapter, Score: score, Notes: notes}
	}
	ds, err := recordDrift(cmd.Context(), s.store(), rec, last)
	if err != nil {
		exitErr("drift", err)
	}

	if formatFlag == "text" {
		fmt.Println(state.DriftToContext(ds, 0, state.DefaultLimits()))
		return
	}
	printJSON(ds)
}

// recordDrift appends rec when set and returns the last n reports.
func recordDrift(ctx context.Context, st *state.Store, rec *model.DriftReport, n int) ([]model.DriftReport, error) {
	if rec != nil {
		if err := st.AppendDrift(ctx, *rec); err != nil {
			return nil, err
		}
	}
	ds, err := st.ReadDrift(ctx)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(ds) > n {
		ds = ds[len(ds)-n:]
	}
	return ds, nil
}
