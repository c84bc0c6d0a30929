package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/halcyonlabs/saffron/internal/metrics"
)

func accuracyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accuracy",
		Short: "Show per-method classification accuracy",
		RunE:  runAccuracy,
	}
}

func runAccuracy(cmd *cobra.Command, _ []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	report, err := metrics.NewTracker(store).Report(ctx)
	if err != nil {
		return err
	}

	if report.TotalPredictions == 0 {
		fmt.Println("no predictions recorded yet")
		return nil
	}

	fmt.Printf("%-16s %-12s %-10s %-10s %s\n",
		"METHOD", "PREDICTIONS", "APPROVED", "ACCURACY", "MEAN CONF")
	for _, m := range report.Methods {
		fmt.Printf("%-16s %-12d %-10d %-10.2f %.2f\n",
			m.Method, m.Predictions, m.Approvals, m.Accuracy, m.MeanConfidence)
	}
	fmt.Printf("\noverall: %d predictions, %d approvals, %.2f accuracy\n",
		report.TotalPredictions, report.TotalApprovals, report.OverallAccuracy)
	return nil
}
