package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/halcyonlabs/saffron/internal/model"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [transaction-id...]",
		Short: "Classify transactions through the cascade",
		Long: `Run the classification pipeline over the given transaction ids.

Modes:
  auto   walk rule -> embed -> ml -> llm until one is accepted (default)
  rule   vendor mappings and regex rules only
  embed  embedding similarity only
  ml     statistical classifier only
  llm    generative fallback only`,
		Args: cobra.MinimumNArgs(1),
		RunE: runClassify,
	}

	cmd.Flags().String("mode", "auto", "classification mode (auto, rule, embed, ml, llm)")
	cmd.Flags().Bool("force", false, "reclassify even when a result already exists")

	return cmd
}

func runClassify(cmd *cobra.Command, args []string) error {
	modeStr, _ := cmd.Flags().GetString("mode")
	force, _ := cmd.Flags().GetBool("force")

	mode, err := model.ParseMode(modeStr)
	if err != nil {
		return err
	}

	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, parseErr := strconv.ParseInt(arg, 10, 64)
		if parseErr != nil {
			return fmt.Errorf("invalid transaction id %q", arg)
		}
		ids = append(ids, id)
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	orchestrator, err := buildOrchestrator(store, slog.Default())
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(ids),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Classifying transactions..."),
	)

	var failed int
	for _, id := range ids {
		result, classifyErr := orchestrator.ClassifyTransaction(ctx, id, mode, force)
		_ = bar.Add(1)

		if classifyErr != nil {
			failed++
			if errors.Is(classifyErr, context.Canceled) {
				break
			}
			fmt.Fprintf(os.Stderr, "\ntransaction %d: %v\n", id, classifyErr)
			continue
		}

		fmt.Printf("\n%d  %-16s  %-30s  %.2f\n",
			result.TransactionID, result.Method, result.AccountName, result.Confidence)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d transactions failed", failed, len(ids))
	}
	return nil
}
