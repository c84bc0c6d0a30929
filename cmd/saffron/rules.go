package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List classification rules",
		RunE:  runRules,
	}

	cmd.Flags().Int("limit", 100, "maximum number of rules to show")
	cmd.Flags().Bool("active-only", false, "show only active rules")

	return cmd
}

func runRules(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	activeOnly, _ := cmd.Flags().GetBool("active-only")

	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	rules, err := store.GetRules(ctx, limit, activeOnly)
	if err != nil {
		return err
	}

	if len(rules) == 0 {
		fmt.Println("no rules found")
		return nil
	}

	fmt.Printf("%-5s %-30s %-10s %-8s %-8s %-8s %s\n",
		"ID", "NAME", "CONF", "PRIO", "MATCHES", "ACCURACY", "ACTIVE")
	for i := range rules {
		r := &rules[i]
		fmt.Printf("%-5d %-30s %-10.2f %-8d %-8d %-8.2f %t\n",
			r.ID, truncate(r.Name, 30), r.Confidence, r.Priority,
			r.MatchCount, r.AccuracyRate(), r.IsActive)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
