package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/halcyonlabs/saffron/internal/approval"
)

func approveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve <transaction-id>",
		Short: "Approve a transaction's classification",
		Long: `Mark a classified transaction as approved by a human reviewer.
Optionally derive a new classification rule or vendor mapping from the
approved result so future transactions match without the cascade.`,
		Args: cobra.ExactArgs(1),
		RunE: runApprove,
	}

	cmd.Flags().String("by", "", "approver identity (required)")
	cmd.Flags().Bool("create-rule", false, "derive a keyword rule from this transaction")
	cmd.Flags().Bool("update-vendor", false, "upsert the counterparty vendor mapping")
	cmd.Flags().String("notes", "", "free-text notes for the audit trail")
	_ = cmd.MarkFlagRequired("by")

	return cmd
}

func runApprove(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid transaction id %q", args[0])
	}

	approvedBy, _ := cmd.Flags().GetString("by")
	createRule, _ := cmd.Flags().GetBool("create-rule")
	updateVendor, _ := cmd.Flags().GetBool("update-vendor")
	notes, _ := cmd.Flags().GetString("notes")

	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	svc := approval.NewService(store, slog.Default())
	resp, err := svc.Approve(ctx, approval.Request{
		TransactionID:       id,
		ApprovedBy:          approvedBy,
		Notes:               notes,
		CreateRule:          createRule,
		UpdateVendorMapping: updateVendor,
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s (rule_created=%t vendor_mapping_updated=%t)\n",
		resp.Message, resp.RuleCreated, resp.VendorMappingUpdated)
	return nil
}
