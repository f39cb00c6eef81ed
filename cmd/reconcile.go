package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"marketplace-sync/core/reconcile"
	"marketplace-sync/feature/links"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for reconcile links command
	reconcileAccount  int64
	reconcileProducts []int64
	dryRunLinks       bool
	yesConfirm        bool
	reconcileActor    string
)

// reconcileCmd is the parent command for all reconcile operations.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile sync tracking records",
	Long: `Reconcile marketplace links against sync status rows to detect pairs
whose status is missing, whose link is missing, or whose status disagrees with the latest link.`,
}

// linksReconcileCmd reports and optionally repairs link/status disagreements.
var linksReconcileCmd = &cobra.Command{
	Use:   "links",
	Short: "Reconcile marketplace links and sync statuses (report + optionally repair)",
	Long: `Reconcile marketplace links and sync statuses for one account.

Reports pairs with a link but no status, a status but no link, and mismatches.
Repairs are written only after confirmation.

Examples:
  # Report only
  reconcile links --account 3 --dry-run

  # Repair with interactive confirmation
  reconcile links --account 3

  # Repair selected products without prompting
  reconcile links --account 3 --product 10,11 --yes`,
	RunE: runLinksReconcile,
}

func init() {
	reconcileCmd.AddCommand(linksReconcileCmd)

	linksReconcileCmd.Flags().Int64Var(&reconcileAccount, "account", 0, "Sync account to reconcile (0 for every account)")
	linksReconcileCmd.Flags().Int64SliceVar(&reconcileProducts, "product", nil, "Limit the run to these product ids")
	linksReconcileCmd.Flags().BoolVar(&dryRunLinks, "dry-run", false, "Force dry-run (no mutations even with --yes)")
	linksReconcileCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm repairs (non-interactive)")
	linksReconcileCmd.Flags().StringVar(&reconcileActor, "actor", "", "Actor recorded on repaired links and audit entries")

	RootCmd.AddCommand(reconcileCmd)
}

func runLinksReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer app.Close()
	l := app.logger

	req := links.ReconcileRequest{
		AccountID:  reconcileAccount,
		ProductIDs: reconcileProducts,
		DryRun:     true,
		Actor:      app.actorOr(reconcileActor),
	}

	// Step 1: Plan (always runs)
	l.Info("Planning reconciliation...")
	planned, err := app.links.Reconcile(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to plan reconciliation: %w", err)
	}

	// Step 2: Print report
	printReconcileReport(l, planned.Plan)

	if len(planned.Plan.Actions) == 0 {
		l.Info("No actions required.")
		return nil
	}
	if dryRunLinks {
		l.Info("Dry-run mode: No changes were made.")
		return nil
	}

	// Step 3: Apply (if confirmed)
	if !confirmRepair() {
		l.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	req.DryRun = false
	req.Confirmed = true
	l.Info("Applying actions...")
	applied, err := app.links.Reconcile(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to apply plan: %w", err)
	}

	l.Info("Successfully executed actions", zap.Int("count", applied.Executed))
	return nil
}

// printReconcileReport prints a formatted reconciliation report using logger.
func printReconcileReport(l *zap.Logger, plan *reconcile.ReconcilePlan) {
	s := plan.Summary

	l.Info("Reconciliation report",
		zap.Int("total_pairs", s.TotalPairs),
		zap.Int("missing_status", s.MissingStatus),
		zap.Int("missing_link", s.MissingLink),
		zap.Int("unlinkable", s.Unlinkable),
		zap.Int("mismatches", s.Mismatches),
	)

	if len(plan.Actions) == 0 {
		return
	}
	l.Info("Planned actions",
		zap.Int("status_actions", s.StatusActions),
		zap.Int("link_actions", s.LinkActions),
		zap.Int("total_actions", len(plan.Actions)),
	)

	maxShow := min(5, len(plan.Actions))
	for _, action := range plan.Actions[:maxShow] {
		l.Info("Sample action",
			zap.String("type", string(action.Type)),
			zap.String("key", action.Key),
			zap.String("reason", action.Reason),
		)
	}
	if len(plan.Actions) > maxShow {
		l.Info("Additional actions not shown", zap.Int("count", len(plan.Actions)-maxShow))
	}
}

// confirmRepair prompts the user for confirmation or uses --yes flag.
func confirmRepair() bool {
	if yesConfirm {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Print("\n⚠️  Type 'yes' to confirm repairs: ")
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	return strings.TrimSpace(response) == "yes"
}
