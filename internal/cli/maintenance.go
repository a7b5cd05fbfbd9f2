package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mediasearch/core/internal/maintenance"
)

// staleWorkerAfter and tempFileAfter match the 24h/4h thresholds of
// spec.md §8's maintenance sweeps.
const (
	staleWorkerAfter = 24 * time.Hour
	tempFileAfter    = 4 * time.Hour
)

var maintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "Run administrative sweeps",
}

var maintenanceRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Reclaim expired leases, prune stale workers, and GC temp files",
	Args:  cobra.NoArgs,
	RunE:  runMaintenanceRun,
}

var maintenanceRetryPoisonedCmd = &cobra.Command{
	Use:   "retry-poisoned",
	Short: "Reset poisoned assets back to pending",
	Long: `The only escape hatch from the poison state (spec.md §7): poisoned
assets are never reclaimed automatically, only by this command.`,
	Args: cobra.NoArgs,
	RunE: runMaintenanceRetryPoisoned,
}

var (
	maintenanceDryRun  bool
	maintenanceLibrary string
)

func init() {
	rootCmd.AddCommand(maintenanceCmd)
	maintenanceCmd.AddCommand(maintenanceRunCmd, maintenanceRetryPoisonedCmd)

	maintenanceRunCmd.Flags().BoolVar(&maintenanceDryRun, "dry-run", false, "report what would change without mutating anything")
	maintenanceRunCmd.Flags().StringVar(&maintenanceLibrary, "library", "", "scope the temp-file GC to one library (reclaim/prune are always fleet-wide)")

	maintenanceRetryPoisonedCmd.Flags().BoolVar(&maintenanceDryRun, "dry-run", false, "report how many assets would be reset without resetting them")
	maintenanceRetryPoisonedCmd.Flags().StringVar(&maintenanceLibrary, "library", "", "scope to one library (default: every library)")
}

func runMaintenanceRun(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	sweeper := maintenance.NewSweeper(a.engine, a.assets, a.workers, a.cfg.DataDir, staleWorkerAfter, tempFileAfter, a.log)
	stats, err := sweeper.Run(context.Background(), maintenanceLibrary, maintenanceDryRun)
	if err != nil {
		return fmt.Errorf("maintenance run: %w", err)
	}
	fmt.Printf("leases_reclaimed=%d workers_pruned=%d temp_files_removed=%d temp_bytes_freed=%d\n",
		stats.LeasesReclaimed, stats.WorkersPruned, stats.TempFilesRemoved, stats.TempBytesFreed)
	return nil
}

func runMaintenanceRetryPoisoned(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	sweeper := maintenance.NewSweeper(a.engine, a.assets, a.workers, a.cfg.DataDir, staleWorkerAfter, tempFileAfter, a.log)
	n, err := sweeper.RetryPoisoned(context.Background(), maintenanceLibrary, maintenanceDryRun)
	if err != nil {
		return fmt.Errorf("maintenance retry-poisoned: %w", err)
	}
	if maintenanceDryRun {
		fmt.Printf("would reset %d poisoned assets\n", n)
	} else {
		fmt.Printf("reset %d poisoned assets to pending\n", n)
	}
	return nil
}
