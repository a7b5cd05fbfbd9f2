package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mediasearch/core/internal/scanner"
)

var scanCmd = &cobra.Command{
	Use:   "scan <slug>",
	Short: "Run a one-shot scan of a library's source tree",
	Long: `Walks slug's source root to completion, upserting every recognized
file and reporting how many tracked files have vanished (spec.md §4.3);
vanished files are counted, not marked. Exits cleanly, returning the
library to idle, on SIGINT/SIGTERM.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

var scanVerbose bool

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolVar(&scanVerbose, "verbose", false, "print per-file scan progress")
}

func runScan(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	slug := args[0]
	if _, err := requireLibrary(context.Background(), a, slug, false); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sc := scanner.New(a.assets, a.libraries, a.log)
	onProgress := func(stats scanner.Stats) {
		if scanVerbose {
			fmt.Printf("\rdirs=%d files=%d created=%d dirtied=%d vanished=%d",
				stats.DirsVisited, stats.FilesSeen, stats.FilesCreated, stats.FilesDirtied, stats.FilesVanished)
		}
	}

	stats, err := sc.Run(ctx, slug, func() bool { return ctx.Err() != nil }, onProgress)
	if scanVerbose {
		fmt.Println()
	}
	if err != nil {
		return fmt.Errorf("scan %q: %w", slug, err)
	}
	fmt.Printf("scan complete: dirs=%d files=%d created=%d dirtied=%d vanished=%d\n",
		stats.DirsVisited, stats.FilesSeen, stats.FilesCreated, stats.FilesDirtied, stats.FilesVanished)
	return nil
}
