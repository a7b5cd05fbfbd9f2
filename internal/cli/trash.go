package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// trashEmptyBatchSize matches spec.md §6.1's "chunked hard-delete (batches
// of 5 000)".
const trashEmptyBatchSize = 5000

var trashCmd = &cobra.Command{
	Use:   "trash",
	Short: "Permanently purge trashed libraries",
}

var trashEmptyCmd = &cobra.Command{
	Use:   "empty <slug>",
	Short: "Permanently delete a trashed library and its assets",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrashEmpty,
}

var trashEmptyAllCmd = &cobra.Command{
	Use:   "empty-all",
	Short: "Permanently delete every trashed library",
	Args:  cobra.NoArgs,
	RunE:  runTrashEmptyAll,
}

var (
	trashForce   bool
	trashVerbose bool
)

func init() {
	rootCmd.AddCommand(trashCmd)
	trashCmd.AddCommand(trashEmptyCmd, trashEmptyAllCmd)

	trashEmptyCmd.Flags().BoolVar(&trashForce, "force", false, "confirm the permanent delete")
	trashEmptyAllCmd.Flags().BoolVar(&trashForce, "force", false, "confirm the permanent delete")
	trashEmptyAllCmd.Flags().BoolVar(&trashVerbose, "verbose", false, "print progress for each library")
}

func runTrashEmpty(cmd *cobra.Command, args []string) error {
	if !trashForce {
		return fmt.Errorf("trash empty: refusing to run without --force")
	}
	a, err := bootstrap()
	if err != nil {
		return err
	}
	return emptyLibrary(context.Background(), a, args[0], true)
}

func runTrashEmptyAll(cmd *cobra.Command, args []string) error {
	if !trashForce {
		return fmt.Errorf("trash empty-all: refusing to run without --force")
	}
	a, err := bootstrap()
	if err != nil {
		return err
	}
	ctx := context.Background()
	libs, err := a.libraries.List(ctx, true)
	if err != nil {
		return err
	}
	for _, l := range libs {
		if !l.DeletedAt.Valid {
			continue
		}
		if err := emptyLibrary(ctx, a, l.Slug, trashVerbose); err != nil {
			return err
		}
	}
	return nil
}

// emptyLibrary requires slug to already be soft-deleted (spec.md §6.1
// implies trash empty only ever targets trashed libraries — a live one
// must go through `library remove` first). It deletes assets in batches of
// trashEmptyBatchSize, then hard-deletes the library row itself.
func emptyLibrary(ctx context.Context, a *app, slug string, verbose bool) error {
	lib, err := requireLibrary(ctx, a, slug, true)
	if err != nil {
		return err
	}
	if !lib.DeletedAt.Valid {
		return fmt.Errorf("library %q is not trashed; run `mediasearch library remove %s` first", slug, slug)
	}

	var total int64
	for {
		n, err := a.assets.DeleteBatchForLibrary(ctx, slug, trashEmptyBatchSize)
		if err != nil {
			return fmt.Errorf("trash empty %q: %w", slug, err)
		}
		total += n
		if verbose {
			fmt.Printf("library %q: deleted %d assets (total %d)\n", slug, n, total)
		}
		if n < int64(trashEmptyBatchSize) {
			break
		}
	}

	if err := a.libraries.HardDelete(ctx, slug); err != nil {
		return fmt.Errorf("trash empty %q: %w", slug, err)
	}
	fmt.Printf("library %q permanently deleted (%d assets)\n", slug, total)
	return nil
}
