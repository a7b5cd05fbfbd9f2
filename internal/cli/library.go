package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mediasearch/core/internal/models"
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage libraries",
	Long: `Register, remove, restore, and list libraries. A library is a
registered source tree (spec.md §3): its slug is the natural key every
other subcommand takes as an argument.`,
}

var libraryAddCmd = &cobra.Command{
	Use:   "add <name> <path>",
	Short: "Register a new library",
	Long: `Register a new library rooted at path. The slug is derived from
name; creation fails if that slug is already in use, including by a
trashed (soft-deleted) library.`,
	Args: cobra.ExactArgs(2),
	RunE: runLibraryAdd,
}

var libraryRemoveCmd = &cobra.Command{
	Use:   "remove <slug>",
	Short: "Soft-delete a library",
	Args:  cobra.ExactArgs(1),
	RunE:  runLibraryRemove,
}

var libraryRestoreCmd = &cobra.Command{
	Use:   "restore <slug>",
	Short: "Undelete a trashed library",
	Args:  cobra.ExactArgs(1),
	RunE:  runLibraryRestore,
}

var libraryListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print a table of registered libraries",
	Args:  cobra.NoArgs,
	RunE:  runLibraryList,
}

var libraryIncludeDeleted bool

func init() {
	rootCmd.AddCommand(libraryCmd)
	libraryCmd.AddCommand(libraryAddCmd, libraryRemoveCmd, libraryRestoreCmd, libraryListCmd)

	libraryListCmd.Flags().BoolVar(&libraryIncludeDeleted, "include-deleted", false, "also list trashed libraries")
}

func runLibraryAdd(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	name, path := args[0], args[1]
	slug := slugify(name)
	if slug == "" {
		return fmt.Errorf("library add: %q does not contain a usable slug", name)
	}

	lib := &models.Library{
		Slug:       slug,
		Name:       name,
		SourceRoot: path,
		Active:     true,
		ScanStatus: models.ScanStatusIdle,
	}
	if err := a.libraries.Create(context.Background(), lib); err != nil {
		return fmt.Errorf("library add: %w", err)
	}
	fmt.Printf("registered library %q (slug=%s, root=%s)\n", name, slug, path)
	return nil
}

func runLibraryRemove(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	slug := args[0]
	if _, err := requireLibrary(context.Background(), a, slug, false); err != nil {
		return err
	}
	if err := a.libraries.SoftDelete(context.Background(), slug); err != nil {
		return fmt.Errorf("library remove: %w", err)
	}
	fmt.Printf("library %q moved to trash\n", slug)
	return nil
}

func runLibraryRestore(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	slug := args[0]
	if err := a.libraries.Restore(context.Background(), slug); err != nil {
		return fmt.Errorf("library %q not found in trash; run `mediasearch library list --include-deleted`", slug)
	}
	fmt.Printf("library %q restored\n", slug)
	return nil
}

func runLibraryList(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	libs, err := a.libraries.List(context.Background(), libraryIncludeDeleted)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SLUG\tNAME\tSOURCE_ROOT\tACTIVE\tSCAN_STATUS\tTRASHED")
	for _, l := range libs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\t%v\n", l.Slug, l.Name, l.SourceRoot, l.Active, l.ScanStatus, l.DeletedAt.Valid)
	}
	return w.Flush()
}
