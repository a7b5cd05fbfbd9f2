package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// project groups assets into named "Project Bins" across library
// boundaries, supplemented from original_source's project/project_assets
// tables (migrations/versions/017_project_and_project_assets.py) — not
// part of spec.md's data model.
var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Group assets into export bins",
}

var projectCreateExportPath string

var projectCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a project bin",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectCreate,
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List project bins",
	Args:  cobra.NoArgs,
	RunE:  runProjectList,
}

var projectAddAssetCmd = &cobra.Command{
	Use:   "add-asset <project-id> <asset-id>",
	Short: "Add an asset to a project bin",
	Args:  cobra.ExactArgs(2),
	RunE:  runProjectAddAsset,
}

var projectRemoveAssetCmd = &cobra.Command{
	Use:   "remove-asset <project-id> <asset-id>",
	Short: "Remove an asset from a project bin",
	Args:  cobra.ExactArgs(2),
	RunE:  runProjectRemoveAsset,
}

var projectPathsCmd = &cobra.Command{
	Use:   "paths <project-id>",
	Short: "Print absolute source paths for every asset in a project bin",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectPaths,
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectCreateCmd, projectListCmd, projectAddAssetCmd, projectRemoveAssetCmd, projectPathsCmd)

	projectCreateCmd.Flags().StringVar(&projectCreateExportPath, "export-path", "", "destination path to associate with the bin")
}

func parseProjectID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid project id %q", s)
	}
	return id, nil
}

func runProjectCreate(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	p, err := a.projects.Create(context.Background(), args[0], projectCreateExportPath)
	if err != nil {
		return fmt.Errorf("project create: %w", err)
	}
	fmt.Printf("created project %d: %s\n", p.ID, p.Name)
	return nil
}

func runProjectList(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	projects, err := a.projects.List(context.Background())
	if err != nil {
		return fmt.Errorf("project list: %w", err)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEXPORT_PATH\tCREATED_AT")
	for _, p := range projects {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.ID, p.Name, p.ExportPath, p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	return w.Flush()
}

func runProjectAddAsset(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	projectID, err := parseProjectID(args[0])
	if err != nil {
		return err
	}
	assetID, err := uuid.Parse(args[1])
	if err != nil {
		return fmt.Errorf("invalid asset id %q", args[1])
	}
	if _, err := a.projects.Get(context.Background(), projectID); err != nil {
		return fmt.Errorf("project %d: %w", projectID, err)
	}
	if _, err := a.assets.Get(context.Background(), assetID); err != nil {
		return fmt.Errorf("asset %s: %w", assetID, err)
	}
	if err := a.projects.AddAsset(context.Background(), projectID, assetID); err != nil {
		return fmt.Errorf("project add-asset: %w", err)
	}
	return nil
}

func runProjectRemoveAsset(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	projectID, err := parseProjectID(args[0])
	if err != nil {
		return err
	}
	assetID, err := uuid.Parse(args[1])
	if err != nil {
		return fmt.Errorf("invalid asset id %q", args[1])
	}
	if err := a.projects.RemoveAsset(context.Background(), projectID, assetID); err != nil {
		return fmt.Errorf("project remove-asset: %w", err)
	}
	return nil
}

func runProjectPaths(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	projectID, err := parseProjectID(args[0])
	if err != nil {
		return err
	}
	if _, err := a.projects.Get(context.Background(), projectID); err != nil {
		return fmt.Errorf("project %d: %w", projectID, err)
	}
	paths, err := a.projects.AssetPaths(context.Background(), projectID)
	if err != nil {
		return fmt.Errorf("project paths: %w", err)
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}
