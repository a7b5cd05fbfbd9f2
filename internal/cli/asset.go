package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mediasearch/core/internal/models"
)

var assetCmd = &cobra.Command{
	Use:   "asset",
	Short: "Inspect assets",
}

var assetListCmd = &cobra.Command{
	Use:   "list <slug>",
	Short: "List assets in a library",
	Args:  cobra.ExactArgs(1),
	RunE:  runAssetList,
}

var (
	assetListStatus string
	assetListLimit  int
)

func init() {
	rootCmd.AddCommand(assetCmd)
	assetCmd.AddCommand(assetListCmd)

	assetListCmd.Flags().StringVar(&assetListStatus, "status", "", "filter by status (pending, processing, proxied, analyzed_light, completed, failed, poisoned)")
	assetListCmd.Flags().IntVar(&assetListLimit, "limit", 100, "maximum rows to print (0 = unlimited)")
}

func runAssetList(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	slug := args[0]
	if _, err := requireLibrary(context.Background(), a, slug, false); err != nil {
		return err
	}

	status := models.AssetStatus(assetListStatus)
	assets, err := a.assets.List(context.Background(), slug, status, assetListLimit)
	if err != nil {
		return fmt.Errorf("asset list %q: %w", slug, err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tSTATUS\tREL_PATH\tRETRIES")
	for _, asset := range assets {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", asset.ID, asset.Kind, asset.Status, asset.RelPath, asset.RetryCount)
	}
	return w.Flush()
}
