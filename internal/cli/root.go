// Package cli implements the administrative command surface of spec.md
// §6.1: library lifecycle, trash emptying, one-shot scans, the proxy/AI
// worker entrypoints, asset inspection, and maintenance sweeps. Every
// subcommand follows the same shape: bootstrap a database connection and
// repos, do one thing, return an error cobra turns into exit code 1.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "mediasearch",
	Short: "Media library indexing and search core",
	Long: `mediasearch is the administrative core of a distributed media-library
indexing and search system: it scans a library's source tree, builds
image/video proxies, drives a pluggable vision pass over the results, and
runs the maintenance sweeps that keep the claim/lease queue healthy.

Every subcommand reads its database and filesystem configuration from the
MEDIA_SEARCH_* environment variables (see the deployment docs); there are
no config flags on the commands themselves.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd creates a new root command (exported for testing).
func NewRootCmd() *cobra.Command {
	return rootCmd
}
