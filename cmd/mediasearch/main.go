// Command mediasearch is the administrative CLI for the media-library
// indexing and search core: library lifecycle, one-shot scans, the proxy
// and vision worker entrypoints, asset inspection, and maintenance sweeps.
package main

import "github.com/mediasearch/core/internal/cli"

func main() {
	cli.Execute()
}
