package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mediasearch/core/internal/proxy"
	"github.com/mediasearch/core/internal/queue"
	"github.com/mediasearch/core/internal/video"
	"github.com/mediasearch/core/internal/worker"
)

var proxyFlags = &workerFlags{}

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Run the image proxy/thumbnail worker",
	Long: `Claims pending/failed image assets, reads the source once, and
produces a WebP proxy and JPEG thumbnail (spec.md §4.4). With --repair,
resets assets whose derivative files are missing back to pending and exits
without claiming any work.`,
	Args: cobra.NoArgs,
	RunE: runProxy,
}

var videoProxyFlags = &workerFlags{}

var videoProxyCmd = &cobra.Command{
	Use:   "video-proxy",
	Short: "Run the video proxy/thumbnail/scene worker",
	Long: `Claims pending/failed video assets, produces the 720p transcode,
thumbnail, and head-clip, then drives the Scene Engine's segmentation pass
over the source (spec.md §4.4, §4.5). Same flags as proxy.`,
	Args: cobra.NoArgs,
	RunE: runVideoProxy,
}

func init() {
	rootCmd.AddCommand(proxyCmd, videoProxyCmd)
	registerWorkerFlags(proxyCmd, proxyFlags, true)
	registerWorkerFlags(videoProxyCmd, videoProxyFlags, true)
}

func runProxy(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	slug, all, err := proxyFlags.scope()
	if err != nil {
		return err
	}

	if proxyFlags.repair {
		return runRepair(a, slug, proxyFlags.verbose)
	}

	cascade := proxy.NewImageCascade(a.cfg.DataDir, "ffmpeg", a.cfg.UseRAWPreviews, a.log)
	process := proxy.NewImageProcessor(a.assets, a.libraries, cascade, a.log)

	cfg := proxyFlags.buildWorkerConfig(a, slug, all)
	cfg.Stage = queue.StageImageProxy
	w := worker.New(cfg, a.engine, a.workers, a.sysMeta, process, a.log)
	return w.Run(context.Background())
}

func runVideoProxy(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	slug, all, err := videoProxyFlags.scope()
	if err != nil {
		return err
	}

	if videoProxyFlags.repair {
		return runRepair(a, slug, videoProxyFlags.verbose)
	}

	engine := video.NewEngine(a.scenes, a.active, a.assets, a.cfg, "ffmpeg", "ffprobe", a.log)
	cascade := proxy.NewVideoCascade(a.cfg.DataDir, "ffmpeg", engine, a.log)
	process := proxy.NewVideoProcessor(a.assets, a.libraries, cascade, a.log)

	cfg := videoProxyFlags.buildWorkerConfig(a, slug, all)
	cfg.Stage = queue.StageVideoProxy
	w := worker.New(cfg, a.engine, a.workers, a.sysMeta, process, a.log)
	return w.Run(context.Background())
}

// runRepair implements spec.md §6.1/§5's "--repair" mode: it is only a
// resetter, never a regenerator, so it runs to completion and exits instead
// of entering the claim loop.
func runRepair(a *app, librarySlug string, verbose bool) error {
	r := proxy.NewRepairer(a.assets, a.cfg.DataDir, a.log)
	stats, err := r.Run(context.Background(), librarySlug, false)
	if err != nil {
		return fmt.Errorf("repair: %w", err)
	}
	if verbose {
		fmt.Printf("repair: reset %+v\n", stats)
	} else {
		fmt.Printf("repair complete\n")
	}
	return nil
}
