package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mediasearch/core/internal/apperr"
	"github.com/mediasearch/core/internal/queue"
	"github.com/mediasearch/core/internal/vision"
	"github.com/mediasearch/core/internal/worker"
)

var aiCmd = &cobra.Command{
	Use:   "ai",
	Short: "Run the vision-analysis worker",
}

var aiStartFlags = &workerFlags{}
var aiStartMode string
var aiStartAnalyzer string

var aiStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the image AI worker (light or full pass)",
	Long: `Claims proxied (light mode) or analyzed_light (full mode) image
assets and runs the configured Analyzer over each one's proxy frame
(spec.md §4.5.6). --analyzer selects the Analyzer implementation; only
"mock" exists today, and it is only honored when
MEDIA_SEARCH_ALLOW_MOCK_DEFAULT=1.`,
	Args: cobra.NoArgs,
	RunE: runAIStart,
}

var aiVideoFlags = &workerFlags{}
var aiVideoMode string
var aiVideoAnalyzer string

var aiVideoCmd = &cobra.Command{
	Use:   "video",
	Short: "Run the video AI worker (light or full pass)",
	Long: `Same as ai start, but drives the per-scene light/full vision pass
over a video asset's scenes (spec.md §4.5.6).`,
	Args: cobra.NoArgs,
	RunE: runAIVideo,
}

func init() {
	rootCmd.AddCommand(aiCmd)
	aiCmd.AddCommand(aiStartCmd, aiVideoCmd)

	registerWorkerFlags(aiStartCmd, aiStartFlags, true)
	aiStartCmd.Flags().StringVar(&aiStartMode, "mode", "light", "light or full")
	aiStartCmd.Flags().StringVar(&aiStartAnalyzer, "analyzer", "mock", "analyzer implementation to use")

	registerWorkerFlags(aiVideoCmd, aiVideoFlags, true)
	aiVideoCmd.Flags().StringVar(&aiVideoMode, "mode", "light", "light or full")
	aiVideoCmd.Flags().StringVar(&aiVideoAnalyzer, "analyzer", "mock", "analyzer implementation to use")
}

// resolveAnalyzer builds the requested vision.Analyzer. Only "mock" exists
// (spec.md's vision model itself is explicitly out of scope), gated behind
// MEDIA_SEARCH_ALLOW_MOCK_DEFAULT so it can never silently become a
// production default.
func resolveAnalyzer(a *app, name string) (vision.Analyzer, error) {
	if name != "" && name != "mock" {
		return nil, &apperr.ConfigError{Reason: fmt.Sprintf("unknown analyzer %q; only \"mock\" is available", name)}
	}
	if !a.cfg.AllowMockDefault {
		return nil, &apperr.ConfigError{Reason: "the mock analyzer requires MEDIA_SEARCH_ALLOW_MOCK_DEFAULT=1"}
	}
	return vision.NewMockAnalyzer("mock", "v1"), nil
}

func runAIStart(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	slug, all, err := aiStartFlags.scope()
	if err != nil {
		return err
	}
	if aiStartFlags.repair {
		return runRepair(a, slug, aiStartFlags.verbose)
	}

	analyzer, err := resolveAnalyzer(a, aiStartAnalyzer)
	if err != nil {
		return err
	}
	processor := vision.NewImageProcessor(a.assets, a.libraries, a.sysMeta, a.cfg.DataDir, analyzer, a.log)

	stage, process, err := imageStageFor(aiStartMode, processor)
	if err != nil {
		return err
	}

	cfg := aiStartFlags.buildWorkerConfig(a, slug, all)
	cfg.Stage = stage
	w := worker.New(cfg, a.engine, a.workers, a.sysMeta, process, a.log)
	return w.Run(context.Background())
}

func runAIVideo(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	slug, all, err := aiVideoFlags.scope()
	if err != nil {
		return err
	}
	if aiVideoFlags.repair {
		return runRepair(a, slug, aiVideoFlags.verbose)
	}

	analyzer, err := resolveAnalyzer(a, aiVideoAnalyzer)
	if err != nil {
		return err
	}
	processor := vision.NewVideoProcessor(a.assets, a.libraries, a.sysMeta, a.scenes, a.cfg.DataDir, analyzer, a.log)

	stage, process, err := videoStageFor(aiVideoMode, processor)
	if err != nil {
		return err
	}

	cfg := aiVideoFlags.buildWorkerConfig(a, slug, all)
	cfg.Stage = stage
	w := worker.New(cfg, a.engine, a.workers, a.sysMeta, process, a.log)
	return w.Run(context.Background())
}

func imageStageFor(mode string, p *vision.ImageProcessor) (queue.Stage, worker.Processor, error) {
	switch mode {
	case "light":
		return queue.StageAIImageLight, p.Light(), nil
	case "full":
		return queue.StageAIImageFull, p.Full(), nil
	default:
		return queue.Stage{}, nil, fmt.Errorf("--mode must be \"light\" or \"full\", got %q", mode)
	}
}

func videoStageFor(mode string, p *vision.VideoProcessor) (queue.Stage, worker.Processor, error) {
	switch mode {
	case "light":
		return queue.StageAIVideoLight, p.Light(), nil
	case "full":
		return queue.StageAIVideoFull, p.Full(), nil
	default:
		return queue.Stage{}, nil, fmt.Errorf("--mode must be \"light\" or \"full\", got %q", mode)
	}
}
