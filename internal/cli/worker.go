package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mediasearch/core/internal/worker"
)

// workerFlags are the --library/--all/--once/--verbose/--heartbeat/
// --worker-name flags shared by proxy, video-proxy, ai start, and ai video
// (spec.md §6.1).
type workerFlags struct {
	library    string
	all        bool
	once       bool
	repair     bool
	verbose    bool
	heartbeat  int
	workerName string
}

func registerWorkerFlags(cmd *cobra.Command, f *workerFlags, withRepair bool) {
	cmd.Flags().StringVar(&f.library, "library", "", "library slug to work against")
	cmd.Flags().BoolVar(&f.all, "all", false, "span every active library")
	cmd.Flags().BoolVar(&f.once, "once", false, "process at most one asset then exit")
	cmd.Flags().BoolVar(&f.verbose, "verbose", false, "log every claim/release")
	cmd.Flags().IntVar(&f.heartbeat, "heartbeat", 0, "heartbeat interval in seconds (default: config)")
	cmd.Flags().StringVar(&f.workerName, "worker-name", "", "worker id reported in worker_status (default: hostname-pid)")
	if withRepair {
		cmd.Flags().BoolVar(&f.repair, "repair", false, "reset assets with missing derivatives to pending, then exit")
	}
}

// scope validates --library/--all are used correctly: exactly one of them,
// never both, never neither.
func (f *workerFlags) scope() (string, bool, error) {
	if f.library == "" && !f.all {
		return "", false, fmt.Errorf("one of --library or --all is required")
	}
	if f.library != "" && f.all {
		return "", false, fmt.Errorf("--library and --all are mutually exclusive")
	}
	return f.library, f.all, nil
}

func (f *workerFlags) workerID() string {
	if f.workerName != "" {
		return f.workerName
	}
	host, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

// buildWorkerConfig assembles a worker.Config from the shared flags plus
// process-level defaults (hostname, forensics dir, stage-specific polling).
func (f *workerFlags) buildWorkerConfig(a *app, librarySlug string, all bool) worker.Config {
	host, _ := os.Hostname()
	hb := a.cfg.HeartbeatInterval
	if f.heartbeat > 0 {
		hb = time.Duration(f.heartbeat) * time.Second
	}
	return worker.Config{
		WorkerID:          f.workerID(),
		Hostname:          host,
		LibrarySlug:       librarySlug,
		All:               all,
		Once:              f.once,
		PollInterval:      a.cfg.PollInterval,
		HeartbeatInterval: hb,
		ForensicsDir:      a.cfg.ForensicsDir,
	}
}
