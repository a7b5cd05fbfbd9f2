package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/mediasearch/core/internal/apperr"
	"github.com/mediasearch/core/internal/config"
	"github.com/mediasearch/core/internal/db"
	"github.com/mediasearch/core/internal/logger"
	"github.com/mediasearch/core/internal/models"
	"github.com/mediasearch/core/internal/queue"
	"github.com/mediasearch/core/internal/repos"
)

// app bundles the database connection and every repo a subcommand might
// need. One is built fresh per command invocation — these are one-shot CLI
// processes, not a long-lived daemon with a shared connection pool.
type app struct {
	cfg *config.Config
	log *logger.Logger
	pg  *db.PostgresService

	assets    repos.AssetRepo
	libraries repos.LibraryRepo
	sysMeta   repos.SystemMetadataRepo
	scenes    repos.VideoSceneRepo
	active    repos.VideoActiveStateRepo
	workers   repos.WorkerStatusRepo
	aiModels  repos.AIModelRepo
	projects  repos.ProjectRepo

	engine *queue.Engine
}

// bootstrap loads configuration, opens the database, runs AutoMigrateAll,
// and wires every repo. Called at the top of every command's RunE.
func bootstrap() (*app, error) {
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	pg, err := db.NewPostgresService(cfg.DatabaseURL, log)
	if err != nil {
		return nil, err
	}
	if err := pg.AutoMigrateAll(); err != nil {
		return nil, err
	}
	gdb := pg.DB()

	a := &app{
		cfg:       cfg,
		log:       log,
		pg:        pg,
		assets:    repos.NewAssetRepo(gdb, log),
		libraries: repos.NewLibraryRepo(gdb, log),
		sysMeta:   repos.NewSystemMetadataRepo(gdb, log),
		scenes:    repos.NewVideoSceneRepo(gdb, log),
		active:    repos.NewVideoActiveStateRepo(gdb, log),
		workers:   repos.NewWorkerStatusRepo(gdb, log),
		aiModels:  repos.NewAIModelRepo(gdb, log),
		projects:  repos.NewProjectRepo(gdb, log),
	}
	a.engine = queue.NewEngine(a.assets, a.libraries, a.sysMeta, log, cfg.LeaseTTL, cfg.MaxRetries)
	return a, nil
}

// requireLibrary resolves slug to a library, turning apperr.ErrNotFound
// into the operator-facing message spec.md §6.1 mandates: "a missing or
// soft-deleted library always fails with 1 and a message suggesting
// `library list`".
func requireLibrary(ctx context.Context, a *app, slug string, includeDeleted bool) (*models.Library, error) {
	lib, err := a.libraries.GetBySlug(ctx, slug, includeDeleted)
	if err == nil {
		return lib, nil
	}
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("library %q not found; run `mediasearch library list` to see available libraries", slug)
	}
	return nil, err
}
