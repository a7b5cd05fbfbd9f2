// Package db wires up the single Postgres connection every subcommand
// shares, and owns the auto-migration of the core schema.
package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mediasearch/core/internal/logger"
	"github.com/mediasearch/core/internal/models"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewPostgresService opens DATABASE_URL (spec.md §6.3) and enables the
// uuid-ossp extension surrogate ids rely on for their default generator.
func NewPostgresService(databaseURL string, log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("component", "PostgresService")
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	serviceLog.Info("connecting to postgres")
	gdb, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		serviceLog.Error("failed to connect to postgres", "error", err)
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		serviceLog.Error("failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

// AutoMigrateAll brings the schema up to date with internal/models. Order
// matters only for the foreign-key-bearing tables (Asset/VideoScene
// reference Library/Asset); gorm's AutoMigrate handles ordering for simple
// FK references declared via struct tags.
func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("auto migrating tables")
	err := s.db.AutoMigrate(
		&models.AIModel{},
		&models.SystemMetadata{},
		&models.Library{},
		&models.Asset{},
		&models.VideoScene{},
		&models.VideoActiveState{},
		&models.WorkerStatus{},
		&models.Project{},
		&models.ProjectAsset{},
	)
	if err != nil {
		s.log.Error("auto migration failed", "error", err)
		return err
	}
	return s.ensureSystemMetadata()
}

// ensureSystemMetadata seeds schema_version if absent. default_ai_model_id
// is left for the operator to set once a model has been registered.
func (s *PostgresService) ensureSystemMetadata() error {
	return s.db.Clauses().Exec(`
		INSERT INTO system_metadata (key, value)
		VALUES (?, ?)
		ON CONFLICT (key) DO NOTHING
	`, models.MetaKeySchemaVersion, models.CurrentSchemaVersion).Error
}

func (s *PostgresService) DB() *gorm.DB { return s.db }
