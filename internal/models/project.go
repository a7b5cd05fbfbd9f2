package models

import (
	"time"

	"github.com/google/uuid"
)

// Project is a "Project Bin" — a named, unordered grouping of assets an
// operator collects for export, independent of library boundaries
// (original_source/migrations/versions/017_project_and_project_assets.py).
// Not part of spec.md's data model; supplemented here because the
// original ships it as a first-class feature with its own tables.
type Project struct {
	ID         uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name       string    `gorm:"column:name;not null" json:"name"`
	ExportPath string    `gorm:"column:export_path" json:"export_path,omitempty"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;default:now()" json:"created_at"`
}

func (Project) TableName() string { return "project" }

// ProjectAsset is the many-to-many join row between Project and Asset.
// No foreign-key constraint or cascade is declared on it: purging assets
// (trash empty) leaves their rows here, and ProjectRepo.AssetPaths drops
// them through its join with asset.
type ProjectAsset struct {
	ProjectID uint64    `gorm:"column:project_id;primaryKey;not null" json:"project_id"`
	AssetID   uuid.UUID `gorm:"column:asset_id;primaryKey;not null;type:uuid" json:"asset_id"`
}

func (ProjectAsset) TableName() string { return "project_assets" }
