package models

import (
	"time"

	"gorm.io/gorm"
)

// ScanStatus is the Library.ScanStatus enum (spec.md §3).
type ScanStatus string

const (
	ScanStatusIdle           ScanStatus = "idle"
	ScanStatusScanRequested  ScanStatus = "scan_requested"
	ScanStatusScanning       ScanStatus = "scanning"
)

// Library is identified by a URL-safe slug, not a surrogate id — the slug
// is the natural key operators type on the CLI (spec.md §3).
type Library struct {
	Slug         string         `gorm:"column:slug;primaryKey" json:"slug"`
	Name         string         `gorm:"column:name;not null" json:"name"`
	SourceRoot   string         `gorm:"column:source_root;not null" json:"source_root"`
	Active       bool           `gorm:"column:active;not null;default:true" json:"active"`
	ScanStatus   ScanStatus     `gorm:"column:scan_status;not null;default:'idle'" json:"scan_status"`
	TargetModelID *uint64       `gorm:"column:target_model_id" json:"target_model_id,omitempty"`
	TargetModel  *AIModel       `gorm:"constraint:OnDelete:SET NULL;foreignKey:TargetModelID;references:ID" json:"target_model,omitempty"`

	CreatedAt time.Time      `gorm:"column:created_at;not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"deleted_at,omitempty"`
}

func (Library) TableName() string { return "library" }
