package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CloseReason records why a scene ended (spec.md §4.5.2).
type CloseReason string

const (
	CloseReasonPhash    CloseReason = "phash"
	CloseReasonTemporal CloseReason = "temporal"
	CloseReasonForced   CloseReason = "forced"
)

// VideoScene is one closed, non-overlapping span of a video. Scenes are
// totally ordered within an asset by StartTS (equivalently EndTS) and are
// created atomically as each scene closes (spec.md §3, §4.5.4).
type VideoScene struct {
	ID      uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AssetID uuid.UUID `gorm:"type:uuid;not null;index:video_scene_asset_start" json:"asset_id"`

	StartTS float64 `gorm:"column:start_ts;not null;index:video_scene_asset_start" json:"start_ts"`
	EndTS   float64 `gorm:"column:end_ts;not null" json:"end_ts"`

	RepFramePath string      `gorm:"column:rep_frame_path;not null" json:"rep_frame_path"`
	Sharpness    float64     `gorm:"column:sharpness;not null" json:"sharpness"`
	CloseReason  CloseReason `gorm:"column:close_reason;not null" json:"close_reason"`

	Description string         `gorm:"column:description" json:"description,omitempty"`
	Metadata    datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now()" json:"updated_at"`
}

func (VideoScene) TableName() string { return "video_scene" }

// SceneMetadata is the decoded shape of VideoScene.Metadata, written under
// the strict-merge policy of spec.md §4.5.6.
type SceneMetadata struct {
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	OCRText     string   `json:"ocr_text,omitempty"`
	ModelID     uint64   `json:"model_id,omitempty"`
}
