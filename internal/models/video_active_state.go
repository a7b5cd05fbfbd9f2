package models

import (
	"time"

	"github.com/google/uuid"
)

// VideoActiveState is the resumable checkpoint for an in-progress
// segmentation: at most one row per asset, created/updated via UPSERT at
// each scene close, deleted on successful finish (spec.md §3, §4.5.4).
type VideoActiveState struct {
	AssetID uuid.UUID `gorm:"type:uuid;primaryKey" json:"asset_id"`

	AnchorPhash    string  `gorm:"column:anchor_phash;not null" json:"anchor_phash"`
	SceneStartTS   float64 `gorm:"column:scene_start_ts;not null" json:"scene_start_ts"`
	LastCutTS      float64 `gorm:"column:last_cut_ts;not null" json:"last_cut_ts"`

	BestFramePath string  `gorm:"column:best_frame_path" json:"best_frame_path,omitempty"`
	BestFrameTS   float64 `gorm:"column:best_frame_ts" json:"best_frame_ts"`
	BestSharpness float64 `gorm:"column:best_sharpness" json:"best_sharpness"`
	FramesInScene int     `gorm:"column:frames_in_scene;not null;default:0" json:"frames_in_scene"`

	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now()" json:"updated_at"`
}

func (VideoActiveState) TableName() string { return "video_active_state" }
