package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MediaKind distinguishes the two pipelines assets can take (spec.md §3).
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// AssetStatus is the pipeline-progression enum driving every claim query
// (spec.md §4.1). Terminal states are Completed and Poisoned; Failed is
// transient and must be re-picked unless retry_count exceeds the cap.
type AssetStatus string

const (
	StatusPending        AssetStatus = "pending"
	StatusProcessing     AssetStatus = "processing"
	StatusProxied        AssetStatus = "proxied"
	StatusAnalyzedLight  AssetStatus = "analyzed_light"
	StatusCompleted      AssetStatus = "completed"
	StatusFailed         AssetStatus = "failed"
	StatusPoisoned       AssetStatus = "poisoned"
)

// MaxRetries is the default retry cap referenced by spec.md §4.1 and §8.
// Configurable via the config package; this is the fallback used by tests
// and by callers that construct the lease engine without a config.Config.
const MaxRetries = 5

// Asset is one discovered media file with its pipeline state. The pair
// (LibrarySlug, RelPath) is the upsert key the scanner reconciles against
// (spec.md §3 invariant).
type Asset struct {
	ID          uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	LibrarySlug string      `gorm:"column:library_slug;not null;uniqueIndex:asset_library_relpath" json:"library_slug"`
	RelPath     string      `gorm:"column:rel_path;not null;uniqueIndex:asset_library_relpath" json:"rel_path"`
	Kind        MediaKind   `gorm:"column:kind;not null" json:"kind"`
	MtimeSec    float64     `gorm:"column:mtime_sec;not null" json:"mtime_sec"`
	SizeBytes   int64       `gorm:"column:size_bytes;not null" json:"size_bytes"`
	Status      AssetStatus `gorm:"column:status;not null;index;default:'pending'" json:"status"`

	TagsModelID *uint64 `gorm:"column:tags_model_id;index" json:"tags_model_id,omitempty"`
	FullModelID *uint64 `gorm:"column:full_model_id;index" json:"full_model_id,omitempty"`

	ErrorMessage    string     `gorm:"column:error_message" json:"error_message,omitempty"`
	WorkerID        string     `gorm:"column:worker_id;index" json:"worker_id,omitempty"`
	LeaseExpiresAt  *time.Time `gorm:"column:lease_expires_at;index" json:"lease_expires_at,omitempty"`
	RetryCount      int        `gorm:"column:retry_count;not null;default:0" json:"retry_count"`

	// Video-specific derivatives, relative to data_dir (spec.md §6.2/6.4).
	VideoHeadClipPath   string `gorm:"column:video_head_clip_path" json:"video_head_clip_path,omitempty"`
	SegmentationVersion string `gorm:"column:segmentation_version" json:"segmentation_version,omitempty"`

	// Image-specific derivatives.
	ProxyPath     string `gorm:"column:proxy_path" json:"proxy_path,omitempty"`
	ThumbnailPath string `gorm:"column:thumbnail_path" json:"thumbnail_path,omitempty"`

	// Vision output. Images have no scene concept, so the strict-merge
	// policy of spec.md §4.5.6 applies directly to the asset row instead
	// of to a VideoScene row: Description/Metadata carry the same shape
	// as VideoScene.Description/Metadata (AssetMetadata below).
	Description string         `gorm:"column:description" json:"description,omitempty"`
	Metadata    datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now()" json:"updated_at"`
}

func (Asset) TableName() string { return "asset" }

// AssetMetadata is the decoded shape of Asset.Metadata — identical in
// shape to VideoScene.SceneMetadata, since both undergo the same
// strict-merge vision policy (spec.md §4.5.6).
type AssetMetadata struct {
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	OCRText     string   `json:"ocr_text,omitempty"`
	ModelID     uint64   `json:"model_id,omitempty"`
}

// PreClaimStatus returns the status a claim must be reverted to on
// release/reclaim, based on which stage holds the lease (spec.md §4.1
// "any shutdown/worker error" transitions, §4.5.5 invalidation table).
func (a *Asset) PreClaimStatus() AssetStatus {
	switch a.Status {
	case StatusProcessing:
		// The asset's prior stable status is inferred from what has already
		// been produced: a video/image with no proxy yet reverts to
		// pending; one with a proxy but no tags reverts to proxied; one
		// with tags but no full analysis reverts to analyzed_light.
		switch {
		case a.FullModelID != nil:
			return StatusAnalyzedLight
		case a.TagsModelID != nil:
			return StatusAnalyzedLight
		case a.ProxyPath != "" || a.VideoHeadClipPath != "":
			return StatusProxied
		default:
			return StatusPending
		}
	default:
		return a.Status
	}
}
