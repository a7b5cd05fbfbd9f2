package models

// SystemMetadata is a plain key/value store. It always carries at least
// "schema_version" (checked by every worker at startup, spec.md §4.2) and
// "default_ai_model_id" (the fallback for libraries with no override,
// spec.md §4.1 "Effective model resolution").
type SystemMetadata struct {
	Key   string `gorm:"column:key;primaryKey" json:"key"`
	Value string `gorm:"column:value" json:"value"`
}

func (SystemMetadata) TableName() string { return "system_metadata" }

const (
	MetaKeySchemaVersion     = "schema_version"
	MetaKeyDefaultAIModelID  = "default_ai_model_id"
)

// CurrentSchemaVersion is the version this build expects. A worker whose
// database disagrees exits immediately (ConfigError, spec.md §7 category 5)
// rather than risk operating against an incompatible schema.
const CurrentSchemaVersion = "1"
