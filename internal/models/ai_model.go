package models

// AIModel identifies one (name, version) analyzer build. Uniqueness is on
// the pair, not on the surrogate id, so re-registering the same model
// build is idempotent (spec.md §3).
type AIModel struct {
	ID      uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name    string `gorm:"column:name;not null;uniqueIndex:ai_model_name_version" json:"name"`
	Version string `gorm:"column:version;not null;uniqueIndex:ai_model_name_version" json:"version"`
}

func (AIModel) TableName() string { return "ai_model" }
