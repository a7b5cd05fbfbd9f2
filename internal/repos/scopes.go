// Package repos holds one repository per entity, each a thin, explicit
// wrapper over gorm — the shape the teacher uses throughout internal/repos.
package repos

import "gorm.io/gorm"

// notDeleted is the "hidden rows" pattern from DESIGN NOTES §9: soft-deleted
// libraries are invisible to every normal query, but an explicit
// includeDeleted flag lets `library list --include-deleted` and
// `library restore` see them. The exclude path leaves gorm's own
// soft-delete filter in effect; routing both paths through this one scope
// keeps the include/exclude decision visible at every call site.
func notDeleted(includeDeleted bool) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if includeDeleted {
			return db.Unscoped()
		}
		return db
	}
}
