package postgres

import (
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/store"
	"gorm.io/gorm"
)

var flagColumns = map[string]string{
	models.FlagCritical:  "flag_is_critical",
	models.FlagDuplicate: "flag_is_duplicate",
}

// issueFilter returns a GORM scope applying the non-empty parts of f.
func issueFilter(f store.IssueFilter) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.Location != "" {
			db = db.Where("location = ?", f.Location)
		}
		if f.Status != "" {
			db = db.Where("status = ?", string(f.Status))
		}
		if f.ReportedBy != "" {
			db = db.Where("reported_by_id = ?", f.ReportedBy)
		}
		if col, ok := flagColumns[f.Flag]; ok {
			db = db.Where(col+" = ?", true)
		}
		return db
	}
}

func newestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC")
}

func oldestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}
