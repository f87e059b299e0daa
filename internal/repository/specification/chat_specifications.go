package specification

import (
	"gorm.io/gorm"
)

// SelectSummary projects a session row without the messages column. Sidebar
// listings never need full logs and shipping them is the expensive part.
type SelectSummary struct{}

func (s SelectSummary) Apply(db *gorm.DB) *gorm.DB {
	return db.Select("id", "user_id", "title", "created_at", "updated_at")
}
