package entities

import (
	"time"
)

// CoverLookup is a cached cover-URL resolution, so repeated pipeline
// runs don't hammer the metadata API for covers we already found.
// Only successful lookups are cached; misses stay uncached so a later
// run can retry them.
type CoverLookup struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:512" json:"key"`
	CoverURL  string    `gorm:"type:text" json:"cover_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CoverLookup) TableName() string {
	return "cover_lookups"
}
