package entities

import (
	"time"
)

// Rating verdicts a book can receive from the rating UI.
const (
	RatingYes  = "yes"
	RatingNo   = "no"
	RatingSkip = "skip"
)

// Rating is a single satisfaction verdict for a book, keyed by the
// book's artifact ID. Re-rating a book overwrites the previous verdict.
type Rating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BookID    string    `gorm:"uniqueIndex;size:64" json:"book_id"`
	Verdict   string    `gorm:"size:8" json:"verdict"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Rating) TableName() string {
	return "ratings"
}

// ValidRatingVerdict reports whether v is one of the accepted verdicts.
func ValidRatingVerdict(v string) bool {
	return v == RatingYes || v == RatingNo || v == RatingSkip
}
