// Package ratings provides database operations for saved book ratings.
//
// # Usage
//
//	repo := ratings.NewRepository(db)
//	err := repo.SetRating("book_12", entities.RatingYes)
package ratings

import (
	"gorm.io/gorm"

	"github.com/strickvl/storygraph-rater/internal/entities"
)

// Repository handles all rating database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new ratings repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// SetRating creates or updates the verdict for a book.
func (r *Repository) SetRating(bookID, verdict string) error {
	var rating entities.Rating
	result := r.db.Where("book_id = ?", bookID).First(&rating)

	if result.Error == gorm.ErrRecordNotFound {
		rating = entities.Rating{
			BookID:  bookID,
			Verdict: verdict,
		}
		return r.db.Create(&rating).Error
	} else if result.Error != nil {
		return result.Error
	}

	rating.Verdict = verdict
	return r.db.Save(&rating).Error
}

// GetRatings returns all saved ratings as a book_id -> verdict map.
func (r *Repository) GetRatings() (map[string]string, error) {
	var all []entities.Rating
	if err := r.db.Find(&all).Error; err != nil {
		return nil, err
	}

	ratings := make(map[string]string, len(all))
	for _, rating := range all {
		ratings[rating.BookID] = rating.Verdict
	}
	return ratings, nil
}

// Count returns the number of rated books.
func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Rating{}).Count(&count).Error
	return count, err
}
