// Package covercache persists resolved cover URLs between pipeline runs
// so covers already found are not fetched again.
package covercache

import (
	"errors"

	"gorm.io/gorm"

	"github.com/strickvl/storygraph-rater/internal/entities"
)

// Repository handles cover-lookup cache operations. It satisfies the
// enrichment scheduler's CoverCache interface.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new cover cache repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Get returns the cached cover URL for a lookup key. found is false for
// keys never resolved, so the caller knows to go to the network.
func (r *Repository) Get(key string) (string, bool, error) {
	var lookup entities.CoverLookup
	err := r.db.Where("key = ?", key).First(&lookup).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return lookup.CoverURL, true, nil
}

// Put stores a resolved cover URL for a lookup key, overwriting any
// earlier entry.
func (r *Repository) Put(key, coverURL string) error {
	var lookup entities.CoverLookup
	result := r.db.Where("key = ?", key).First(&lookup)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		lookup = entities.CoverLookup{
			Key:      key,
			CoverURL: coverURL,
		}
		return r.db.Create(&lookup).Error
	} else if result.Error != nil {
		return result.Error
	}

	lookup.CoverURL = coverURL
	return r.db.Save(&lookup).Error
}
