package repository

import (
	"errors"

	"lexbill/internal/models"

	"gorm.io/gorm"
)

// ClioTokenRepository handles database operations for the Clio OAuth token.
// The application keeps at most one token row at a time.
type ClioTokenRepository struct {
	db *gorm.DB
}

// NewClioTokenRepository creates a new ClioTokenRepository
func NewClioTokenRepository(db *gorm.DB) *ClioTokenRepository {
	return &ClioTokenRepository{db: db}
}

// Get returns the stored token, or nil when none exists
func (r *ClioTokenRepository) Get() (*models.ClioToken, error) {
	var token models.ClioToken
	err := r.db.First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

// Replace deletes any existing tokens and stores the new one
func (r *ClioTokenRepository) Replace(token *models.ClioToken) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.ClioToken{}).Error; err != nil {
			return err
		}
		return tx.Create(token).Error
	})
}

// Delete removes all stored tokens
func (r *ClioTokenRepository) Delete() error {
	return r.db.Where("1 = 1").Delete(&models.ClioToken{}).Error
}
