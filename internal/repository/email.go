package repository

import (
	"errors"

	"lexbill/internal/models"

	"gorm.io/gorm"
)

// ErrEmailNotFound is returned when a lookup matches no stored email.
var ErrEmailNotFound = errors.New("email not found")

// EmailRepository handles database operations for Email
type EmailRepository struct {
	db *gorm.DB
}

// NewEmailRepository creates a new EmailRepository
func NewEmailRepository(db *gorm.DB) *EmailRepository {
	return &EmailRepository{db: db}
}

// Create creates a new email
func (r *EmailRepository) Create(email *models.Email) error {
	return r.db.Create(email).Error
}

// UpsertBatch stores a batch of fetched emails, deduplicating by Gmail id.
// Existing rows are kept as-is so generated summaries survive a refetch.
// It returns the stored rows for the whole batch, in input order, plus the
// number of newly inserted emails.
func (r *EmailRepository) UpsertBatch(emails []models.Email) ([]models.Email, int, error) {
	stored := make([]models.Email, 0, len(emails))
	newCount := 0

	for _, email := range emails {
		existing, err := r.GetByGmailID(email.GmailID)
		switch {
		case err == nil:
			stored = append(stored, *existing)
		case errors.Is(err, ErrEmailNotFound):
			if err := r.db.Create(&email).Error; err != nil {
				return nil, 0, err
			}
			stored = append(stored, email)
			newCount++
		default:
			return nil, 0, err
		}
	}

	return stored, newCount, nil
}

// GetByID retrieves an email by database row id
func (r *EmailRepository) GetByID(id uint) (*models.Email, error) {
	var email models.Email
	err := r.db.First(&email, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmailNotFound
		}
		return nil, err
	}
	return &email, nil
}

// GetByGmailID retrieves an email by Gmail message id
func (r *EmailRepository) GetByGmailID(gmailID string) (*models.Email, error) {
	var email models.Email
	err := r.db.Where("gmail_id = ?", gmailID).First(&email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmailNotFound
		}
		return nil, err
	}
	return &email, nil
}

// ListStored retrieves all stored emails, newest first
func (r *EmailRepository) ListStored() ([]models.Email, error) {
	var emails []models.Email
	err := r.db.Order("date_sent DESC").Find(&emails).Error
	return emails, err
}

// ListUnsummarized retrieves emails that have no summary yet
func (r *EmailRepository) ListUnsummarized() ([]models.Email, error) {
	var emails []models.Email
	err := r.db.Where("summary IS NULL").Find(&emails).Error
	return emails, err
}

// ListSummarized retrieves emails with a generated summary, newest first
func (r *EmailRepository) ListSummarized() ([]models.Email, error) {
	var emails []models.Email
	err := r.db.Where("summary IS NOT NULL").Order("date_sent DESC").Find(&emails).Error
	return emails, err
}

// ListUnpushed retrieves summarized emails not yet pushed to Clio
func (r *EmailRepository) ListUnpushed() ([]models.Email, error) {
	var emails []models.Email
	err := r.db.Where("summary IS NOT NULL AND pushed_to_clio = ?", false).Find(&emails).Error
	return emails, err
}

// Update saves all fields of an email
func (r *EmailRepository) Update(email *models.Email) error {
	return r.db.Save(email).Error
}

// UpdateSummaryFields updates the editable billing fields of a summary.
// Returns ErrEmailNotFound when no email with that row id exists.
func (r *EmailRepository) UpdateSummaryFields(id uint, hours float64, description, summary string) error {
	email, err := r.GetByID(id)
	if err != nil {
		return err
	}
	email.BillingHours = &hours
	email.BillingDescription = &description
	email.Summary = &summary
	return r.db.Save(email).Error
}

// MarkPushed flips the pushed flag on one email
func (r *EmailRepository) MarkPushed(id uint) error {
	return r.db.Model(&models.Email{}).Where("id = ?", id).Update("pushed_to_clio", true).Error
}

// CountStored returns the number of stored emails
func (r *EmailRepository) CountStored() (int64, error) {
	var count int64
	err := r.db.Model(&models.Email{}).Count(&count).Error
	return count, err
}

// CountSummarized returns the number of emails with a generated summary
func (r *EmailRepository) CountSummarized() (int64, error) {
	var count int64
	err := r.db.Model(&models.Email{}).Where("summary IS NOT NULL").Count(&count).Error
	return count, err
}
