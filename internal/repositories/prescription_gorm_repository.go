package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wellnest/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMPrescriptionRepository is a GORM implementation of PrescriptionRepository.
type GORMPrescriptionRepository struct {
	db *gorm.DB
}

// NewGORMPrescriptionRepository creates a new instance of GORMPrescriptionRepository.
func NewGORMPrescriptionRepository(db *gorm.DB) *GORMPrescriptionRepository {
	return &GORMPrescriptionRepository{db: db}
}

// Create stores a new prescription.
func (r *GORMPrescriptionRepository) Create(ctx context.Context, prescription *models.Prescription) error {
	if prescription.ID == "" {
		prescription.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(prescription).Error; err != nil {
		return fmt.Errorf("failed to create prescription: %w", err)
	}
	return nil
}

// GetByID returns a prescription by its ID.
func (r *GORMPrescriptionRepository) GetByID(ctx context.Context, id string) (*models.Prescription, error) {
	var prescription models.Prescription
	if err := r.db.WithContext(ctx).First(&prescription, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("prescription %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get prescription %s: %w", id, err)
	}
	return &prescription, nil
}

// List returns matching prescriptions, newest first.
func (r *GORMPrescriptionRepository) List(ctx context.Context, filter PrescriptionFilter) ([]models.Prescription, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	prescriptions := []models.Prescription{}
	if err := query.Find(&prescriptions).Error; err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	return prescriptions, nil
}

// UpdateStatus performs a compare-and-set on the status column.
func (r *GORMPrescriptionRepository) UpdateStatus(ctx context.Context, id string, from, to models.PrescriptionStatus, notes *string, reviewedBy string) (*models.Prescription, error) {
	updates := map[string]interface{}{
		"status":      to,
		"reviewed_by": reviewedBy,
		"updated_at":  time.Now(),
	}
	if notes != nil {
		updates["pharmacist_notes"] = *notes
	}
	res := r.db.WithContext(ctx).Model(&models.Prescription{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update prescription %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("prescription %s is no longer %s: %w", id, from, ErrVersionConflict)
	}
	return r.GetByID(ctx, id)
}
