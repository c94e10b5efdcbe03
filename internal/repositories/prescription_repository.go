package repositories

import (
	"context"

	"wellnest/internal/models"
)

// PrescriptionFilter narrows a reviewer listing. Zero values match everything.
type PrescriptionFilter struct {
	UserID string
	Status models.PrescriptionStatus
}

// PrescriptionRepository defines the interface for prescription data access.
type PrescriptionRepository interface {
	Create(ctx context.Context, prescription *models.Prescription) error
	GetByID(ctx context.Context, id string) (*models.Prescription, error)
	List(ctx context.Context, filter PrescriptionFilter) ([]models.Prescription, error)
	// UpdateStatus moves the prescription from `from` to `to`. It returns ErrVersionConflict
	// when the stored status is no longer `from`.
	UpdateStatus(ctx context.Context, id string, from, to models.PrescriptionStatus, notes *string, reviewedBy string) (*models.Prescription, error)
}
