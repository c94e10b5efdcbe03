package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wellnest/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMCheckoutRepository is a GORM implementation of CheckoutRepository.
type GORMCheckoutRepository struct {
	db *gorm.DB
}

// NewGORMCheckoutRepository creates a new instance of GORMCheckoutRepository.
func NewGORMCheckoutRepository(db *gorm.DB) *GORMCheckoutRepository {
	return &GORMCheckoutRepository{db: db}
}

// Save upserts the attempt. Only the buyer-editable fields are refreshed on conflict.
func (r *GORMCheckoutRepository) Save(ctx context.Context, checkout *models.Checkout) error {
	now := time.Now()
	if checkout.CreatedAt.IsZero() {
		checkout.CreatedAt = now
	}
	checkout.UpdatedAt = now
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "payment_intent_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"address_street", "address_city", "address_state", "address_zip", "address_country",
			"prescription_id", "updated_at",
		}),
	}).Create(checkout).Error
	if err != nil {
		return fmt.Errorf("failed to save checkout %s: %w", checkout.PaymentIntentID, err)
	}
	return nil
}

// GetByIntentID returns the attempt for a payment intent.
func (r *GORMCheckoutRepository) GetByIntentID(ctx context.Context, paymentIntentID string) (*models.Checkout, error) {
	var checkout models.Checkout
	if err := r.db.WithContext(ctx).First(&checkout, "payment_intent_id = ?", paymentIntentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("checkout %s: %w", paymentIntentID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get checkout %s: %w", paymentIntentID, err)
	}
	return &checkout, nil
}

// SetStatus updates the attempt status.
func (r *GORMCheckoutRepository) SetStatus(ctx context.Context, paymentIntentID string, status models.CheckoutStatus, orderID string) error {
	updates := map[string]interface{}{"status": status, "updated_at": time.Now()}
	if orderID != "" {
		updates["order_id"] = orderID
	}
	res := r.db.WithContext(ctx).Model(&models.Checkout{}).
		Where("payment_intent_id = ?", paymentIntentID).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update checkout %s: %w", paymentIntentID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("checkout %s: %w", paymentIntentID, ErrNotFound)
	}
	return nil
}

// CountClosed counts finished attempts for the same cart contents.
func (r *GORMCheckoutRepository) CountClosed(ctx context.Context, userID, fingerprint string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Checkout{}).
		Where("user_id = ? AND fingerprint = ? AND status IN ?", userID, fingerprint,
			[]models.CheckoutStatus{models.CheckoutCompleted, models.CheckoutFailed, models.CheckoutCanceled}).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count checkouts for user %s: %w", userID, err)
	}
	return n, nil
}
