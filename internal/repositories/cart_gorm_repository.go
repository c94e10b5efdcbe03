package repositories

import (
	"context"
	"fmt"
	"time"

	"wellnest/internal/models"

	"gorm.io/gorm"
)

// GORMCartRepository is a GORM implementation of CartRepository.
type GORMCartRepository struct {
	db *gorm.DB
}

// NewGORMCartRepository creates a new instance of GORMCartRepository.
func NewGORMCartRepository(db *gorm.DB) *GORMCartRepository {
	return &GORMCartRepository{db: db}
}

// Get loads the cart and its items, lazily creating the cart row.
func (r *GORMCartRepository) Get(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	db := r.db.WithContext(ctx)
	if err := db.Where(models.Cart{UserID: userID}).FirstOrCreate(&cart).Error; err != nil {
		return nil, fmt.Errorf("failed to load cart for user %s: %w", userID, err)
	}
	if err := db.Where("cart_user_id = ?", userID).Order("position").Find(&cart.Items).Error; err != nil {
		return nil, fmt.Errorf("failed to load cart items for user %s: %w", userID, err)
	}
	cart.Recalculate()
	return &cart, nil
}

// Replace deletes the current items and inserts the new ones in one transaction.
func (r *GORMCartRepository) Replace(ctx context.Context, userID string, items []models.CartItem, expectedVersion int64) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(models.Cart{UserID: userID}).FirstOrCreate(&cart).Error; err != nil {
			return err
		}

		now := time.Now()
		res := tx.Model(&models.Cart{}).
			Where("user_id = ? AND version = ?", userID, expectedVersion).
			Updates(map[string]interface{}{"version": expectedVersion + 1, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}

		if err := tx.Where("cart_user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		stored := make([]models.CartItem, len(items))
		for i, item := range items {
			item.ID = 0
			item.CartUserID = userID
			item.Position = i
			stored[i] = item
		}
		if len(stored) > 0 {
			if err := tx.Create(&stored).Error; err != nil {
				return err
			}
		}

		cart.Items = stored
		cart.Version = expectedVersion + 1
		cart.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to replace cart for user %s: %w", userID, err)
	}
	cart.Recalculate()
	return &cart, nil
}
