package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"wellnest/internal/lock"
	"wellnest/internal/models"
	"wellnest/internal/repositories"
)

// CartLine is one requested line of a cart replacement.
type CartLine struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
}

// CartService keeps one cart per user. Writes for the same user are serialized by
// the locker and guarded by the cart version.
type CartService struct {
	carts    repositories.CartRepository
	products repositories.ProductRepository
	locker   lock.Locker
	gate     *RoleGate
}

// NewCartService creates a new CartService.
func NewCartService(carts repositories.CartRepository, products repositories.ProductRepository, locker lock.Locker, gate *RoleGate) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		locker:   locker,
		gate:     gate,
	}
}

// Get returns the user's cart. A user without a cart gets an empty one.
func (s *CartService) Get(ctx context.Context, user models.Principal, userID string) (*models.Cart, error) {
	if err := s.gate.Require(user, OwnsCart(userID)); err != nil {
		return nil, err
	}
	return s.carts.Get(ctx, userID)
}

// Replace sets the cart to exactly lines. Name, price and image of every line are
// captured from the catalog now, so resending the cart refreshes a stale snapshot.
// If a product appears more than once the last line wins.
func (s *CartService) Replace(ctx context.Context, user models.Principal, userID string, lines []CartLine) (*models.Cart, error) {
	if err := s.gate.Require(user, OwnsCart(userID)); err != nil {
		return nil, err
	}
	for _, line := range lines {
		if line.ProductID == "" {
			return nil, invalid("product_id is required")
		}
		if line.Quantity < 1 {
			return nil, invalid("quantity for product %s must be at least 1", line.ProductID)
		}
	}

	last := make(map[string]int, len(lines))
	for i, line := range lines {
		last[line.ProductID] = i
	}
	items := make([]models.CartItem, 0, len(last))
	for i, line := range lines {
		if last[line.ProductID] != i {
			continue
		}
		product, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrUnknownProduct, line.ProductID)
			}
			return nil, err
		}
		items = append(items, models.CartItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Image:     product.Image,
			Quantity:  line.Quantity,
		})
	}

	unlock, err := s.lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.replace(ctx, userID, items, current.Version)
}

// Clear empties the user's cart.
func (s *CartService) Clear(ctx context.Context, user models.Principal, userID string) (*models.Cart, error) {
	if err := s.gate.Require(user, OwnsCart(userID)); err != nil {
		return nil, err
	}
	unlock, err := s.lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.replace(ctx, userID, nil, current.Version)
}

// removePurchased takes the purchased quantities out of the user's cart. Lines
// added or increased after the checkout started keep the difference.
func (s *CartService) removePurchased(ctx context.Context, userID string, purchased []models.CartItem) (*models.Cart, error) {
	unlock, err := s.lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current.IsEmpty() {
		return current, nil
	}

	paid := make(map[string]int, len(purchased))
	for _, item := range purchased {
		paid[item.ProductID] += item.Quantity
	}
	remaining := make([]models.CartItem, 0, len(current.Items))
	for _, item := range current.Items {
		item.Quantity -= paid[item.ProductID]
		if item.Quantity > 0 {
			remaining = append(remaining, item)
		}
	}
	if len(remaining) > 0 {
		log.Printf("Cart of user %s changed during checkout, keeping %d line(s)", userID, len(remaining))
	}
	return s.replace(ctx, userID, remaining, current.Version)
}

func (s *CartService) lock(ctx context.Context, userID string) (func(), error) {
	unlock, err := s.locker.Lock(ctx, "cart:"+userID)
	if err != nil {
		log.Printf("Failed to lock cart of user %s: %v", userID, err)
		return nil, fmt.Errorf("%w: %v", ErrCartBusy, err)
	}
	return unlock, nil
}

func (s *CartService) replace(ctx context.Context, userID string, items []models.CartItem, version int64) (*models.Cart, error) {
	cart, err := s.carts.Replace(ctx, userID, items, version)
	if err != nil {
		if errors.Is(err, repositories.ErrVersionConflict) {
			return nil, fmt.Errorf("%w: cart of user %s", ErrConcurrentUpdate, userID)
		}
		return nil, err
	}
	return cart, nil
}
