package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"wellnest/internal/models"
	"wellnest/internal/payment"
	"wellnest/internal/repositories"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
)

// CheckoutConfig tunes the checkout saga.
type CheckoutConfig struct {
	Currency        string
	GatewayTimeout  time.Duration
	PersistAttempts int
	PersistBackoff  time.Duration
}

// StartCheckoutRequest is the body of a checkout start.
type StartCheckoutRequest struct {
	Address        models.Address `json:"address"`
	PrescriptionID *string        `json:"prescription_id,omitempty"`
}

// StartCheckoutResult tells the client which intent to pay. Order is set when the
// gateway already reported success.
type StartCheckoutResult struct {
	PaymentIntentID string          `json:"payment_intent_id"`
	ClientSecret    string          `json:"client_secret,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Status          payment.Status  `json:"status"`
	Order           *models.Order   `json:"order,omitempty"`
}

// ConfirmCheckoutRequest carries the client's view of the payment outcome.
// The gateway is always asked before the status is acted upon.
type ConfirmCheckoutRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
	Status          string `json:"status" validate:"omitempty,oneof=succeeded processing failed declined canceled"`
}

// CheckoutService runs cart validation, payment intent creation, payment confirmation,
// order persistence and cart clearing in that order.
type CheckoutService struct {
	carts         *CartService
	products      repositories.ProductRepository
	checkouts     repositories.CheckoutRepository
	orders        *OrderService
	prescriptions repositories.PrescriptionRepository
	gateway       payment.Gateway
	gate          *RoleGate
	cfg           CheckoutConfig
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(
	carts *CartService,
	products repositories.ProductRepository,
	checkouts repositories.CheckoutRepository,
	orders *OrderService,
	prescriptions repositories.PrescriptionRepository,
	gateway payment.Gateway,
	gate *RoleGate,
	cfg CheckoutConfig,
) *CheckoutService {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 10 * time.Second
	}
	if cfg.PersistAttempts <= 0 {
		cfg.PersistAttempts = 3
	}
	if cfg.PersistBackoff <= 0 {
		cfg.PersistBackoff = 100 * time.Millisecond
	}
	return &CheckoutService{
		carts:         carts,
		products:      products,
		checkouts:     checkouts,
		orders:        orders,
		prescriptions: prescriptions,
		gateway:       gateway,
		gate:          gate,
		cfg:           cfg,
	}
}

// Start validates the caller's cart and address and creates (or reuses) the payment intent.
func (s *CheckoutService) Start(ctx context.Context, user models.Principal, req StartCheckoutRequest) (*StartCheckoutResult, error) {
	if err := s.gate.Require(user, OwnsCart(user.UserID)); err != nil {
		return nil, err
	}
	cart, err := s.carts.Get(ctx, user, user.UserID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	needsPrescription, err := s.revalidate(ctx, cart)
	if err != nil {
		return nil, err
	}
	address, err := normalizeAddress(req.Address)
	if err != nil {
		return nil, err
	}
	prescriptionID, err := s.checkPrescription(ctx, user.UserID, req.PrescriptionID, needsPrescription)
	if err != nil {
		return nil, err
	}

	fingerprint := cart.Fingerprint()
	closed, err := s.checkouts.CountClosed(ctx, user.UserID, fingerprint)
	if err != nil {
		return nil, err
	}

	// An intent that turned out dead without us recording it bumps the attempt.
	for attempt := closed; attempt < closed+3; attempt++ {
		key := idempotencyKey(user.UserID, fingerprint, attempt)
		intent, err := s.createIntent(ctx, cart.Total, key, user.UserID)
		if err != nil {
			return nil, err
		}

		existing, err := s.checkouts.GetByIntentID(ctx, intent.ID)
		switch {
		case err == nil && existing.Status == models.CheckoutCompleted:
			order, err := s.orders.byPaymentIntent(ctx, intent.ID)
			if err != nil {
				return nil, err
			}
			return resultFor(intent, order), nil
		case err == nil && existing.Status.Terminal():
			continue
		case err != nil && !errors.Is(err, repositories.ErrNotFound):
			return nil, err
		}

		checkout := &models.Checkout{
			PaymentIntentID: intent.ID,
			UserID:          user.UserID,
			Fingerprint:     fingerprint,
			IdempotencyKey:  key,
			Items:           cart.Items,
			Total:           cart.Total,
			Currency:        s.cfg.Currency,
			Address:         address,
			PrescriptionID:  prescriptionID,
			Status:          models.CheckoutPending,
		}
		if existing != nil {
			checkout.Status = existing.Status
			checkout.CreatedAt = existing.CreatedAt
		}

		switch intent.Status {
		case payment.StatusFailed, payment.StatusCanceled:
			if existing == nil {
				checkout.Status = models.CheckoutFailed
				if err := s.checkouts.Save(ctx, checkout); err != nil {
					return nil, err
				}
			} else if err := s.checkouts.SetStatus(ctx, intent.ID, models.CheckoutFailed, ""); err != nil {
				return nil, err
			}
			continue
		}

		if err := s.checkouts.Save(ctx, checkout); err != nil {
			return nil, err
		}
		log.Printf("Checkout started for user %s: intent %s, total %s %s", user.UserID, intent.ID, cart.Total.StringFixed(2), s.cfg.Currency)

		if intent.Status == payment.StatusSucceeded {
			order, _, err := s.complete(ctx, checkout, received(intent))
			if err != nil {
				return nil, err
			}
			return resultFor(intent, order), nil
		}
		return resultFor(intent, nil), nil
	}
	return nil, fmt.Errorf("%w: gateway keeps returning closed intents", ErrGatewayUnavailable)
}

// Confirm resumes the saga for an intent. The gateway's status decides the outcome;
// req.Status only matters while the gateway still reports the intent as pending.
// created is false when the order already existed before this call.
func (s *CheckoutService) Confirm(ctx context.Context, user models.Principal, req ConfirmCheckoutRequest) (order *models.Order, created bool, err error) {
	checkout, err := s.loadCheckout(ctx, user, req.PaymentIntentID)
	if err != nil {
		return nil, false, err
	}

	switch checkout.Status {
	case models.CheckoutCompleted:
		order, err = s.orders.byPaymentIntent(ctx, checkout.PaymentIntentID)
		return order, false, err
	case models.CheckoutFailed, models.CheckoutCanceled:
		return nil, false, fmt.Errorf("%w: checkout %s is %s", ErrPaymentFailed, checkout.PaymentIntentID, checkout.Status)
	case models.CheckoutPaid:
		// Success was already observed; only persistence is left to retry.
		return s.complete(ctx, checkout, checkout.Total)
	}

	intent, err := s.getIntent(ctx, checkout.PaymentIntentID)
	if err != nil {
		return nil, false, err
	}

	switch intent.Status {
	case payment.StatusSucceeded:
		return s.complete(ctx, checkout, received(intent))
	case payment.StatusFailed, payment.StatusCanceled:
		s.markClosed(ctx, checkout.PaymentIntentID, models.CheckoutFailed)
		return nil, false, fmt.Errorf("%w: intent %s is %s", ErrPaymentFailed, intent.ID, intent.Status)
	case payment.StatusProcessing:
		return nil, false, ErrPaymentPending
	}

	switch req.Status {
	case "failed", "declined", "canceled":
		if _, err := s.cancelIntent(ctx, checkout.PaymentIntentID); err != nil {
			return nil, false, err
		}
		s.markClosed(ctx, checkout.PaymentIntentID, models.CheckoutFailed)
		log.Printf("Checkout %s aborted: client reported %s", checkout.PaymentIntentID, req.Status)
		return nil, false, fmt.Errorf("%w: %s", ErrPaymentFailed, req.Status)
	}
	return nil, false, ErrPaymentPending
}

// Cancel aborts a checkout whose payment has not been captured.
func (s *CheckoutService) Cancel(ctx context.Context, user models.Principal, paymentIntentID string) (*models.Checkout, error) {
	checkout, err := s.loadCheckout(ctx, user, paymentIntentID)
	if err != nil {
		return nil, err
	}
	switch checkout.Status {
	case models.CheckoutPaid, models.CheckoutCompleted:
		return nil, ErrPaymentCaptured
	case models.CheckoutFailed, models.CheckoutCanceled:
		return checkout, nil
	}

	intent, err := s.getIntent(ctx, paymentIntentID)
	if err != nil {
		return nil, err
	}
	switch intent.Status {
	case payment.StatusSucceeded:
		return nil, ErrPaymentCaptured
	case payment.StatusProcessing:
		return nil, ErrPaymentPending
	case payment.StatusPending:
		if _, err := s.cancelIntent(ctx, paymentIntentID); err != nil {
			return nil, err
		}
	}

	if err := s.checkouts.SetStatus(ctx, paymentIntentID, models.CheckoutCanceled, ""); err != nil {
		return nil, err
	}
	checkout.Status = models.CheckoutCanceled
	log.Printf("Checkout %s canceled by user %s", paymentIntentID, user.UserID)
	return checkout, nil
}

// complete records the order for a captured payment and then clears the cart.
// The order write always precedes the clear.
func (s *CheckoutService) complete(ctx context.Context, checkout *models.Checkout, captured decimal.Decimal) (*models.Order, bool, error) {
	if !captured.Equal(checkout.Total) {
		log.Printf("ERROR: intent %s captured %s but checkout total is %s", checkout.PaymentIntentID, captured.StringFixed(2), checkout.Total.StringFixed(2))
		return nil, false, fmt.Errorf("%w: intent %s", ErrAmountMismatch, checkout.PaymentIntentID)
	}
	if checkout.Status != models.CheckoutPaid {
		if err := s.checkouts.SetStatus(ctx, checkout.PaymentIntentID, models.CheckoutPaid, ""); err != nil {
			log.Printf("Failed to mark checkout %s paid: %v", checkout.PaymentIntentID, err)
			return nil, false, fmt.Errorf("%w: %v", ErrOrderPersistenceFailed, err)
		}
		checkout.Status = models.CheckoutPaid
	}

	items := make([]models.OrderItem, 0, len(checkout.Items))
	for _, item := range checkout.Items {
		items = append(items, models.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}

	var order *models.Order
	var created bool
	record := func() error {
		stored, isNew, err := s.orders.Record(ctx, &models.Order{
			UserID:          checkout.UserID,
			Items:           items,
			Total:           captured,
			Currency:        checkout.Currency,
			Address:         checkout.Address,
			Status:          models.OrderStatusConfirmed,
			PaymentIntentID: checkout.PaymentIntentID,
			PrescriptionID:  checkout.PrescriptionID,
		})
		if err != nil {
			if KindOf(err) == KindValidation {
				return backoff.Permanent(err)
			}
			log.Printf("Recording order for intent %s failed, will retry: %v", checkout.PaymentIntentID, err)
			return err
		}
		order, created = stored, isNew
		return nil
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.PersistBackoff
	retries := backoff.WithMaxRetries(policy, uint64(s.cfg.PersistAttempts-1))
	if err := backoff.Retry(record, backoff.WithContext(retries, ctx)); err != nil {
		log.Printf("ERROR: payment %s captured but order not recorded: %v", checkout.PaymentIntentID, err)
		return nil, false, fmt.Errorf("%w: intent %s: %v", ErrOrderPersistenceFailed, checkout.PaymentIntentID, err)
	}

	if _, err := s.carts.removePurchased(ctx, checkout.UserID, checkout.Items); err != nil {
		log.Printf("Warning: order %s recorded but cart of user %s not cleared: %v", order.ID, checkout.UserID, err)
	}
	if err := s.checkouts.SetStatus(ctx, checkout.PaymentIntentID, models.CheckoutCompleted, order.ID); err != nil {
		log.Printf("Warning: order %s recorded but checkout %s not closed: %v", order.ID, checkout.PaymentIntentID, err)
	} else {
		checkout.Status = models.CheckoutCompleted
		checkout.OrderID = order.ID
	}
	return order, created, nil
}

func (s *CheckoutService) loadCheckout(ctx context.Context, user models.Principal, paymentIntentID string) (*models.Checkout, error) {
	if strings.TrimSpace(paymentIntentID) == "" {
		return nil, invalid("payment_intent_id is required")
	}
	checkout, err := s.checkouts.GetByIntentID(ctx, paymentIntentID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: checkout %s", ErrNotFound, paymentIntentID)
		}
		return nil, err
	}
	if err := s.gate.Require(user, OwnsCart(checkout.UserID)); err != nil {
		return nil, err
	}
	return checkout, nil
}

// revalidate checks every item against the live catalog and reports whether any of
// them needs a prescription.
func (s *CheckoutService) revalidate(ctx context.Context, cart *models.Cart) (bool, error) {
	needsPrescription := false
	for _, item := range cart.Items {
		product, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return false, fmt.Errorf("%w: product %s is no longer available", ErrStaleState, item.ProductID)
			}
			return false, err
		}
		if !product.Price.Equal(item.Price) {
			return false, fmt.Errorf("%w: price of %s changed from %s to %s", ErrStaleState, item.Name, item.Price.StringFixed(2), product.Price.StringFixed(2))
		}
		if product.Stock < item.Quantity {
			return false, fmt.Errorf("%w: only %d of %s in stock", ErrStaleState, product.Stock, item.Name)
		}
		needsPrescription = needsPrescription || product.RequiresPrescription
	}
	return needsPrescription, nil
}

func (s *CheckoutService) checkPrescription(ctx context.Context, userID string, id *string, required bool) (*string, error) {
	if id == nil || strings.TrimSpace(*id) == "" {
		if required {
			return nil, ErrPrescriptionRequired
		}
		return nil, nil
	}
	prescription, err := s.prescriptions.GetByID(ctx, strings.TrimSpace(*id))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: prescription %s not found", ErrPrescriptionRequired, *id)
		}
		return nil, err
	}
	if prescription.UserID != userID {
		return nil, fmt.Errorf("%w: prescription %s not found", ErrPrescriptionRequired, *id)
	}
	if prescription.Status != models.PrescriptionApproved {
		return nil, fmt.Errorf("%w: prescription %s is %s", ErrPrescriptionRequired, prescription.ID, prescription.Status)
	}
	return &prescription.ID, nil
}

func (s *CheckoutService) createIntent(ctx context.Context, amount decimal.Decimal, key, userID string) (*payment.Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()
	intent, err := s.gateway.CreateIntent(ctx, amount, s.cfg.Currency, key, map[string]string{"user_id": userID})
	if err != nil {
		return nil, gatewayError("create intent", err)
	}
	return intent, nil
}

func (s *CheckoutService) getIntent(ctx context.Context, id string) (*payment.Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()
	intent, err := s.gateway.GetIntent(ctx, id)
	if err != nil {
		return nil, gatewayError("get intent "+id, err)
	}
	return intent, nil
}

func (s *CheckoutService) cancelIntent(ctx context.Context, id string) (*payment.Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()
	intent, err := s.gateway.CancelIntent(ctx, id)
	if err != nil {
		if errors.Is(err, payment.ErrNotCancelable) {
			return nil, fmt.Errorf("%w: intent %s", ErrPaymentCaptured, id)
		}
		return nil, gatewayError("cancel intent "+id, err)
	}
	return intent, nil
}

func (s *CheckoutService) markClosed(ctx context.Context, paymentIntentID string, status models.CheckoutStatus) {
	if err := s.checkouts.SetStatus(ctx, paymentIntentID, status, ""); err != nil {
		log.Printf("Warning: failed to mark checkout %s %s: %v", paymentIntentID, status, err)
	}
}

func gatewayError(op string, err error) error {
	log.Printf("Payment gateway %s failed: %v", op, err)
	switch {
	case errors.Is(err, payment.ErrDeclined):
		return fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	case errors.Is(err, payment.ErrIntentNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	default:
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
}

func normalizeAddress(a models.Address) (models.Address, error) {
	out := models.Address{
		Street:  strings.TrimSpace(a.Street),
		City:    strings.TrimSpace(a.City),
		State:   strings.TrimSpace(a.State),
		Zip:     strings.TrimSpace(a.Zip),
		Country: strings.TrimSpace(a.Country),
	}
	if out.Street == "" || out.City == "" || out.State == "" || out.Zip == "" || out.Country == "" {
		return out, ErrInvalidAddress
	}
	return out, nil
}

func idempotencyKey(userID, fingerprint string, attempt int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", userID, fingerprint, attempt)))
	return hex.EncodeToString(sum[:])
}

func received(intent *payment.Intent) decimal.Decimal {
	if intent.AmountReceived.IsZero() {
		return intent.Amount
	}
	return intent.AmountReceived
}

func resultFor(intent *payment.Intent, order *models.Order) *StartCheckoutResult {
	return &StartCheckoutResult{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Amount:          intent.Amount,
		Currency:        intent.Currency,
		Status:          intent.Status,
		Order:           order,
	}
}
