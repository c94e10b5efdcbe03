package services

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how the caller should react to it.
type Kind int

const (
	KindInternal        Kind = iota
	KindValidation           // Fix the input and resubmit
	KindNotFound             // Resource does not exist
	KindConflict             // State moved underneath the caller
	KindUnavailable          // Dependency down, retry with backoff
	KindForbidden            // Authorization failure
	KindUnauthenticated      // Missing or bad credentials
	KindInvariant            // Caller or workflow bug, never retried
	KindPaymentFailed        // Gateway refused the payment
)

// Error is a classified service error with a stable machine-readable code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrValidation             = &Error{KindValidation, "validation_failed", "invalid request"}
	ErrUnknownProduct         = &Error{KindValidation, "unknown_product", "unknown product"}
	ErrEmptyCart              = &Error{KindValidation, "empty_cart", "cart is empty"}
	ErrInvalidAddress         = &Error{KindValidation, "invalid_address", "invalid address"}
	ErrPrescriptionRequired   = &Error{KindValidation, "prescription_required", "an approved prescription is required for this cart"}
	ErrStaleState             = &Error{KindConflict, "stale_cart", "cart no longer matches the catalog, update the cart to refresh it"}
	ErrConcurrentUpdate       = &Error{KindConflict, "concurrent_update", "resource was modified concurrently, reload and retry"}
	ErrPaymentCaptured        = &Error{KindConflict, "payment_captured", "payment already captured, checkout can only be completed"}
	ErrEmailTaken             = &Error{KindConflict, "email_taken", "email already registered"}
	ErrNotFound               = &Error{KindNotFound, "not_found", "not found"}
	ErrForbidden              = &Error{KindForbidden, "forbidden", "forbidden"}
	ErrInvalidCredentials     = &Error{KindUnauthenticated, "invalid_credentials", "invalid credentials"}
	ErrInvalidTransition      = &Error{KindInvariant, "invalid_transition", "invalid status transition"}
	ErrAmountMismatch         = &Error{KindInvariant, "amount_mismatch", "captured amount differs from the checkout total"}
	ErrPaymentFailed          = &Error{KindPaymentFailed, "payment_failed", "payment failed"}
	ErrPaymentPending         = &Error{KindUnavailable, "payment_pending", "payment not yet confirmed by the gateway, retry shortly"}
	ErrGatewayUnavailable     = &Error{KindUnavailable, "gateway_unavailable", "payment gateway unavailable, retry shortly"}
	ErrOrderPersistenceFailed = &Error{KindUnavailable, "order_pending", "payment received, your order is being finalized, retry confirmation"}
	ErrStorageUnavailable     = &Error{KindUnavailable, "storage_unavailable", "document storage unavailable, retry shortly"}
	ErrCartBusy               = &Error{KindUnavailable, "cart_busy", "cart is being updated, retry shortly"}
)

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	if e := asError(err); e != nil {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the code of the first *Error in err's chain, or "internal".
func CodeOf(err error) string {
	if e := asError(err); e != nil {
		return e.Code
	}
	return "internal"
}

func asError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrValidation}, args...)...)
}
