package handlers

import (
	"wellnest/internal/middleware"
	"wellnest/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CheckoutHandler handles HTTP requests for the checkout saga.
type CheckoutHandler struct {
	service  *services.CheckoutService
	validate *validator.Validate
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(service *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the checkout routes with the Fiber app.
func (h *CheckoutHandler) RegisterRoutes(router fiber.Router) {
	checkoutRoutes := router.Group("/checkout")
	checkoutRoutes.Post("/", h.HandleStart)
	checkoutRoutes.Post("/confirm", h.HandleConfirm)
	checkoutRoutes.Post("/:intentId/cancel", h.HandleCancel)
}

// HandleStart validates the cart and address and returns the payment intent to pay.
func (h *CheckoutHandler) HandleStart(c *fiber.Ctx) error {
	var req services.StartCheckoutRequest
	// Address completeness is reported by the service as invalid_address.
	if handled, err := parseBody(c, nil, &req); handled {
		return err
	}

	result, err := h.service.Start(c.UserContext(), middleware.CurrentUser(c), req)
	if err != nil {
		return respondError(c, "start checkout", err)
	}
	if result.Order != nil {
		return c.Status(fiber.StatusCreated).JSON(result)
	}
	return c.JSON(result)
}

// HandleConfirm resumes the saga after the buyer interacted with the gateway.
func (h *CheckoutHandler) HandleConfirm(c *fiber.Ctx) error {
	var req services.ConfirmCheckoutRequest
	if handled, err := parseBody(c, h.validate, &req); handled {
		return err
	}

	order, created, err := h.service.Confirm(c.UserContext(), middleware.CurrentUser(c), req)
	if err != nil {
		return respondError(c, "confirm checkout", err)
	}
	if created {
		return c.Status(fiber.StatusCreated).JSON(order)
	}
	return c.JSON(order)
}

// HandleCancel aborts a checkout that has not been paid.
func (h *CheckoutHandler) HandleCancel(c *fiber.Ctx) error {
	checkout, err := h.service.Cancel(c.UserContext(), middleware.CurrentUser(c), c.Params("intentId"))
	if err != nil {
		return respondError(c, "cancel checkout", err)
	}
	return c.JSON(fiber.Map{
		"message":           "Checkout canceled",
		"payment_intent_id": checkout.PaymentIntentID,
		"status":            checkout.Status,
	})
}
