package handlers

import (
	"errors"
	"log"

	"wellnest/internal/payment"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// SandboxHandler lets clients play the payment provider's part when the sandbox
// gateway is configured.
type SandboxHandler struct {
	gateway  *payment.Sandbox
	validate *validator.Validate
}

// NewSandboxHandler creates a new SandboxHandler.
func NewSandboxHandler(gateway *payment.Sandbox) *SandboxHandler {
	return &SandboxHandler{
		gateway:  gateway,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the sandbox routes with the Fiber app.
func (h *SandboxHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/sandbox/intents/:id", h.HandleResolve)
}

// ResolveIntentRequest is the simulated outcome of the buyer's payment.
type ResolveIntentRequest struct {
	Status payment.Status `json:"status" validate:"required,oneof=processing succeeded failed canceled"`
}

// HandleResolve moves a sandbox intent to the requested status.
func (h *SandboxHandler) HandleResolve(c *fiber.Ctx) error {
	var req ResolveIntentRequest
	if handled, err := parseBody(c, h.validate, &req); handled {
		return err
	}

	intent, err := h.gateway.Resolve(c.Params("id"), req.Status)
	if err != nil {
		log.Printf("Error resolving sandbox intent %s: %v", c.Params("id"), err)
		switch {
		case errors.Is(err, payment.ErrIntentNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error(), "code": "not_found"})
		case errors.Is(err, payment.ErrNotCancelable):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error(), "code": "intent_closed"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error(), "code": "internal"})
	}
	return c.JSON(intent)
}
