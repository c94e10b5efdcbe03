package handlers

import (
	"wellnest/internal/middleware"
	"wellnest/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CartHandler handles HTTP requests for the caller's cart.
type CartHandler struct {
	service  *services.CartService
	validate *validator.Validate
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service *services.CartService) *CartHandler {
	return &CartHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the cart routes with the Fiber app.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/cart")
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Put("/", h.HandleReplaceCart)
	cartRoutes.Delete("/", h.HandleClearCart)
}

// ReplaceCartRequest is the full new content of the cart. Prices and totals sent by
// the client are not part of it.
type ReplaceCartRequest struct {
	Items []services.CartLine `json:"items" validate:"dive"`
}

// HandleGetCart returns the caller's cart.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	cart, err := h.service.Get(c.UserContext(), user, user.UserID)
	if err != nil {
		return respondError(c, "retrieve cart", err)
	}
	return c.JSON(cart)
}

// HandleReplaceCart replaces the caller's cart with the requested items.
func (h *CartHandler) HandleReplaceCart(c *fiber.Ctx) error {
	var req ReplaceCartRequest
	if handled, err := parseBody(c, h.validate, &req); handled {
		return err
	}

	user := middleware.CurrentUser(c)
	cart, err := h.service.Replace(c.UserContext(), user, user.UserID, req.Items)
	if err != nil {
		return respondError(c, "update cart", err)
	}
	return c.JSON(cart)
}

// HandleClearCart empties the caller's cart.
func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	cart, err := h.service.Clear(c.UserContext(), user, user.UserID)
	if err != nil {
		return respondError(c, "clear cart", err)
	}
	return c.JSON(cart)
}
