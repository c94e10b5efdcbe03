package handlers

import (
	"wellnest/internal/middleware"
	"wellnest/internal/services"

	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service *services.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service: service,
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
}

// RegisterAdminRoutes registers the order routes for operators.
func (h *OrderHandler) RegisterAdminRoutes(router fiber.Router) {
	router.Get("/orders", h.HandleGetAllOrders)
}

// HandleGetOrders retrieves the caller's orders, newest first.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListForUser(c.UserContext(), middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, "retrieve orders", err)
	}
	return c.JSON(orders)
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.Get(c.UserContext(), middleware.CurrentUser(c), c.Params("id"))
	if err != nil {
		return respondError(c, "retrieve order", err)
	}
	return c.JSON(order)
}

// HandleGetAllOrders retrieves every order.
func (h *OrderHandler) HandleGetAllOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListAll(c.UserContext(), middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, "retrieve orders", err)
	}
	return c.JSON(orders)
}
