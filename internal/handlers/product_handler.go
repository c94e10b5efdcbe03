package handlers

import (
	"wellnest/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ProductHandler serves read-only catalog lookups.
type ProductHandler struct {
	productService *services.ProductService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(productService *services.ProductService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
	}
}

// RegisterRoutes registers the product routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/:id", h.HandleGetProductByID)
}

// HandleGetProducts returns the catalog.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.productService.List(c.UserContext())
	if err != nil {
		return respondError(c, "retrieve products", err)
	}
	return c.JSON(products)
}

// HandleGetProductByID returns one product.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.productService.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, "retrieve product", err)
	}
	return c.JSON(product)
}
