package handlers

import (
	"errors"
	"log"

	"wellnest/internal/middleware"
	"wellnest/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the public authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
}

// RegisterProtectedRoutes registers the routes that need an authenticated caller.
func (h *AuthHandler) RegisterProtectedRoutes(router fiber.Router) {
	router.Get("/auth/me", h.HandleMe)
}

// RegisterAdminRoutes registers account management routes. The router is expected
// to be restricted to admins already.
func (h *AuthHandler) RegisterAdminRoutes(router fiber.Router) {
	router.Get("/users", h.HandleListUsers)
}

// HandleRegister handles new buyer registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req services.RegisterInput
	if handled, err := parseBody(c, h.validate, &req); handled {
		return err
	}

	user, err := h.authService.RegisterUser(c.UserContext(), req)
	if err != nil {
		return respondError(c, "register user", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    user,
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if handled, err := parseBody(c, h.validate, &req); handled {
		return err
	}

	token, user, err := h.authService.LoginUser(c.UserContext(), req.Email, req.Password)
	if err != nil {
		log.Printf("Error during login for user %s: %v", req.Email, err)
		if errors.Is(err, services.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authentication failed",
				"code":    services.CodeOf(err),
			})
		}
		return respondError(c, "log in", err)
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

// HandleMe returns the authenticated account.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	user, err := h.authService.GetUser(c.UserContext(), middleware.CurrentUser(c).UserID)
	if err != nil {
		return respondError(c, "load profile", err)
	}
	return c.JSON(user)
}

// HandleListUsers returns all accounts for admins.
func (h *AuthHandler) HandleListUsers(c *fiber.Ctx) error {
	users, err := h.authService.ListUsers(c.UserContext(), middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, "list users", err)
	}
	return c.JSON(users)
}
