package middleware

import (
	"log"
	"strings"

	"wellnest/internal/models"
	"wellnest/internal/services"

	"github.com/gofiber/fiber/v2"
)

const principalKey = "principal"

// AuthRequired is a Fiber middleware to check for a valid JWT token.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
				"code":    "unauthenticated",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
				"code":    "unauthenticated",
			})
		}

		principal, err := authService.ValidateToken(parts[1])
		if err != nil {
			log.Printf("JWT validation failed: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
				"code":    "unauthenticated",
			})
		}

		// Store the caller in Fiber context for subsequent handlers
		c.Locals(principalKey, principal)
		return c.Next()
	}
}

// RequireRole rejects callers whose role is not one of roles. It must run after AuthRequired.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal := CurrentUser(c)
		for _, role := range roles {
			if principal.Role == role {
				return c.Next()
			}
		}
		log.Printf("Forbidden: user %q with role %q on %s %s", principal.UserID, principal.Role, c.Method(), c.Path())
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "You do not have access to this resource",
			"code":    "forbidden",
		})
	}
}

// CurrentUser returns the caller stored by AuthRequired, or the zero Principal.
func CurrentUser(c *fiber.Ctx) models.Principal {
	principal, _ := c.Locals(principalKey).(models.Principal)
	return principal
}
