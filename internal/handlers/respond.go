package handlers

import (
	"errors"
	"fmt"
	"log"

	"wellnest/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var statusByKind = map[services.Kind]int{
	services.KindValidation:      fiber.StatusBadRequest,
	services.KindNotFound:        fiber.StatusNotFound,
	services.KindConflict:        fiber.StatusConflict,
	services.KindUnavailable:     fiber.StatusServiceUnavailable,
	services.KindForbidden:       fiber.StatusForbidden,
	services.KindUnauthenticated: fiber.StatusUnauthorized,
	services.KindInvariant:       fiber.StatusUnprocessableEntity,
	services.KindPaymentFailed:   fiber.StatusPaymentRequired,
}

// respondError writes err as {message, code, error} with the status of its kind.
func respondError(c *fiber.Ctx, action string, err error) error {
	log.Printf("Error %s: %v", action, err)
	kind := services.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": fmt.Sprintf("Could not %s", action),
			"code":    "internal",
		})
	}
	if kind == services.KindUnavailable {
		c.Set(fiber.HeaderRetryAfter, "2")
	}
	return c.Status(status).JSON(fiber.Map{
		"message": messageOf(err),
		"code":    services.CodeOf(err),
		"error":   err.Error(),
	})
}

func messageOf(err error) string {
	var e *services.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// parseBody decodes the request body into out and validates it. On failure the
// response is already written and handled is true.
func parseBody(c *fiber.Ctx, validate *validator.Validate, out interface{}) (handled bool, err error) {
	if err := c.BodyParser(out); err != nil {
		log.Printf("Error parsing request body: %v", err)
		return true, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"code":    "validation_failed",
			"error":   err.Error(),
		})
	}
	if validate == nil {
		return false, nil
	}
	if err := validate.Struct(out); err != nil {
		return true, validationFailed(c, err)
	}
	return false, nil
}

func validationFailed(c *fiber.Ctx, err error) error {
	errorMessages := make(map[string]string)
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"code":    "validation_failed",
		"errors":  errorMessages,
	})
}
