package handlers

import (
	"errors"
	"fmt"

	"haldor/internal/repositories"
	"haldor/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Guards are the authentication middlewares handlers attach per route.
type Guards struct {
	Required fiber.Handler
	Optional fiber.Handler
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, repositories.ErrConflict),
		errors.Is(err, services.ErrDraftConsumed),
		errors.Is(err, services.ErrOrderPending):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidToken):
		return fiber.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrEmptyCart),
		errors.Is(err, services.ErrInvalidShipping),
		errors.Is(err, services.ErrPasswordMismatch),
		errors.Is(err, services.ErrInvalidDraft),
		errors.Is(err, services.ErrQuantityLimit):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

// respondError maps a service error to its HTTP status and writes the
// standard error body. Validation errors get the per-field body.
func respondError(c *fiber.Ctx, err error, message string) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return validationFailed(c, validationErrors)
	}

	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg(message)
	}
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}

func validationFailed(c *fiber.Ctx, validationErrors validator.ValidationErrors) error {
	errorMessages := make(map[string]string)
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}

// parseAndValidate binds the JSON body into req and validates it. It writes
// the error response itself and reports whether the handler may continue.
func parseAndValidate(c *fiber.Ctx, validate *validator.Validate, req interface{}) (bool, error) {
	if err := c.BodyParser(req); err != nil {
		log.Debug().Err(err).Str("path", c.Path()).Msg("error parsing request body")
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := validate.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return false, validationFailed(c, validationErrors)
		}
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	return true, nil
}

func missingCartID(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Sign in or send an X-Cart-ID header between 8 and 64 characters",
	})
}
