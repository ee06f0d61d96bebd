package middleware

import (
	"regexp"
	"strings"

	"haldor/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// CartIDHeader identifies the cart of an anonymous client.
const CartIDHeader = "X-Cart-ID"

var cartIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

func bearerToken(c *fiber.Ctx) (string, bool) {
	parts := strings.SplitN(c.Get("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// AuthRequired is a Fiber middleware to check for a valid JWT token.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
			})
		}

		tokenString, ok := bearerToken(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		claims, err := authService.ValidateToken(tokenString)
		if err != nil {
			log.Debug().Err(err).Msg("JWT validation failed")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
				"error":   err.Error(),
			})
		}

		c.Locals("user_id", claims["user_id"])
		c.Locals("email", claims["email"])
		return c.Next()
	}
}

// OptionalAuth identifies the caller when a valid token is sent and lets
// anonymous requests through. A malformed or expired token is still rejected
// so clients notice they have been signed out.
func OptionalAuth(authService *services.AuthService) fiber.Handler {
	required := AuthRequired(authService)
	return func(c *fiber.Ctx) error {
		if c.Get("Authorization") == "" {
			return c.Next()
		}
		return required(c)
	}
}

// UserID returns the authenticated user id, or "" for anonymous requests.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

// CartKey resolves the cart of the caller: the user's cart when signed in,
// otherwise the guest cart named by the X-Cart-ID header.
func CartKey(c *fiber.Ctx) (string, bool) {
	if id := UserID(c); id != "" {
		return services.UserCartKey(id), true
	}
	cartID := c.Get(CartIDHeader)
	if !cartIDPattern.MatchString(cartID) {
		return "", false
	}
	return services.GuestCartKey(cartID), true
}

// GuestCartKey returns the guest cart named by X-Cart-ID even for signed-in
// callers, so a guest cart can be merged on login.
func GuestCartKey(c *fiber.Ctx) (string, bool) {
	cartID := c.Get(CartIDHeader)
	if !cartIDPattern.MatchString(cartID) {
		return "", false
	}
	return services.GuestCartKey(cartID), true
}
