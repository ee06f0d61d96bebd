package handlers

import (
	"haldor/internal/middleware"
	"haldor/internal/models"
	"haldor/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries a refresh token.
type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// AuthHandler handles HTTP requests for authentication and the account.
type AuthHandler struct {
	authService *services.AuthService
	carts       *services.CartService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, carts *services.CartService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		carts:       carts,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the authentication and account routes.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, guards Guards) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Post("/refresh", h.HandleRefresh)

	accountRoutes := router.Group("/account", guards.Required)
	accountRoutes.Get("/profile", h.HandleGetProfile)
	accountRoutes.Put("/profile", h.HandleUpdateProfile)
	accountRoutes.Post("/change-password", h.HandleChangePassword)
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req services.RegisterRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}

	user, tokens, err := h.authService.Register(c.UserContext(), req)
	if err != nil {
		return respondError(c, err, "Registration failed")
	}
	h.adoptGuestCart(c, user)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    user,
		"tokens":  tokens,
	})
}

// HandleLogin handles user login and issues a token pair.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}

	user, tokens, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		log.Debug().Err(err).Str("email", req.Email).Msg("login failed")
		return respondError(c, err, "Authentication failed")
	}
	h.adoptGuestCart(c, user)

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"user":    user,
		"tokens":  tokens,
	})
}

// adoptGuestCart moves the lines of the X-Cart-ID cart into the user's
// cart. Failure leaves the guest cart in place and does not fail the login.
func (h *AuthHandler) adoptGuestCart(c *fiber.Ctx, user *models.User) {
	guestKey, ok := middleware.GuestCartKey(c)
	if !ok {
		return
	}
	if _, err := h.carts.Merge(c.UserContext(), guestKey, services.UserCartKey(user.ID)); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("could not merge guest cart")
	}
}

// HandleRefresh exchanges a refresh token for a new token pair.
func (h *AuthHandler) HandleRefresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}
	tokens, err := h.authService.Refresh(c.UserContext(), req.Refresh)
	if err != nil {
		return respondError(c, err, "Could not refresh token")
	}
	return c.JSON(fiber.Map{"tokens": tokens})
}

// HandleGetProfile returns the signed-in user.
func (h *AuthHandler) HandleGetProfile(c *fiber.Ctx) error {
	user, err := h.authService.Profile(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err, "Could not retrieve profile")
	}
	return c.JSON(user)
}

// HandleUpdateProfile changes the name of the signed-in user.
func (h *AuthHandler) HandleUpdateProfile(c *fiber.Ctx) error {
	var req services.ProfileUpdate
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}
	user, err := h.authService.UpdateProfile(c.UserContext(), middleware.UserID(c), req)
	if err != nil {
		return respondError(c, err, "Could not update profile")
	}
	return c.JSON(user)
}

// HandleChangePassword replaces the password after checking the current one.
func (h *AuthHandler) HandleChangePassword(c *fiber.Ctx) error {
	var req services.ChangePasswordRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}
	if err := h.authService.ChangePassword(c.UserContext(), middleware.UserID(c), req); err != nil {
		return respondError(c, err, "Could not change password")
	}
	return c.JSON(fiber.Map{"message": "Password updated"})
}
