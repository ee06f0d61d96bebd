package handlers

import (
	"haldor/internal/middleware"
	"haldor/internal/models"
	"haldor/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CheckoutHandler handles quoting, draft creation and payment.
type CheckoutHandler struct {
	service  *services.CheckoutService
	validate *validator.Validate
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(service *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the checkout routes. Guest checkout is allowed.
func (h *CheckoutHandler) RegisterRoutes(router fiber.Router, guards Guards) {
	checkoutRoutes := router.Group("/checkout", guards.Optional)
	checkoutRoutes.Get("/quote", h.HandleQuote)
	checkoutRoutes.Post("/", h.HandleCreateDraft)
	checkoutRoutes.Post("/pay", h.HandlePay)
}

// HandleQuote prices the cart for ?shipping=standard|express.
func (h *CheckoutHandler) HandleQuote(c *fiber.Ctx) error {
	key, ok := middleware.CartKey(c)
	if !ok {
		return missingCartID(c)
	}
	quote, err := h.service.Quote(c.UserContext(), key, c.Query("shipping"))
	if err != nil {
		return respondError(c, err, "Could not quote cart")
	}
	return c.JSON(quote)
}

// HandleCreateDraft freezes the cart into a signed checkout draft.
func (h *CheckoutHandler) HandleCreateDraft(c *fiber.Ctx) error {
	key, ok := middleware.CartKey(c)
	if !ok {
		return missingCartID(c)
	}
	var req services.CheckoutRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}
	draft, token, err := h.service.CreateDraft(c.UserContext(), key, middleware.UserID(c), req)
	if err != nil {
		return respondError(c, err, "Could not start checkout")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"draft": draft,
		"token": token,
	})
}

// HandlePay charges a draft. The payment outcome is always in the body; the
// status code tells succeeded (201, or 200 for a replay), requires_action
// (202), declined (402) and card errors (422) apart.
func (h *CheckoutHandler) HandlePay(c *fiber.Ctx) error {
	var req services.PayRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}
	result, err := h.service.Pay(c.UserContext(), req)
	if err != nil {
		return respondError(c, err, "Payment failed")
	}

	status := fiber.StatusOK
	switch result.Payment.Status {
	case models.PaymentSucceeded:
		if result.Created {
			status = fiber.StatusCreated
		}
	case models.PaymentRequiresAction:
		status = fiber.StatusAccepted
	case models.PaymentDeclined:
		status = fiber.StatusPaymentRequired
	case models.PaymentError:
		status = fiber.StatusUnprocessableEntity
	}
	return c.Status(status).JSON(result)
}
