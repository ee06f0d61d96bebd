package handlers

import (
	"haldor/internal/middleware"
	"haldor/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AddItemRequest is the body of POST /cart/items.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"lte=999"`
}

// SetQtyRequest is the body of PUT /cart/items/:id.
type SetQtyRequest struct {
	Quantity int `json:"quantity" validate:"lte=999"`
}

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

// RegisterRoutes registers the cart routes. Guests are identified by X-Cart-ID.
func (h *CartHandler) RegisterRoutes(router fiber.Router, guards Guards) {
	cartRoutes := router.Group("/cart", guards.Optional)
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Delete("/", h.HandleClearCart)
	cartRoutes.Post("/items", h.HandleAddItem)
	cartRoutes.Put("/items/:id", h.HandleSetQty)
	cartRoutes.Delete("/items/:id", h.HandleRemoveItem)
}

// HandleGetCart returns the cart with its count and subtotal.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	key, ok := middleware.CartKey(c)
	if !ok {
		return missingCartID(c)
	}
	cart, err := h.service.Get(c.UserContext(), key)
	if err != nil {
		return respondError(c, err, "Could not retrieve cart")
	}
	return c.JSON(cart)
}

// HandleAddItem adds a product to the cart, merging with an existing line.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	key, ok := middleware.CartKey(c)
	if !ok {
		return missingCartID(c)
	}
	var req AddItemRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}
	cart, err := h.service.AddProduct(c.UserContext(), key, req.ProductID, req.Quantity)
	if err != nil {
		return respondError(c, err, "Could not add item to cart")
	}
	return c.JSON(cart)
}

// HandleSetQty changes the quantity of a line.
func (h *CartHandler) HandleSetQty(c *fiber.Ctx) error {
	key, ok := middleware.CartKey(c)
	if !ok {
		return missingCartID(c)
	}
	var req SetQtyRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}
	cart, err := h.service.SetQty(c.UserContext(), key, c.Params("id"), req.Quantity)
	if err != nil {
		return respondError(c, err, "Could not update cart")
	}
	return c.JSON(cart)
}

// HandleRemoveItem deletes a line from the cart.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	key, ok := middleware.CartKey(c)
	if !ok {
		return missingCartID(c)
	}
	cart, err := h.service.RemoveItem(c.UserContext(), key, c.Params("id"))
	if err != nil {
		return respondError(c, err, "Could not update cart")
	}
	return c.JSON(cart)
}

// HandleClearCart empties the cart.
func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	key, ok := middleware.CartKey(c)
	if !ok {
		return missingCartID(c)
	}
	if err := h.service.Clear(c.UserContext(), key); err != nil {
		return respondError(c, err, "Could not clear cart")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
