package handlers

import (
	"haldor/internal/middleware"
	"haldor/internal/services"

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
func (h *OrderHandler) RegisterRoutes(router fiber.Router, guards Guards) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Get("/", guards.Optional, h.HandleListOrders)
	orderRoutes.Delete("/", guards.Required, h.HandleClearOrders)
	orderRoutes.Get("/transaction/:tx", h.HandleGetByTransaction)
	orderRoutes.Get("/:id", guards.Optional, h.HandleGetOrder)
}

// HandleListOrders lists the caller's orders, newest first.
func (h *OrderHandler) HandleListOrders(c *fiber.Ctx) error {
	key, ok := middleware.CartKey(c)
	if !ok {
		return missingCartID(c)
	}
	orders, err := h.service.List(c.UserContext(), key)
	if err != nil {
		return respondError(c, err, "Could not retrieve orders")
	}
	return c.JSON(orders)
}

// HandleGetOrder returns one of the caller's orders.
func (h *OrderHandler) HandleGetOrder(c *fiber.Ctx) error {
	key, ok := middleware.CartKey(c)
	if !ok {
		return missingCartID(c)
	}
	order, err := h.service.Get(c.UserContext(), key, c.Params("id"))
	if err != nil {
		return respondError(c, err, "Order not found")
	}
	return c.JSON(order)
}

// HandleGetByTransaction returns the order paid by a transaction, the data a
// payment voucher shows.
func (h *OrderHandler) HandleGetByTransaction(c *fiber.Ctx) error {
	order, err := h.service.GetByTransaction(c.UserContext(), c.Params("tx"))
	if err != nil {
		return respondError(c, err, "Order not found")
	}
	return c.JSON(order)
}

// HandleClearOrders deletes every order. Development only.
func (h *OrderHandler) HandleClearOrders(c *fiber.Ctx) error {
	if err := h.service.Clear(c.UserContext()); err != nil {
		return respondError(c, err, "Could not clear orders")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
