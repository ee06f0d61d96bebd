package services

import (
	"encoding/json"
	"fmt"
	"time"

	"haldor/internal/models"

	"github.com/rs/zerolog/log"
)

// RoutingKeyOrderPaid is published once per recorded order.
const RoutingKeyOrderPaid = "order.paid"

// EventPublisher hands serialized domain events to a broker.
// *rabbitmq.Client satisfies it.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// OrderPaidEvent is the body of an order.paid message.
type OrderPaidEvent struct {
	OrderID       string    `json:"order_id"`
	TransactionID string    `json:"transaction_id"`
	Total         int64     `json:"total"`
	Currency      string    `json:"currency"`
	Email         string    `json:"email"`
	Items         int       `json:"items"`
	CreatedAt     time.Time `json:"created_at"`
}

func newOrderPaidEvent(o *models.Order) OrderPaidEvent {
	items := 0
	for _, l := range o.Items {
		items += l.Quantity
	}
	return OrderPaidEvent{
		OrderID:       o.ID,
		TransactionID: o.Payment.TransactionID,
		Total:         o.Total,
		Currency:      o.Currency,
		Email:         o.Customer.Email,
		Items:         items,
		CreatedAt:     o.CreatedAt,
	}
}

// HandleOrderPaid consumes an order.paid message. Confirmation mail is out of
// scope, so the event is decoded and logged.
func HandleOrderPaid(body []byte) error {
	var evt OrderPaidEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return fmt.Errorf("failed to decode order.paid event: %w", err)
	}
	if evt.OrderID == "" {
		return fmt.Errorf("order.paid event without order_id")
	}
	log.Info().
		Str("order_id", evt.OrderID).
		Str("transaction_id", evt.TransactionID).
		Int64("total", evt.Total).
		Str("email", evt.Email).
		Msg("order confirmation queued")
	return nil
}
