package services

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"haldor/internal/clock"
	"haldor/internal/models"
	"haldor/internal/monitoring"
	"haldor/internal/repositories"

	"github.com/rs/zerolog/log"
)

// ErrOrderPending is returned when a transaction has been claimed but its
// order is not readable yet.
var ErrOrderPending = errors.New("order for this transaction is still being recorded")

// OrderService is the order ledger.
type OrderService struct {
	orders    repositories.OrderRepository
	processed repositories.ProcessedStore
	carts     *CartService
	publisher EventPublisher
	clock     clock.Clock
}

// NewOrderService creates a new OrderService. publisher may be nil.
func NewOrderService(orders repositories.OrderRepository, processed repositories.ProcessedStore, carts *CartService, publisher EventPublisher, clk clock.Clock) *OrderService {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &OrderService{
		orders:    orders,
		processed: processed,
		carts:     carts,
		publisher: publisher,
		clock:     clk,
	}
}

// List returns the orders placed under ownerKey, newest first.
func (s *OrderService) List(ctx context.Context, ownerKey string) ([]models.Order, error) {
	return s.orders.GetByOwner(ctx, ownerKey)
}

// Get returns an order of ownerKey. Orders of other owners are reported as
// not found.
func (s *OrderService) Get(ctx context.Context, ownerKey, id string) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.OwnerKey != ownerKey {
		return nil, fmt.Errorf("order with ID %s: %w", id, repositories.ErrNotFound)
	}
	return order, nil
}

// GetByTransaction returns the order settled by a payment transaction.
func (s *OrderService) GetByTransaction(ctx context.Context, transactionID string) (*models.Order, error) {
	return s.orders.GetByTransactionID(ctx, transactionID)
}

// Clear deletes every order.
func (s *OrderService) Clear(ctx context.Context) error {
	if err := s.orders.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear orders: %w", err)
	}
	log.Warn().Msg("order ledger cleared")
	return nil
}

// CompleteCheckout records the paid order for a draft. It is idempotent per
// transaction id: a replay returns the order recorded by the first call with
// created=false.
func (s *OrderService) CompleteCheckout(ctx context.Context, draft models.CheckoutDraft, result models.PaymentResult, last4 string) (*models.Order, bool, error) {
	if result.Status != models.PaymentSucceeded || result.TransactionID == "" {
		return nil, false, fmt.Errorf("cannot record order for a %s payment", result.Status)
	}
	txKey := "txn:" + result.TransactionID

	first, err := s.processed.MarkProcessed(ctx, txKey)
	if err != nil {
		return nil, false, err
	}
	if !first {
		monitoring.OrdersDeduplicatedTotal.Inc()
		existing, err := s.orders.GetByTransactionID(ctx, result.TransactionID)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, false, ErrOrderPending
		}
		if err != nil {
			return nil, false, err
		}
		log.Info().Str("order_id", existing.ID).Str("transaction_id", result.TransactionID).Msg("duplicate order creation ignored")
		return existing, false, nil
	}

	now := s.clock.Now()
	order := &models.Order{
		ID:        NewOrderID(now.UnixMilli()),
		OwnerKey:  draft.CartKey,
		CreatedAt: now,
		Currency:  draft.Currency,
		Items:     draft.Items,
		Subtotal:  draft.Subtotal,
		Shipping:  draft.Shipping,
		Total:     draft.Amount,
		Customer:  draft.Customer,
		Payment: models.PaymentInfo{
			TransactionID: result.TransactionID,
			Method:        models.PaymentMethodCard,
			Last4:         last4,
		},
		Status: models.OrderStatusPaid,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		if relErr := s.processed.Release(context.WithoutCancel(ctx), txKey); relErr != nil {
			log.Error().Err(relErr).Str("transaction_id", result.TransactionID).Msg("failed to release transaction claim")
		}
		return nil, false, fmt.Errorf("failed to record order: %w", err)
	}
	monitoring.OrdersCreatedTotal.Inc()

	// The order is recorded; what follows must not fail the checkout.
	if draft.ID != "" {
		if _, err := s.processed.MarkProcessed(ctx, "draft:"+draft.ID); err != nil {
			log.Error().Err(err).Str("draft_id", draft.ID).Msg("failed to mark draft consumed")
		}
	}
	if s.carts != nil {
		if err := s.carts.Clear(ctx, draft.CartKey); err != nil {
			log.Error().Err(err).Str("order_id", order.ID).Msg("failed to clear cart after payment")
		}
	}
	s.publishPaid(order)

	log.Info().Str("order_id", order.ID).Str("transaction_id", result.TransactionID).Int64("total", order.Total).Msg("order recorded")
	return order, true, nil
}

func (s *OrderService) publishPaid(order *models.Order) {
	if s.publisher == nil {
		return
	}
	body, err := json.Marshal(newOrderPaidEvent(order))
	if err != nil {
		log.Error().Err(err).Str("order_id", order.ID).Msg("failed to marshal order.paid event")
		return
	}
	if err := s.publisher.Publish(RoutingKeyOrderPaid, body); err != nil {
		monitoring.EventsPublishedTotal.WithLabelValues(RoutingKeyOrderPaid, "error").Inc()
		log.Warn().Err(err).Str("order_id", order.ID).Msg("failed to publish order.paid event")
		return
	}
	monitoring.EventsPublishedTotal.WithLabelValues(RoutingKeyOrderPaid, "ok").Inc()
}

const base36 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewOrderID builds "ORD-<millis in base 36>-<4 random chars>".
func NewOrderID(unixMillis int64) string {
	suffix := make([]byte, 4)
	max := big.NewInt(int64(len(base36)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		suffix[i] = base36[n.Int64()]
	}
	return "ORD-" + strings.ToUpper(strconv.FormatInt(unixMillis, 36)) + "-" + string(suffix)
}
