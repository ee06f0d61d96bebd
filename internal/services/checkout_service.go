package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"haldor/internal/clock"
	"haldor/internal/models"
	"haldor/internal/monitoring"
	"haldor/internal/payment"
	"haldor/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const draftAudience = "checkout"

// CheckoutRequest starts a checkout from the caller's cart.
type CheckoutRequest struct {
	ShippingMethod string          `json:"shipping_method" validate:"omitempty,oneof=standard express"`
	Customer       models.Customer `json:"customer"`
	// AddressID selects a saved address of the signed-in user; it overrides
	// the address fields of Customer.
	AddressID string `json:"address_id,omitempty"`
}

// PayRequest pays a checkout draft with a card.
type PayRequest struct {
	Token         string `json:"token" validate:"required"`
	CardNumber    string `json:"card_number"`
	ExpMonth      string `json:"exp_month"`
	ExpYear       string `json:"exp_year"`
	CVC           string `json:"cvc"`
	ThreeDSResult string `json:"three_ds_result,omitempty" validate:"omitempty,oneof=approved declined"`
}

// PayResult is the outcome of a payment attempt. Order is set only when the
// payment succeeded.
type PayResult struct {
	Payment models.PaymentResult `json:"payment"`
	Order   *models.Order        `json:"order,omitempty"`
	Created bool                 `json:"created"`
}

// CheckoutConfig holds the prices and signing settings of checkout.
type CheckoutConfig struct {
	Secret           string
	DraftTTL         time.Duration
	ShippingStandard int64
	ShippingExpress  int64
	Currency         string
}

type draftClaims struct {
	Draft models.CheckoutDraft `json:"draft"`
	jwt.StandardClaims
}

// CheckoutService turns a cart into a paid order in two steps: CreateDraft
// freezes the cart into a signed draft token, Pay charges it.
type CheckoutService struct {
	carts     *CartService
	orders    *OrderService
	locations *LocationService
	charger   payment.Charger
	processed repositories.ProcessedStore
	clock     clock.Clock
	cfg       CheckoutConfig
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(carts *CartService, orders *OrderService, locations *LocationService, charger payment.Charger, processed repositories.ProcessedStore, clk clock.Clock, cfg CheckoutConfig) *CheckoutService {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	if cfg.DraftTTL <= 0 {
		cfg.DraftTTL = 30 * time.Minute
	}
	if cfg.Currency == "" {
		cfg.Currency = "CLP"
	}
	return &CheckoutService{
		carts:     carts,
		orders:    orders,
		locations: locations,
		charger:   charger,
		processed: processed,
		clock:     clk,
		cfg:       cfg,
	}
}

// ShippingCost returns the cost of a shipping method for a cart subtotal.
// An empty cart ships for free.
func (s *CheckoutService) ShippingCost(method string, subtotal int64) (int64, error) {
	var cost int64
	switch method {
	case "", models.ShippingStandard:
		cost = s.cfg.ShippingStandard
	case models.ShippingExpress:
		cost = s.cfg.ShippingExpress
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidShipping, method)
	}
	if subtotal <= 0 {
		return 0, nil
	}
	return cost, nil
}

// Quote prices the cart under a shipping method.
func (s *CheckoutService) Quote(ctx context.Context, cartKey, method string) (*models.Quote, error) {
	cart, err := s.carts.Get(ctx, cartKey)
	if err != nil {
		return nil, err
	}
	return s.quote(cart, method)
}

func (s *CheckoutService) quote(cart *models.Cart, method string) (*models.Quote, error) {
	shipping, err := s.ShippingCost(method, cart.Subtotal)
	if err != nil {
		return nil, err
	}
	if method == "" {
		method = models.ShippingStandard
	}
	return &models.Quote{
		ShippingMethod: method,
		Subtotal:       cart.Subtotal,
		Shipping:       shipping,
		Total:          cart.Subtotal + shipping,
		Currency:       s.cfg.Currency,
	}, nil
}

// CreateDraft freezes the cart of cartKey into a draft and signs it. userID is
// empty for guests, who cannot use saved addresses.
func (s *CheckoutService) CreateDraft(ctx context.Context, cartKey, userID string, req CheckoutRequest) (*models.CheckoutDraft, string, error) {
	cart, err := s.carts.Get(ctx, cartKey)
	if err != nil {
		return nil, "", err
	}
	if len(cart.Lines) == 0 {
		return nil, "", ErrEmptyCart
	}
	quote, err := s.quote(cart, req.ShippingMethod)
	if err != nil {
		return nil, "", err
	}

	customer := req.Customer
	if req.AddressID != "" {
		resolved, err := s.locations.Resolve(ctx, userID, req.AddressID)
		if err != nil {
			return nil, "", err
		}
		customer.Address = resolved.Address
		customer.City = resolved.City
		customer.Region = resolved.Region
		customer.Reference = resolved.Reference
	}

	draft := &models.CheckoutDraft{
		ID:       uuid.New().String(),
		CartKey:  cartKey,
		Currency: quote.Currency,
		Items:    cart.Lines,
		Subtotal: quote.Subtotal,
		Shipping: quote.Shipping,
		Amount:   quote.Total,
		Customer: customer,
	}

	token, err := s.signDraft(draft)
	if err != nil {
		return nil, "", err
	}
	log.Info().Str("draft_id", draft.ID).Int64("amount", draft.Amount).Msg("checkout draft created")
	return draft, token, nil
}

func (s *CheckoutService) signDraft(draft *models.CheckoutDraft) (string, error) {
	now := s.clock.Now()
	claims := draftClaims{
		Draft: *draft,
		StandardClaims: jwt.StandardClaims{
			Audience:  draftAudience,
			Id:        draft.ID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.cfg.DraftTTL).Unix(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign checkout draft: %w", err)
	}
	return token, nil
}

// ParseDraft verifies a draft token and returns the draft it carries.
func (s *CheckoutService) ParseDraft(token string) (*models.CheckoutDraft, error) {
	var claims draftClaims
	parser := jwt.Parser{SkipClaimsValidation: true}
	_, err := parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDraft, err)
	}

	// Expiry is checked against the service clock rather than time.Now.
	if !claims.VerifyAudience(draftAudience, true) || claims.Id == "" || claims.Id != claims.Draft.ID {
		return nil, ErrInvalidDraft
	}
	if !claims.VerifyExpiresAt(s.clock.Now().Unix(), true) {
		return nil, fmt.Errorf("%w: expired", ErrInvalidDraft)
	}
	return &claims.Draft, nil
}

// Pay charges the draft amount. Only one payment per draft can be in flight
// or succeed; declined, interrupted and unrecorded attempts release the draft
// so the client can retry, and requires_action is returned for the client to
// resubmit with ThreeDSResult.
func (s *CheckoutService) Pay(ctx context.Context, req PayRequest) (*PayResult, error) {
	draft, err := s.ParseDraft(req.Token)
	if err != nil {
		return nil, err
	}

	draftKey := "draft:" + draft.ID
	first, err := s.processed.MarkProcessed(ctx, draftKey)
	if err != nil {
		return nil, err
	}
	if !first {
		return nil, ErrDraftConsumed
	}

	result := s.charger.Charge(ctx, models.ChargeInput{
		Amount:        draft.Amount,
		Currency:      draft.Currency,
		CardNumber:    req.CardNumber,
		ExpMonth:      req.ExpMonth,
		ExpYear:       req.ExpYear,
		CVC:           req.CVC,
		ThreeDSResult: req.ThreeDSResult,
	})
	monitoring.RecordPayment(string(result.Status), result.Code)

	if result.Status != models.PaymentSucceeded {
		if err := s.processed.Release(context.WithoutCancel(ctx), draftKey); err != nil {
			log.Error().Err(err).Str("draft_id", draft.ID).Msg("failed to release checkout draft")
		}
		log.Info().Str("draft_id", draft.ID).Str("status", string(result.Status)).Str("code", result.Code).Msg("payment not completed")
		return &PayResult{Payment: result}, nil
	}

	order, created, err := s.orders.CompleteCheckout(ctx, *draft, result, payment.Last4(req.CardNumber))
	if err != nil {
		if errors.Is(err, ErrOrderPending) {
			return nil, err
		}
		// The draft stays payable so a retry can record the order.
		if rerr := s.processed.Release(context.WithoutCancel(ctx), draftKey); rerr != nil {
			log.Error().Err(rerr).Str("draft_id", draft.ID).Msg("failed to release checkout draft")
		}
		log.Error().Err(err).Str("draft_id", draft.ID).Str("transaction_id", result.TransactionID).Msg("payment succeeded but the order was not recorded")
		return nil, fmt.Errorf("payment %s succeeded but the order was not recorded: %w", result.TransactionID, err)
	}
	return &PayResult{Payment: result, Order: order, Created: created}, nil
}
