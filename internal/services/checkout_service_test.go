package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"haldor/internal/models"
	"haldor/internal/payment"
	"haldor/internal/repositories"
	"haldor/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutService_Quote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := services.GuestCartKey("quote")

	q, err := f.checkout.Quote(ctx, key, "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), q.Shipping, "empty cart ships free")
	assert.Equal(t, int64(0), q.Total)

	_, err = f.carts.AddProduct(ctx, key, "P", 1)
	require.NoError(t, err)

	q, err = f.checkout.Quote(ctx, key, models.ShippingStandard)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), q.Subtotal)
	assert.Equal(t, int64(3990), q.Shipping)
	assert.Equal(t, int64(13990), q.Total)
	assert.Equal(t, "CLP", q.Currency)

	q, err = f.checkout.Quote(ctx, key, models.ShippingExpress)
	require.NoError(t, err)
	assert.Equal(t, int64(16990), q.Total)

	_, err = f.checkout.Quote(ctx, key, "drone")
	assert.True(t, errors.Is(err, services.ErrInvalidShipping))
}

func TestCheckoutService_CreateDraftRequiresItems(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.checkout.CreateDraft(context.Background(), services.GuestCartKey("empty"), "", services.CheckoutRequest{Customer: validCustomer()})
	assert.True(t, errors.Is(err, services.ErrEmptyCart))
}

func TestCheckoutService_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := services.GuestCartKey("e2e")

	cart, err := f.carts.AddProduct(ctx, key, "P", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.Count)
	assert.Equal(t, int64(10000), cart.Subtotal)

	draft, token, err := f.checkout.CreateDraft(ctx, key, "", services.CheckoutRequest{
		ShippingMethod: models.ShippingStandard,
		Customer:       validCustomer(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(13990), draft.Amount)
	assert.NotEmpty(t, token)

	parsed, err := f.checkout.ParseDraft(token)
	require.NoError(t, err)
	assert.Equal(t, *draft, *parsed)

	res, err := f.checkout.Pay(ctx, goodCard(token))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSucceeded, res.Payment.Status)
	assert.Regexp(t, `^txn_[0-9A-Z]{12}$`, res.Payment.TransactionID)
	require.NotNil(t, res.Order)
	assert.True(t, res.Created)
	assert.Equal(t, int64(13990), res.Order.Total)
	assert.Equal(t, models.OrderStatusPaid, res.Order.Status)
	assert.Equal(t, "4242", res.Order.Payment.Last4)

	all, err := f.orders.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	cart, err = f.carts.Get(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)

	// The same draft cannot be paid twice.
	_, err = f.checkout.Pay(ctx, goodCard(token))
	assert.True(t, errors.Is(err, services.ErrDraftConsumed))
	all, _ = f.orders.GetAll(ctx)
	assert.Len(t, all, 1)
}

func newDraft(t *testing.T, f *fixture, key string) string {
	t.Helper()
	_, err := f.carts.AddProduct(context.Background(), key, "P", 1)
	require.NoError(t, err)
	_, token, err := f.checkout.CreateDraft(context.Background(), key, "", services.CheckoutRequest{Customer: validCustomer()})
	require.NoError(t, err)
	return token
}

func TestCheckoutService_DeclineCanBeRetried(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := services.GuestCartKey("retry")
	token := newDraft(t, f, key)

	req := goodCard(token)
	req.CardNumber = "4000000000000002"
	res, err := f.checkout.Pay(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentDeclined, res.Payment.Status)
	assert.Equal(t, models.CodeCardDeclined, res.Payment.Code)
	assert.Nil(t, res.Order)

	all, _ := f.orders.GetAll(ctx)
	assert.Empty(t, all)
	cart, _ := f.carts.Get(ctx, key)
	assert.Len(t, cart.Lines, 1, "cart survives a decline")

	res, err = f.checkout.Pay(ctx, goodCard(token))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSucceeded, res.Payment.Status)
}

func TestCheckoutService_ThreeDSecure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	token := newDraft(t, f, services.GuestCartKey("3ds"))

	req := goodCard(token)
	req.CardNumber = "4000000000009995"

	res, err := f.checkout.Pay(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRequiresAction, res.Payment.Status)
	assert.Equal(t, models.CodeThreeDSecure, res.Payment.Code)

	req.ThreeDSResult = models.ThreeDSDeclined
	res, err = f.checkout.Pay(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentDeclined, res.Payment.Status)
	assert.Equal(t, models.CodeAuthenticationFailed, res.Payment.Code)

	req.ThreeDSResult = models.ThreeDSApproved
	res, err = f.checkout.Pay(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSucceeded, res.Payment.Status)
	require.NotNil(t, res.Order)
	assert.Equal(t, "9995", res.Order.Payment.Last4)
}

func TestCheckoutService_RejectsBadTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	token := newDraft(t, f, services.GuestCartKey("tokens"))

	_, err := f.checkout.Pay(ctx, goodCard(token+"x"))
	assert.True(t, errors.Is(err, services.ErrInvalidDraft))

	_, err = f.checkout.Pay(ctx, goodCard("not-a-token"))
	assert.True(t, errors.Is(err, services.ErrInvalidDraft))

	// Login tokens signed with the same secret are not drafts.
	auth := services.NewAuthService(repositories.NewGORMUserRepository(f.db), testSecret, time.Hour, time.Hour)
	_, pair, err := auth.Register(ctx, services.RegisterRequest{FirstName: "A", LastName: "B", Email: "a@b.cl", Password: "password123", Password2: "password123"})
	require.NoError(t, err)
	_, err = f.checkout.Pay(ctx, goodCard(pair.Access))
	assert.True(t, errors.Is(err, services.ErrInvalidDraft))

	f.clock.Advance(31 * time.Minute)
	_, err = f.checkout.Pay(ctx, goodCard(token))
	assert.True(t, errors.Is(err, services.ErrInvalidDraft))
}

func TestCheckoutService_ConcurrentPaymentsOfOneDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	token := newDraft(t, f, services.GuestCartKey("race"))

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeededCount := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.checkout.Pay(ctx, goodCard(token))
			if err != nil {
				assert.True(t, errors.Is(err, services.ErrDraftConsumed))
				return
			}
			if res.Payment.Status == models.PaymentSucceeded {
				mu.Lock()
				succeededCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeededCount)
	all, err := f.orders.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCheckoutService_SavedAddress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := services.UserCartKey("u1")

	address := &models.Address{Label: "Casa", Street: "Av. Providencia 1234", CommuneID: 13123, Reference: "Depto 5"}
	require.NoError(t, f.locations.CreateAddress(ctx, "u1", address))

	_, err := f.carts.AddProduct(ctx, key, "P", 1)
	require.NoError(t, err)

	draft, _, err := f.checkout.CreateDraft(ctx, key, "u1", services.CheckoutRequest{
		Customer:  models.Customer{Name: "Astrid", Email: "astrid@example.com"},
		AddressID: address.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Av. Providencia 1234", draft.Customer.Address)
	assert.Equal(t, "Providencia", draft.Customer.City)
	assert.Equal(t, "Metropolitana de Santiago", draft.Customer.Region)
	assert.Equal(t, "Depto 5", draft.Customer.Reference)

	_, _, err = f.checkout.CreateDraft(ctx, key, "someone-else", services.CheckoutRequest{
		Customer:  validCustomer(),
		AddressID: address.ID,
	})
	assert.True(t, errors.Is(err, services.ErrForbidden))

	_, _, err = f.checkout.CreateDraft(ctx, key, "", services.CheckoutRequest{
		Customer:  validCustomer(),
		AddressID: address.ID,
	})
	assert.True(t, errors.Is(err, services.ErrForbidden))
}

func TestCheckoutService_RetryAfterOrderWriteFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := services.GuestCartKey("flaky")

	orders := &failingOrderRepository{MockOrderRepository: repositories.NewMockOrderRepository(), fail: true}
	orderSvc := services.NewOrderService(orders, f.processed, f.carts, nil, f.clock)
	sim := payment.NewSimulator(payment.WithClock(f.clock), payment.WithDelay(0))
	checkout := services.NewCheckoutService(f.carts, orderSvc, f.locations, sim, f.processed, f.clock, services.CheckoutConfig{
		Secret:           testSecret,
		DraftTTL:         30 * time.Minute,
		ShippingStandard: 3990,
		ShippingExpress:  6990,
		Currency:         "CLP",
	})

	_, err := f.carts.AddProduct(ctx, key, "P", 1)
	require.NoError(t, err)
	_, token, err := checkout.CreateDraft(ctx, key, "", services.CheckoutRequest{Customer: validCustomer()})
	require.NoError(t, err)

	_, err = checkout.Pay(ctx, goodCard(token))
	require.Error(t, err)
	assert.False(t, errors.Is(err, services.ErrDraftConsumed))

	orders.fail = false
	result, err := checkout.Pay(ctx, goodCard(token))
	require.NoError(t, err)
	require.NotNil(t, result.Order)
	assert.True(t, result.Created)

	all, err := orders.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	cart, err := f.carts.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 0, cart.Count)
}
