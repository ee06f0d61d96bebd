package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"haldor/internal/models"
	"haldor/internal/repositories"
	"haldor/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func paidDraft(cartKey string) models.CheckoutDraft {
	return models.CheckoutDraft{
		ID:       "draft-1",
		CartKey:  cartKey,
		Currency: "CLP",
		Items:    []models.CartLine{{ProductID: "P", Name: "Producto P", UnitPrice: 10000, Quantity: 1}},
		Subtotal: 10000,
		Shipping: 3990,
		Amount:   13990,
		Customer: validCustomer(),
	}
}

func succeeded(tx string) models.PaymentResult {
	return models.PaymentResult{Status: models.PaymentSucceeded, TransactionID: tx}
}

func TestOrderService_CompleteCheckout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := services.GuestCartKey("buyer")
	_, err := f.carts.AddProduct(ctx, key, "P", 1)
	require.NoError(t, err)

	order, created, err := f.orderSvc.CompleteCheckout(ctx, paidDraft(key), succeeded("txn_AAA"), "4242")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.OrderStatusPaid, order.Status)
	assert.Equal(t, int64(13990), order.Total)
	assert.Equal(t, fixedNow, order.CreatedAt)
	assert.Equal(t, "txn_AAA", order.Payment.TransactionID)
	assert.Equal(t, models.PaymentMethodCard, order.Payment.Method)
	assert.Equal(t, "4242", order.Payment.Last4)

	cart, err := f.carts.Get(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)

	consumed, err := f.processed.IsProcessed(ctx, "draft:draft-1")
	require.NoError(t, err)
	assert.True(t, consumed)

	f.publisher.AssertCalled(t, "Publish", services.RoutingKeyOrderPaid, mock.MatchedBy(func(body []byte) bool {
		var evt services.OrderPaidEvent
		return json.Unmarshal(body, &evt) == nil && evt.OrderID == order.ID && evt.Total == 13990 && evt.Items == 1
	}))
}

func TestOrderService_CompleteCheckoutIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draft := paidDraft(services.GuestCartKey("buyer"))

	first, created, err := f.orderSvc.CompleteCheckout(ctx, draft, succeeded("txn_BBB"), "4242")
	require.NoError(t, err)
	require.True(t, created)

	again, created, err := f.orderSvc.CompleteCheckout(ctx, draft, succeeded("txn_BBB"), "4242")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	all, err := f.orders.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	f.publisher.AssertNumberOfCalls(t, "Publish", 1)
}

func TestOrderService_CompleteCheckoutConcurrentReplays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draft := paidDraft(services.GuestCartKey("buyer"))

	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := f.orderSvc.CompleteCheckout(ctx, draft, succeeded("txn_RACE"), "4242")
			if err != nil {
				assert.True(t, errors.Is(err, services.ErrOrderPending))
				return
			}
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, createdCount)
	all, err := f.orders.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestOrderService_RejectsUnsuccessfulPayment(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.orderSvc.CompleteCheckout(context.Background(), paidDraft("guest:x"),
		models.PaymentResult{Status: models.PaymentDeclined, Code: models.CodeCardDeclined}, "0002")
	assert.Error(t, err)

	all, _ := f.orders.GetAll(context.Background())
	assert.Empty(t, all)
}

type failingOrderRepository struct {
	*repositories.MockOrderRepository
	fail bool
}

func (r *failingOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if r.fail {
		return errors.New("disk full")
	}
	return r.MockOrderRepository.Create(ctx, order)
}

func TestOrderService_ReleasesClaimWhenCreateFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := &failingOrderRepository{MockOrderRepository: repositories.NewMockOrderRepository(), fail: true}
	svc := services.NewOrderService(repo, f.processed, f.carts, nil, f.clock)

	_, _, err := svc.CompleteCheckout(ctx, paidDraft("guest:x"), succeeded("txn_CCC"), "4242")
	require.Error(t, err)

	repo.fail = false
	order, created, err := svc.CompleteCheckout(ctx, paidDraft("guest:x"), succeeded("txn_CCC"), "4242")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "txn_CCC", order.Payment.TransactionID)
}

func TestOrderService_PublishFailureDoesNotFailCheckout(t *testing.T) {
	f := newFixture(t)
	publisher := new(MockPublisher)
	publisher.On("Publish", services.RoutingKeyOrderPaid, mock.Anything).Return(errors.New("broker down")).Once()
	svc := services.NewOrderService(f.orders, f.processed, f.carts, publisher, f.clock)

	_, created, err := svc.CompleteCheckout(context.Background(), paidDraft("guest:x"), succeeded("txn_DDD"), "4242")
	require.NoError(t, err)
	assert.True(t, created)
	publisher.AssertExpectations(t)
}

func TestOrderService_ListAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mine, _, err := f.orderSvc.CompleteCheckout(ctx, paidDraft("user:1"), succeeded("txn_1"), "4242")
	require.NoError(t, err)
	f.clock.Advance(1000)
	other := paidDraft("user:2")
	other.ID = "draft-2"
	_, _, err = f.orderSvc.CompleteCheckout(ctx, other, succeeded("txn_2"), "4242")
	require.NoError(t, err)

	list, err := f.orderSvc.List(ctx, "user:1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	got, err := f.orderSvc.Get(ctx, "user:1", mine.ID)
	require.NoError(t, err)
	assert.Equal(t, mine.ID, got.ID)

	_, err = f.orderSvc.Get(ctx, "user:2", mine.ID)
	assert.True(t, errors.Is(err, repositories.ErrNotFound))

	byTx, err := f.orderSvc.GetByTransaction(ctx, "txn_2")
	require.NoError(t, err)
	assert.Equal(t, "user:2", byTx.OwnerKey)

	require.NoError(t, f.orderSvc.Clear(ctx))
	list, err = f.orderSvc.List(ctx, "user:1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestNewOrderID(t *testing.T) {
	millis := fixedNow.UnixMilli()
	id := services.NewOrderID(millis)

	assert.Regexp(t, regexp.MustCompile(`^ORD-[0-9A-Z]+-[0-9A-Z]{4}$`), id)
	assert.True(t, strings.HasPrefix(id, "ORD-"+strings.ToUpper(strconv.FormatInt(millis, 36))+"-"))

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		seen[services.NewOrderID(millis)] = true
	}
	assert.Greater(t, len(seen), 90)
}
