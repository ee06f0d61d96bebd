package payment_test

import (
	"context"
	"testing"
	"time"

	"haldor/internal/clock"
	"haldor/internal/models"
	"haldor/internal/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func newTestSimulator() (*payment.Simulator, *clock.MockClock) {
	c := clock.NewMockClock(testNow)
	return payment.NewSimulator(payment.WithClock(c)), c
}

func validInput(card string) models.ChargeInput {
	return models.ChargeInput{
		Amount:     13990,
		Currency:   "CLP",
		CardNumber: card,
		ExpMonth:   "12",
		ExpYear:    "29",
		CVC:        "123",
	}
}

func TestSimulator_Outcomes(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*models.ChargeInput)
		card       string
		wantStatus models.PaymentStatus
		wantCode   string
	}{
		{"success", nil, payment.CardSuccess, models.PaymentSucceeded, ""},
		{"success with spaces", nil, "4242 4242 4242 4242", models.PaymentSucceeded, ""},
		{"declined", nil, payment.CardDeclined, models.PaymentDeclined, models.CodeCardDeclined},
		{"insufficient funds", nil, payment.CardInsufficientFunds, models.PaymentDeclined, models.CodeInsufficientFunds},
		{"forced expiry", nil, payment.CardExpired, models.PaymentError, models.CodeExpiredCard},
		{"3ds required", nil, payment.CardThreeDSecure, models.PaymentRequiresAction, models.CodeThreeDSecure},
		{"3ds declined", func(in *models.ChargeInput) { in.ThreeDSResult = models.ThreeDSDeclined },
			payment.CardThreeDSecure, models.PaymentDeclined, models.CodeAuthenticationFailed},
		{"3ds approved", func(in *models.ChargeInput) { in.ThreeDSResult = models.ThreeDSApproved },
			payment.CardThreeDSecure, models.PaymentSucceeded, ""},
		{"bad luhn", nil, "4242424242424241", models.PaymentError, models.CodeInvalidNumber},
		{"short number", nil, "4242", models.PaymentError, models.CodeInvalidNumber},
		{"bad cvc", func(in *models.ChargeInput) { in.CVC = "12" }, payment.CardSuccess, models.PaymentError, models.CodeInvalidCVC},
		{"alpha cvc", func(in *models.ChargeInput) { in.CVC = "12a" }, payment.CardSuccess, models.PaymentError, models.CodeInvalidCVC},
		{"four digit cvc", func(in *models.ChargeInput) { in.CVC = "1234" }, payment.CardSuccess, models.PaymentSucceeded, ""},
		{"expired", func(in *models.ChargeInput) { in.ExpMonth, in.ExpYear = "02", "26" }, payment.CardSuccess, models.PaymentError, models.CodeExpiredCard},
		{"expires end of this month", func(in *models.ChargeInput) { in.ExpMonth, in.ExpYear = "03", "2026" }, payment.CardSuccess, models.PaymentSucceeded, ""},
		{"garbage expiry", func(in *models.ChargeInput) { in.ExpMonth = "13" }, payment.CardSuccess, models.PaymentError, models.CodeExpiredCard},
		{"zero amount", func(in *models.ChargeInput) { in.Amount = 0 }, payment.CardSuccess, models.PaymentError, models.CodeAmountError},
		{"negative amount", func(in *models.ChargeInput) { in.Amount = -5 }, payment.CardSuccess, models.PaymentError, models.CodeAmountError},
		// Format checks take precedence over the test-card table.
		{"declined card bad cvc", func(in *models.ChargeInput) { in.CVC = "1" }, payment.CardDeclined, models.PaymentError, models.CodeInvalidCVC},
		{"3ds card zero amount", func(in *models.ChargeInput) { in.Amount = 0 }, payment.CardThreeDSecure, models.PaymentError, models.CodeAmountError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim, _ := newTestSimulator()
			in := validInput(tt.card)
			if tt.mutate != nil {
				tt.mutate(&in)
			}

			res := sim.Charge(context.Background(), in)
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Equal(t, tt.wantCode, res.Code)
			if tt.wantStatus == models.PaymentSucceeded {
				assert.NotEmpty(t, res.TransactionID)
				assert.Empty(t, res.Message)
			} else {
				assert.Empty(t, res.TransactionID)
				assert.NotEmpty(t, res.Message)
			}
		})
	}
}

func TestSimulator_Deterministic(t *testing.T) {
	sim, _ := newTestSimulator()
	for _, card := range []string{payment.CardSuccess, payment.CardDeclined, payment.CardThreeDSecure, "1234"} {
		first := sim.Charge(context.Background(), validInput(card))
		second := sim.Charge(context.Background(), validInput(card))
		assert.Equal(t, first.Status, second.Status, card)
		assert.Equal(t, first.Code, second.Code, card)
	}
}

func TestSimulator_FreshTransactionIDs(t *testing.T) {
	sim, _ := newTestSimulator()
	a := sim.Charge(context.Background(), validInput(payment.CardSuccess))
	b := sim.Charge(context.Background(), validInput(payment.CardSuccess))
	require.Equal(t, models.PaymentSucceeded, a.Status)
	assert.Regexp(t, `^txn_[0-9A-Z]{12}$`, a.TransactionID)
	assert.NotEqual(t, a.TransactionID, b.TransactionID)
}

func TestSimulator_WaitsForDelay(t *testing.T) {
	sim, c := newTestSimulator()
	sim.Charge(context.Background(), validInput(payment.CardSuccess))
	assert.Equal(t, testNow.Add(payment.DefaultDelay), c.Now())
}

func TestSimulator_CancelledContext(t *testing.T) {
	sim := payment.NewSimulator(payment.WithDelay(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := sim.Charge(ctx, validInput(payment.CardSuccess))
	assert.Equal(t, models.PaymentError, res.Status)
	assert.Equal(t, models.CodeNetworkError, res.Code)
}

func TestSimulator_CustomIDGenerator(t *testing.T) {
	sim := payment.NewSimulator(
		payment.WithClock(clock.NewMockClock(testNow)),
		payment.WithIDGenerator(func() string { return "txn_FIXED" }),
	)
	res := sim.Charge(context.Background(), validInput(payment.CardSuccess))
	assert.Equal(t, "txn_FIXED", res.TransactionID)
}
