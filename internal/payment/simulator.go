package payment

import (
	"context"
	"crypto/rand"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"haldor/internal/clock"
	"haldor/internal/models"

	"github.com/rs/zerolog/log"
)

// DefaultDelay emulates the round trip to a card processor.
const DefaultDelay = 1200 * time.Millisecond

// Test card numbers with a forced outcome.
const (
	CardSuccess           = "4242424242424242"
	CardDeclined          = "4000000000000002"
	CardInsufficientFunds = "4000000000000127"
	CardExpired           = "4000000000000069"
	CardThreeDSecure      = "4000000000009995"
)

var cvcPattern = regexp.MustCompile(`^\d{3,4}$`)

var messages = map[string]string{
	models.CodeInvalidNumber:        "Invalid card number.",
	models.CodeInvalidCVC:           "Invalid CVC.",
	models.CodeExpiredCard:          "Card expired.",
	models.CodeAmountError:          "Invalid amount.",
	models.CodeCardDeclined:         "Card declined.",
	models.CodeInsufficientFunds:    "Insufficient funds.",
	models.CodeAuthenticationFailed: "Authentication failed.",
	models.CodeThreeDSecure:         "Authentication required.",
	models.CodeNetworkError:         "Payment network unavailable.",
}

// Charger runs a card charge. The checkout service depends on this, not on
// the simulator directly.
type Charger interface {
	Charge(ctx context.Context, in models.ChargeInput) models.PaymentResult
}

// Simulator is a deterministic stand-in for a card processor. Outcomes depend
// only on the input and the clock; only the transaction id is random.
type Simulator struct {
	clock clock.Clock
	delay time.Duration
	newID func() string
}

// Option customises a Simulator.
type Option func(*Simulator)

// WithClock replaces the wall clock used for the delay and the expiry check.
func WithClock(c clock.Clock) Option {
	return func(s *Simulator) { s.clock = c }
}

// WithDelay sets the artificial latency. Zero disables it.
func WithDelay(d time.Duration) Option {
	return func(s *Simulator) { s.delay = d }
}

// WithIDGenerator replaces the transaction id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Simulator) { s.newID = fn }
}

// NewSimulator creates a Simulator with the default delay and the real clock.
func NewSimulator(opts ...Option) *Simulator {
	s := &Simulator{
		clock: clock.NewRealClock(),
		delay: DefaultDelay,
		newID: NewTransactionID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Charge waits for the configured delay and then decides the outcome. The
// order of the checks matters: format errors win over the test-card table.
func (s *Simulator) Charge(ctx context.Context, in models.ChargeInput) models.PaymentResult {
	if err := s.clock.Sleep(ctx, s.delay); err != nil {
		log.Warn().Err(err).Msg("payment simulation interrupted")
		return result(models.PaymentError, models.CodeNetworkError)
	}

	num := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, in.CardNumber)

	if !LuhnOK(num) {
		return result(models.PaymentError, models.CodeInvalidNumber)
	}
	if !cvcPattern.MatchString(in.CVC) {
		return result(models.PaymentError, models.CodeInvalidCVC)
	}
	if !s.notExpired(in.ExpMonth, in.ExpYear) {
		return result(models.PaymentError, models.CodeExpiredCard)
	}
	if in.Amount <= 0 {
		return result(models.PaymentError, models.CodeAmountError)
	}

	switch num {
	case CardDeclined:
		return result(models.PaymentDeclined, models.CodeCardDeclined)
	case CardInsufficientFunds:
		return result(models.PaymentDeclined, models.CodeInsufficientFunds)
	case CardExpired:
		return result(models.PaymentError, models.CodeExpiredCard)
	case CardThreeDSecure:
		switch in.ThreeDSResult {
		case "":
			return result(models.PaymentRequiresAction, models.CodeThreeDSecure)
		case models.ThreeDSDeclined:
			return result(models.PaymentDeclined, models.CodeAuthenticationFailed)
		}
	}

	return models.PaymentResult{
		Status:        models.PaymentSucceeded,
		TransactionID: s.newID(),
	}
}

// notExpired reports whether the card is still valid at the current instant.
// A card is valid until the first instant of the month after its expiry month.
func (s *Simulator) notExpired(month, year string) bool {
	m, err := strconv.Atoi(strings.TrimSpace(month))
	if err != nil || m < 1 || m > 12 {
		return false
	}
	year = strings.TrimSpace(year)
	if len(year) == 2 {
		year = "20" + year
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return false
	}
	now := s.clock.Now()
	end := time.Date(y, time.Month(m), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)
	return end.After(now)
}

func result(status models.PaymentStatus, code string) models.PaymentResult {
	return models.PaymentResult{Status: status, Code: code, Message: messages[code]}
}

const idAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewTransactionID returns an opaque id such as "txn_4F9Q0ZK1M2XH".
func NewTransactionID() string {
	b := make([]byte, 12)
	max := big.NewInt(int64(len(idAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand does not fail on supported platforms
			panic(err)
		}
		b[i] = idAlphabet[n.Int64()]
	}
	return "txn_" + string(b)
}
