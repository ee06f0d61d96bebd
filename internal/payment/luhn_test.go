package payment_test

import (
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"haldor/internal/payment"

	"github.com/stretchr/testify/assert"
)

// withCheckDigit appends the digit that makes body pass the Luhn check.
func withCheckDigit(body string) string {
	sum := 0
	double := true
	for i := len(body) - 1; i >= 0; i-- {
		d := int(body[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return body + strconv.Itoa((10-sum%10)%10)
}

func TestLuhnOK_KnownCards(t *testing.T) {
	tests := []struct {
		number string
		want   bool
	}{
		{"4242424242424242", true},
		{"4242 4242 4242 4242", true},
		{"4242-4242-4242-4242", true},
		{"4000000000000002", true},
		{"4000000000009995", true},
		{"4242424242424241", false},
		{"", false},
		{"abcd", false},
		{"00000000000", false}, // 11 digits, checksum 0
		{"000000000000", true},
	}

	for _, tt := range tests {
		t.Run(tt.number, func(t *testing.T) {
			assert.Equal(t, tt.want, payment.LuhnOK(tt.number))
		})
	}
}

func TestLuhnOK_GeneratedNumbers(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		n := 11 + rng.Intn(8)
		var b strings.Builder
		for j := 0; j < n; j++ {
			b.WriteByte(byte('0' + rng.Intn(10)))
		}
		number := withCheckDigit(b.String())
		assert.True(t, payment.LuhnOK(number), number)

		// Changing any single digit always breaks the checksum.
		pos := rng.Intn(len(number))
		mutated := []byte(number)
		mutated[pos] = byte('0' + (int(mutated[pos]-'0')+1)%10)
		assert.False(t, payment.LuhnOK(string(mutated)), string(mutated))
	}
}

func TestLuhnOK_ShortNumbersAlwaysFail(t *testing.T) {
	for n := 1; n < 12; n++ {
		number := withCheckDigit(strings.Repeat("4", n-1))
		assert.False(t, payment.LuhnOK(number), number)
	}
}

func TestLast4(t *testing.T) {
	assert.Equal(t, "4242", payment.Last4("4242 4242 4242 4242"))
	assert.Equal(t, "0002", payment.Last4("4000000000000002"))
	assert.Equal(t, "12", payment.Last4("1-2"))
}
