package payment

import "strings"

const minCardDigits = 12

// digitsOnly drops every character that is not an ASCII digit.
func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LuhnOK reports whether number has at least 12 digits and passes the Luhn
// checksum. Non-digit characters are ignored.
func LuhnOK(number string) bool {
	s := digitsOnly(number)
	sum := 0
	double := false
	for i := len(s) - 1; i >= 0; i-- {
		d := int(s[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return len(s) >= minCardDigits && sum%10 == 0
}

// Last4 returns the last four digits of a card number, or fewer if it is short.
func Last4(number string) string {
	s := digitsOnly(number)
	if len(s) <= 4 {
		return s
	}
	return s[len(s)-4:]
}
