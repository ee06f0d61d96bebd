package models

type PaymentStatus string

const (
	PaymentSucceeded      PaymentStatus = "succeeded"
	PaymentDeclined       PaymentStatus = "declined"
	PaymentRequiresAction PaymentStatus = "requires_action"
	PaymentError          PaymentStatus = "error"
)

// Payment outcome codes.
const (
	CodeInvalidNumber        = "invalid_number"
	CodeInvalidCVC           = "invalid_cvc"
	CodeExpiredCard          = "expired_card"
	CodeAmountError          = "amount_error"
	CodeCardDeclined         = "card_declined"
	CodeInsufficientFunds    = "insufficient_funds"
	CodeAuthenticationFailed = "authentication_failed"
	CodeThreeDSecure         = "three_d_secure"
	CodeNetworkError         = "network_error"
)

// 3-D Secure answers a client may submit after a requires_action result.
const (
	ThreeDSApproved = "approved"
	ThreeDSDeclined = "declined"
)

// ChargeInput is one card charge attempt.
type ChargeInput struct {
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	CardNumber    string `json:"card_number"`
	ExpMonth      string `json:"exp_month"`
	ExpYear       string `json:"exp_year"`
	CVC           string `json:"cvc"`
	ThreeDSResult string `json:"three_ds_result,omitempty"`
}

// PaymentResult is produced by the simulator and consumed immediately.
type PaymentResult struct {
	Status        PaymentStatus `json:"status"`
	Code          string        `json:"code,omitempty"`
	Message       string        `json:"message,omitempty"`
	TransactionID string        `json:"transaction_id,omitempty"`
}
