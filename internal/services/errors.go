package services

import "errors"

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInvalidShipping    = errors.New("unknown shipping method")
	ErrInvalidDraft       = errors.New("invalid or expired checkout draft")
	ErrDraftConsumed      = errors.New("checkout draft already paid")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrForbidden          = errors.New("resource belongs to another user")
	ErrQuantityLimit      = errors.New("cart line quantity above limit")
)
