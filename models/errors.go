package models

import "errors"

var (
	ErrValidation        = errors.New("validation failed")
	ErrProductNotFound   = errors.New("product not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrSellerNotFound    = errors.New("seller not found")
	ErrSessionNotFound   = errors.New("checkout session not found")
	ErrInsufficientStock = errors.New("requested quantity exceeds available stock")
	ErrPriceMismatch     = errors.New("unit price does not match listed price")
	ErrInvalidSignature  = errors.New("invalid webhook signature")
	ErrPaymentIncomplete = errors.New("payment not completed")
	ErrUserExists        = errors.New("user already exists")
	ErrDuplicatePurchase = errors.New("purchase already recorded for session")
	ErrUpstream          = errors.New("upstream failure")
)
