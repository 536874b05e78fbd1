package payment

import (
	"errors"
	"time"
)

var (
	ErrUnknownUser         = errors.New("payment user not registered")
	ErrDuplicatePayment    = errors.New("payment already applied")
	ErrInvalidAmountOrDays = errors.New("amount and days must be positive")
)

// Payment is an immutable record of one confirmed external payment.
type Payment struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	Amount         int64     `json:"amount"` // integer value in the provider's unit
	Days           int       `json:"days"`
	Currency       string    `json:"currency"`
	InvoicePayload string    `json:"invoice_payload"` // idempotency key from the provider
	PaidAt         time.Time `json:"paid_at"`
}
