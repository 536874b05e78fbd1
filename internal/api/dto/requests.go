package dto

import "github.com/go-playground/validator/v10"

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type RegisterUserRequest struct {
	ExternalID int64  `json:"external_id" validate:"required"`
	Username   string `json:"username"`
	FullName   string `json:"full_name"`
}

type ValidatePromoRequest struct {
	Code string `json:"code" validate:"required"`
}

type RedeemPromoRequest struct {
	ExternalID int64  `json:"external_id" validate:"required"`
	Code       string `json:"code" validate:"required"`
}

type CreatePromoRequest struct {
	Code      string  `json:"code" validate:"required"`
	Days      int     `json:"days" validate:"required,gt=0"`
	MaxUses   int     `json:"max_uses" validate:"required,gt=0"`
	ExpiresAt *string `json:"expires_at"` // RFC 3339, optional
}

type ApplyPaymentRequest struct {
	ExternalID     int64  `json:"external_id" validate:"required"`
	Amount         int64  `json:"amount" validate:"required,gt=0"`
	Days           int    `json:"days" validate:"required,gt=0"`
	Currency       string `json:"currency"`
	InvoicePayload string `json:"invoice_payload" validate:"required"`
}

var Validate = validator.New()
