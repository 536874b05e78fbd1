package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"subgate/internal/api/dto"
	"subgate/internal/promocode"
	"subgate/internal/promocode/service"
	userservice "subgate/internal/user/service"
)

type Handler struct {
	Service *service.Service
}

func NewHandler(service *service.Service) *Handler {
	return &Handler{Service: service}
}

// Validate is the read-only pre-check the bot shows before asking the user
// to confirm. It reserves nothing.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req dto.ValidatePromoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := dto.Validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pc, err := h.Service.Validate(r.Context(), req.Code, time.Now())
	if err != nil {
		writeRejection(w, err)
		return
	}

	resp := map[string]interface{}{
		"valid": true,
		"code":  pc.Code,
		"days":  pc.Days,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req dto.RedeemPromoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := dto.Validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	red, err := h.Service.Redeem(r.Context(), req.ExternalID, req.Code, time.Now())
	if err != nil {
		writeRejection(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(red)
}

// Create registers a new promo code (admin operation).
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePromoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := dto.Validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		parsed, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			http.Error(w, "invalid expires_at, expected RFC 3339", http.StatusBadRequest)
			return
		}
		expiresAt = &parsed
	}

	pc, err := h.Service.Create(r.Context(), req.Code, req.Days, req.MaxUses, expiresAt)
	if err != nil {
		if errors.Is(err, promocode.ErrCodeExists) {
			writeReason(w, http.StatusConflict, "already_exists")
			return
		}
		if errors.Is(err, promocode.ErrInvalidArgument) {
			writeReason(w, http.StatusBadRequest, "invalid_argument")
			return
		}
		http.Error(w, "failed to create promo code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(pc)
}

// List returns all promo codes, most recently created first (admin operation).
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	promoCodes, err := h.Service.List(r.Context())
	if err != nil {
		http.Error(w, "failed to list promo codes", http.StatusInternalServerError)
		return
	}
	if promoCodes == nil {
		promoCodes = []*promocode.PromoCode{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(promoCodes)
}

// writeRejection maps core sentinels to machine-readable reasons; the bot
// layer owns the user-facing wording.
func writeRejection(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, promocode.ErrNotFound):
		writeReason(w, http.StatusNotFound, "not_found")
	case errors.Is(err, promocode.ErrInactive):
		writeReason(w, http.StatusForbidden, "inactive")
	case errors.Is(err, promocode.ErrExpired):
		writeReason(w, http.StatusForbidden, "expired")
	case errors.Is(err, promocode.ErrExhausted):
		writeReason(w, http.StatusForbidden, "exhausted")
	case errors.Is(err, promocode.ErrAlreadyUsed):
		writeReason(w, http.StatusForbidden, "already_used")
	case errors.Is(err, userservice.ErrUserNotFound):
		writeReason(w, http.StatusNotFound, "unknown_user")
	default:
		http.Error(w, "redemption failed", http.StatusInternalServerError)
	}
}

func writeReason(w http.ResponseWriter, status int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"reason": reason})
}
