package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"subgate/internal/api/dto"
	"subgate/internal/payment"
	"subgate/internal/payment/service"
)

type Handler struct {
	Service *service.Service
}

func NewHandler(service *service.Service) *Handler {
	return &Handler{Service: service}
}

// Apply is called by the presentation layer after the payment provider
// confirms a payment. The invoice payload doubles as the idempotency key, so
// duplicate webhook deliveries are safe.
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	var req dto.ApplyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := dto.Validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	newExpiry, err := h.Service.Apply(r.Context(), req.ExternalID, req.Amount, req.Days, req.Currency, req.InvoicePayload, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrUnknownUser):
			writeReason(w, http.StatusNotFound, "unknown_user")
		case errors.Is(err, payment.ErrDuplicatePayment):
			writeReason(w, http.StatusConflict, "duplicate_payment")
		case errors.Is(err, payment.ErrInvalidAmountOrDays):
			writeReason(w, http.StatusBadRequest, "invalid_amount_or_days")
		default:
			http.Error(w, "failed to apply payment", http.StatusInternalServerError)
		}
		return
	}

	resp := map[string]interface{}{
		"expires_at": newExpiry,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func writeReason(w http.ResponseWriter, status int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"reason": reason})
}
