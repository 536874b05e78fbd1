package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"subgate/internal/api/dto"
	"subgate/internal/user/service"
)

type Handler struct {
	UserService *service.UserService
}

func NewHandler(us *service.UserService) *Handler {
	return &Handler{UserService: us}
}

// Register handles first contact from the presentation layer. Repeated calls
// for the same external ID are no-ops returning the existing user.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := dto.Validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	u, err := h.UserService.Register(r.Context(), req.ExternalID, req.Username, req.FullName)
	if err != nil {
		http.Error(w, "failed to register user", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(u)
}

func (h *Handler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	externalIDStr := chi.URLParam(r, "externalID")
	externalID, err := strconv.ParseInt(externalIDStr, 10, 64)
	if err != nil {
		http.Error(w, "invalid external ID", http.StatusBadRequest)
		return
	}

	status, err := h.UserService.SubscriptionStatus(r.Context(), externalID, time.Now())
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load subscription", http.StatusInternalServerError)
		return
	}

	resp := map[string]interface{}{
		"active": status.Active,
	}
	if status.Active {
		resp["expires_at"] = status.Expiry
		resp["days_left"] = status.DaysLeft
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.UserService.Stats(r.Context(), time.Now())
	if err != nil {
		http.Error(w, "failed to load stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
