package http

import (
	"encoding/json"
	"net/http"
	"time"

	"subgate/internal/api/dto"
	"subgate/internal/auth"
	"subgate/internal/token"
	tokenrepository "subgate/internal/token/repository"
	"subgate/pkg/hash"
)

// Handler issues service tokens to the presentation layer. There is a single
// credential pair configured through the environment.
type Handler struct {
	JWT          *auth.JWTManager
	Tokens       *tokenrepository.RefreshTokenRepository
	User         string
	PasswordHash string
}

func NewHandler(jwt *auth.JWTManager, tokens *tokenrepository.RefreshTokenRepository, user, passwordHash string) *Handler {
	return &Handler{
		JWT:          jwt,
		Tokens:       tokens,
		User:         user,
		PasswordHash: passwordHash,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := dto.Validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Username != h.User || !hash.CheckPassword(h.PasswordHash, req.Password) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	accessToken, err := h.JWT.Generate(req.Username)
	if err != nil {
		http.Error(w, "token error", http.StatusInternalServerError)
		return
	}

	refresh, err := token.NewRefreshToken(req.Username)
	if err != nil {
		http.Error(w, "token error", http.StatusInternalServerError)
		return
	}
	if err := h.Tokens.Save(r.Context(), refresh); err != nil {
		http.Error(w, "token error", http.StatusInternalServerError)
		return
	}

	resp := map[string]string{
		"token":         accessToken,
		"refresh_token": refresh.Token,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := dto.Validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	stored, err := h.Tokens.GetByToken(r.Context(), req.RefreshToken)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if err := token.Validate(stored, time.Now()); err != nil {
		h.Tokens.DeleteByToken(r.Context(), stored.Token)
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	// Rotate the refresh token on every use.
	if err := h.Tokens.DeleteByToken(r.Context(), stored.Token); err != nil {
		http.Error(w, "token error", http.StatusInternalServerError)
		return
	}
	refresh, err := token.NewRefreshToken(stored.Subject)
	if err != nil {
		http.Error(w, "token error", http.StatusInternalServerError)
		return
	}
	if err := h.Tokens.Save(r.Context(), refresh); err != nil {
		http.Error(w, "token error", http.StatusInternalServerError)
		return
	}

	accessToken, err := h.JWT.Generate(stored.Subject)
	if err != nil {
		http.Error(w, "token error", http.StatusInternalServerError)
		return
	}

	resp := map[string]string{
		"token":         accessToken,
		"refresh_token": refresh.Token,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
