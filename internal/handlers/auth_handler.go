package handlers

import (
	"errors"
	"net/http"
	"time"

	"wortschatz/internal/security"
	"wortschatz/internal/service"
)

// AuthHandler exchanges Telegram Web App init data for an API token.
type AuthHandler struct {
	verifier *security.InitDataVerifier
	tokens   *security.TokenIssuer
	progress *service.ProgressService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(verifier *security.InitDataVerifier, tokens *security.TokenIssuer, progressService *service.ProgressService) *AuthHandler {
	return &AuthHandler{
		verifier: verifier,
		tokens:   tokens,
		progress: progressService,
	}
}

type telegramAuthRequest struct {
	InitData string `json:"init_data"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Telegram verifies init data, registers the user and issues a token.
func (h *AuthHandler) Telegram(w http.ResponseWriter, r *http.Request) {
	var req telegramAuthRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tgUser, err := h.verifier.Verify(req.InitData)
	if err != nil {
		msg := "Invalid init data"
		if errors.Is(err, security.ErrInitDataExpired) {
			msg = "Init data expired"
		}
		respondWithError(w, http.StatusUnauthorized, msg, "telegram auth rejected", err)
		return
	}

	if _, err := h.progress.Register(r.Context(), tgUser.ID, tgUser.Username, tgUser.FirstName); err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "register user", err)
		return
	}

	token, expires, err := h.tokens.Issue(tgUser.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "issue token", err)
		return
	}

	respondWithJSON(w, http.StatusOK, tokenResponse{Token: token, UserID: tgUser.ID, ExpiresAt: expires})
}
