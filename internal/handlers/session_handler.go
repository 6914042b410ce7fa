package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"wortschatz/internal/content"
	"wortschatz/internal/models"
	"wortschatz/internal/quiz"
	"wortschatz/internal/service"
)

// SessionHandler exposes quiz sessions of the authenticated user.
type SessionHandler struct {
	quiz *service.QuizService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(quizService *service.QuizService) *SessionHandler {
	return &SessionHandler{quiz: quizService}
}

type startSessionRequest struct {
	Kind  quiz.Kind `json:"kind"`
	Level string    `json:"level,omitempty"`
	Scope string    `json:"scope"`
}

type answerRequest struct {
	Option *int `json:"option"`
}

// Start opens a session. A level in the body takes precedence over ?level=.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req startSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Scope == "" {
		respondWithError(w, http.StatusBadRequest, "scope is required", "", nil)
		return
	}

	ctx := r.Context()
	if req.Level != "" {
		lvl, err := models.ParseLevel(req.Level)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Unknown level "+req.Level, "", nil)
			return
		}
		ctx = content.WithLevel(ctx, lvl)
	}

	view, err := h.quiz.Start(ctx, userID, req.Kind, req.Scope)
	if err != nil {
		respondWithServiceError(w, "start session", err)
		return
	}
	respondWithJSON(w, http.StatusCreated, view)
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := sessionParams(w, r)
	if !ok {
		return
	}
	view, err := h.quiz.Get(userID, sessionID)
	if err != nil {
		respondWithServiceError(w, "get session", err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

func (h *SessionHandler) Answer(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := sessionParams(w, r)
	if !ok {
		return
	}

	var req answerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Option == nil {
		respondWithError(w, http.StatusBadRequest, "option is required", "", nil)
		return
	}

	res, err := h.quiz.Answer(r.Context(), userID, sessionID, *req.Option)
	if err != nil {
		respondWithServiceError(w, "answer", err)
		return
	}
	if res.PersistErr != nil {
		slog.Warn("answer not persisted", "user_id", userID, "session_id", sessionID, "error", res.PersistErr)
	}
	respondWithJSON(w, http.StatusOK, res)
}

func (h *SessionHandler) Next(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := sessionParams(w, r)
	if !ok {
		return
	}
	view, err := h.quiz.Advance(userID, sessionID)
	if err != nil {
		respondWithServiceError(w, "advance session", err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

func (h *SessionHandler) Finish(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := sessionParams(w, r)
	if !ok {
		return
	}
	res, err := h.quiz.Finish(r.Context(), userID, sessionID)
	if err != nil {
		respondWithServiceError(w, "finish session", err)
		return
	}
	if res.PersistErr != nil {
		slog.Warn("session result not persisted", "user_id", userID, "session_id", sessionID, "error", res.PersistErr)
	}
	respondWithJSON(w, http.StatusOK, res)
}

func (h *SessionHandler) Review(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := sessionParams(w, r)
	if !ok {
		return
	}
	mistakes, err := h.quiz.Review(userID, sessionID)
	if err != nil {
		respondWithServiceError(w, "review session", err)
		return
	}
	respondWithJSON(w, http.StatusOK, orEmpty(mistakes))
}

func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := sessionParams(w, r)
	if !ok {
		return
	}
	if err := h.quiz.Cancel(userID, sessionID); err != nil {
		respondWithServiceError(w, "cancel session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func sessionParams(w http.ResponseWriter, r *http.Request) (int64, string, bool) {
	userID, ok := requireUser(w, r)
	return userID, mux.Vars(r)["id"], ok
}
