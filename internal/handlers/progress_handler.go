package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"wortschatz/internal/service"
)

// ProgressHandler exposes the ledger of the authenticated user.
type ProgressHandler struct {
	progress *service.ProgressService
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(progressService *service.ProgressService) *ProgressHandler {
	return &ProgressHandler{progress: progressService}
}

// wordResultRequest accepts the web app's is_correct and the shorter correct.
type wordResultRequest struct {
	WordID    string `json:"word_id"`
	IsCorrect *bool  `json:"is_correct"`
	Correct   *bool  `json:"correct"`
}

type grammarResultRequest struct {
	TestID string `json:"test_id"`
	Score  int    `json:"score"`
	Total  int    `json:"total"`
}

type reminderRequest struct {
	Enabled bool `json:"enabled"`
	Hour    int  `json:"hour"`
	Minute  int  `json:"minute"`
}

// Overview returns the user's stats relative to the requested level.
func (h *ProgressHandler) Overview(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	overview, err := h.progress.Overview(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, "load progress", err)
		return
	}
	respondWithJSON(w, http.StatusOK, overview)
}

func (h *ProgressHandler) RecordWord(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req wordResultRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	correct := req.IsCorrect
	if correct == nil {
		correct = req.Correct
	}
	if correct == nil {
		respondWithError(w, http.StatusBadRequest, "is_correct is required", "", nil)
		return
	}
	if err := h.progress.RecordWord(r.Context(), userID, req.WordID, *correct); err != nil {
		respondWithServiceError(w, "record word result", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Word returns the user's counters for one word together with the word.
func (h *ProgressHandler) Word(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	status, err := h.progress.WordStatus(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		respondWithServiceError(w, "load word progress", err)
		return
	}
	respondWithJSON(w, http.StatusOK, status)
}

func (h *ProgressHandler) RecordGrammar(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req grammarResultRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.progress.RecordGrammar(r.Context(), userID, req.TestID, req.Score, req.Total); err != nil {
		respondWithServiceError(w, "record grammar result", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Daily lists recent daily aggregates, ?limit= days (default 7).
func (h *ProgressHandler) Daily(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "limit must be an integer", "", nil)
			return
		}
		limit = n
	}
	days, err := h.progress.RecentDays(r.Context(), userID, limit)
	if err != nil {
		respondWithServiceError(w, "load daily stats", err)
		return
	}
	respondWithJSON(w, http.StatusOK, days)
}

func (h *ProgressHandler) SetReminder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req reminderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Hour < 0 || req.Hour > 23 || req.Minute < 0 || req.Minute > 59 {
		respondWithError(w, http.StatusBadRequest, "Invalid reminder time", "", nil)
		return
	}
	user, err := h.progress.SetReminder(r.Context(), userID, req.Enabled, req.Hour, req.Minute)
	if err != nil {
		respondWithServiceError(w, "set reminder", err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

func requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
	}
	return userID, ok
}
