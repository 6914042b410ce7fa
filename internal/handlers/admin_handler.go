package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"wortschatz/internal/content"
	"wortschatz/internal/models"
)

// LevelSaver persists the default level across restarts.
type LevelSaver interface {
	SaveCurrentLevel(ctx context.Context, lvl models.Level) error
}

// AdminHandler changes process-wide content state.
type AdminHandler struct {
	content *content.Resolver
	saver   LevelSaver
}

// NewAdminHandler creates a new admin handler. saver may be nil, in which
// case level changes last until restart.
func NewAdminHandler(resolver *content.Resolver, saver LevelSaver) *AdminHandler {
	return &AdminHandler{content: resolver, saver: saver}
}

type setLevelRequest struct {
	Major string `json:"major"`
	Sub   int    `json:"sub"`
}

type setLevelResponse struct {
	levelResponse
	Persisted bool `json:"persisted"`
}

type reloadResponse struct {
	Reloaded []string `json:"reloaded"`
}

// SetCurrentLevel changes the default level used by requests without an
// explicit level.
func (h *AdminHandler) SetCurrentLevel(w http.ResponseWriter, r *http.Request) {
	var req setLevelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !h.content.SetCurrentLevel(req.Major, req.Sub) {
		respondWithError(w, http.StatusBadRequest, "Unknown level", "", nil)
		return
	}

	lvl := h.content.CurrentLevel()
	userID, _ := GetUserIDFromContext(r.Context())
	slog.Info("current level changed", "level", lvl.Key(), "user_id", userID)

	resp := setLevelResponse{levelResponse: newLevelResponse(lvl)}
	if h.saver != nil {
		if err := h.saver.SaveCurrentLevel(r.Context(), lvl); err != nil {
			slog.Error("persist current level", "level", lvl.Key(), "error", err)
		} else {
			resp.Persisted = true
		}
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// Reload drops cached content of ?level=, or of every level, and loads it
// again on next use.
func (h *AdminHandler) Reload(w http.ResponseWriter, r *http.Request) {
	var levels []models.Level
	if key := r.URL.Query().Get("level"); key != "" {
		lvl, err := models.ParseLevel(key)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Unknown level "+key, "", nil)
			return
		}
		levels = append(levels, lvl)
	}

	h.content.Reload(levels...)

	resp := reloadResponse{Reloaded: []string{"all"}}
	if len(levels) > 0 {
		resp.Reloaded = []string{levels[0].Key()}
	}
	slog.Info("content reloaded", "levels", resp.Reloaded)
	respondWithJSON(w, http.StatusOK, resp)
}
