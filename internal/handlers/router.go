package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Routes groups the handlers served by the API router.
type Routes struct {
	Startup    *StartupStatus
	Middleware *Middleware
	Content    *ContentHandler
	Sessions   *SessionHandler
	Progress   *ProgressHandler
	Auth       *AuthHandler
	Admin      *AdminHandler
}

// NewRouter builds the HTTP API. Every /api route accepts ?level= to scope
// content to a level other than the current one.
func NewRouter(h Routes) *mux.Router {
	r := mux.NewRouter()
	r.Use(Logging)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondWithError(w, http.StatusNotFound, ErrNotFound, "", nil)
	})

	r.HandleFunc("/health", h.Startup.Health).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(LevelScope)

	api.Handle("/auth/telegram", h.Middleware.RateLimit(http.HandlerFunc(h.Auth.Telegram))).Methods("POST")

	api.HandleFunc("/levels", h.Content.Levels).Methods("GET")
	api.HandleFunc("/levels/current", h.Content.CurrentLevel).Methods("GET")
	api.HandleFunc("/stats", h.Content.Stats).Methods("GET")
	api.HandleFunc("/categories", h.Content.Categories).Methods("GET")
	api.HandleFunc("/categories/{id}/distractors", h.Content.Distractors).Methods("GET")
	api.HandleFunc("/words", h.Content.Words).Methods("GET")
	api.HandleFunc("/words/random", h.Content.RandomWords).Methods("GET")
	api.HandleFunc("/tests", h.Content.Tests).Methods("GET")
	api.HandleFunc("/tests/{id}", h.Content.Test).Methods("GET")
	api.HandleFunc("/tests/{id}/questions", h.Content.TestQuestions).Methods("GET")
	api.HandleFunc("/tests/{id}/theory", h.Content.TestTheory).Methods("GET")
	api.HandleFunc("/phrases", h.Content.PhraseCategories).Methods("GET")
	api.HandleFunc("/phrases/{id}", h.Content.Phrases).Methods("GET")
	api.HandleFunc("/dialogues", h.Content.Dialogues).Methods("GET")
	api.HandleFunc("/dialogues/{id}", h.Content.Dialogue).Methods("GET")
	api.HandleFunc("/dialogues/{id}/exercises", h.Content.DialogueExercises).Methods("GET")

	authed := api.PathPrefix("/").Subrouter()
	authed.Use(h.Middleware.RequireAuth)

	authed.HandleFunc("/progress", h.Progress.Overview).Methods("GET")
	authed.HandleFunc("/progress/word", h.Progress.RecordWord).Methods("POST")
	authed.HandleFunc("/progress/words/{id}", h.Progress.Word).Methods("GET")
	authed.HandleFunc("/progress/grammar", h.Progress.RecordGrammar).Methods("POST")
	authed.HandleFunc("/progress/daily", h.Progress.Daily).Methods("GET")
	authed.HandleFunc("/reminder", h.Progress.SetReminder).Methods("PUT")

	authed.HandleFunc("/sessions", h.Sessions.Start).Methods("POST")
	authed.HandleFunc("/sessions/{id}", h.Sessions.Get).Methods("GET")
	authed.HandleFunc("/sessions/{id}", h.Sessions.Cancel).Methods("DELETE")
	authed.HandleFunc("/sessions/{id}/answer", h.Sessions.Answer).Methods("POST")
	authed.HandleFunc("/sessions/{id}/next", h.Sessions.Next).Methods("POST")
	authed.HandleFunc("/sessions/{id}/finish", h.Sessions.Finish).Methods("POST")
	authed.HandleFunc("/sessions/{id}/review", h.Sessions.Review).Methods("GET")

	admin := api.PathPrefix("/").Subrouter()
	admin.Use(h.Middleware.RequireAuth, h.Middleware.RequireAdmin)

	admin.HandleFunc("/levels/current", h.Admin.SetCurrentLevel).Methods("PUT")
	admin.HandleFunc("/admin/reload", h.Admin.Reload).Methods("POST")

	return r
}
