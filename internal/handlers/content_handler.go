package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"wortschatz/internal/content"
	"wortschatz/internal/models"
)

const (
	defaultRandomWords = 3
	maxRandomWords     = 50
)

// ContentHandler serves read-only content of the requested level.
type ContentHandler struct {
	content *content.Resolver
}

// NewContentHandler creates a new content handler
func NewContentHandler(resolver *content.Resolver) *ContentHandler {
	return &ContentHandler{content: resolver}
}

type levelResponse struct {
	Key         string       `json:"key"`
	Major       models.Major `json:"major"`
	Sub         int          `json:"sub"`
	DisplayName string       `json:"display_name"`
}

func newLevelResponse(lvl models.Level) levelResponse {
	return levelResponse{
		Key:         lvl.Key(),
		Major:       lvl.Major,
		Sub:         lvl.Sub,
		DisplayName: lvl.DisplayName(),
	}
}

// Levels lists all levels with their content availability.
func (h *ContentHandler) Levels(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.content.AvailableLevels())
}

// CurrentLevel returns the level the request resolves to.
func (h *ContentHandler) CurrentLevel(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, newLevelResponse(h.content.Level(r.Context())))
}

func (h *ContentHandler) Categories(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, orEmpty(h.content.Categories(r.Context())))
}

// Words lists the words of ?category=, or every word of the level.
func (h *ContentHandler) Words(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	category := r.URL.Query().Get("category")

	var words []models.Word
	if category == "" {
		words = h.content.AllWords(ctx)
	} else {
		words = h.content.WordsByCategory(ctx, category)
	}
	respondWithJSON(w, http.StatusOK, orEmpty(words))
}

// Distractors returns the author-provided wrong answers of a category.
func (h *ContentHandler) Distractors(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, orEmpty(h.content.CategoryDistractors(r.Context(), mux.Vars(r)["id"])))
}

func (h *ContentHandler) RandomWords(w http.ResponseWriter, r *http.Request) {
	count := defaultRandomWords
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondWithError(w, http.StatusBadRequest, "count must be a positive integer", "", nil)
			return
		}
		count = min(n, maxRandomWords)
	}
	words := h.content.RandomWords(r.Context(), count, r.URL.Query().Get("exclude"))
	respondWithJSON(w, http.StatusOK, orEmpty(words))
}

func (h *ContentHandler) Tests(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, orEmpty(h.content.Tests(r.Context())))
}

func (h *ContentHandler) Test(w http.ResponseWriter, r *http.Request) {
	test, ok := h.content.Test(r.Context(), mux.Vars(r)["id"])
	if !ok {
		respondWithError(w, http.StatusNotFound, ErrNotFound, "", nil)
		return
	}
	respondWithJSON(w, http.StatusOK, test)
}

func (h *ContentHandler) TestQuestions(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, orEmpty(h.content.TestQuestions(r.Context(), mux.Vars(r)["id"])))
}

func (h *ContentHandler) TestTheory(w http.ResponseWriter, r *http.Request) {
	theory := h.content.GrammarTheory(r.Context(), mux.Vars(r)["id"])
	if theory == nil {
		respondWithError(w, http.StatusNotFound, ErrNotFound, "", nil)
		return
	}
	respondWithJSON(w, http.StatusOK, theory)
}

func (h *ContentHandler) PhraseCategories(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, orEmpty(h.content.PhraseCategories(r.Context())))
}

func (h *ContentHandler) Phrases(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, orEmpty(h.content.PhrasesByCategory(r.Context(), mux.Vars(r)["id"])))
}

func (h *ContentHandler) Dialogues(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, orEmpty(h.content.DialogueTopics(r.Context())))
}

func (h *ContentHandler) Dialogue(w http.ResponseWriter, r *http.Request) {
	dialogue, ok := h.content.Dialogue(r.Context(), mux.Vars(r)["id"])
	if !ok {
		respondWithError(w, http.StatusNotFound, ErrNotFound, "", nil)
		return
	}
	respondWithJSON(w, http.StatusOK, dialogue)
}

func (h *ContentHandler) DialogueExercises(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, orEmpty(h.content.DialogueExercises(r.Context(), mux.Vars(r)["id"])))
}

type statsResponse struct {
	Level      levelResponse          `json:"level"`
	Vocabulary models.VocabularyStats `json:"vocabulary"`
	Grammar    models.GrammarStats    `json:"grammar"`
}

// Stats reports the content counts of the level.
func (h *ContentHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	respondWithJSON(w, http.StatusOK, statsResponse{
		Level:      newLevelResponse(h.content.Level(ctx)),
		Vocabulary: h.content.VocabularyStats(ctx),
		Grammar:    h.content.GrammarStats(ctx),
	})
}

// orEmpty keeps empty lists from encoding as null.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
