package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wortschatz/internal/content"
	"wortschatz/internal/database"
	"wortschatz/internal/models"
	"wortschatz/internal/repository"
	"wortschatz/internal/security"
	"wortschatz/internal/service"
)

const botToken = "123456:TEST-token"

const (
	learner int64 = 7
	admin   int64 = 99
)

func apiFS() fstest.MapFS {
	return fstest.MapFS{
		"A1/1/vocabulary/family.json": {Data: []byte(`{"id": "family", "name": "Семья", "words": [
			{"de": "die Mutter", "ru": "мать"}, {"de": "der Vater", "ru": "отец"},
			{"de": "die Schwester", "ru": "сестра"}, {"de": "der Bruder", "ru": "брат"},
			{"de": "das Kind", "ru": "ребёнок"}],
			"distractors": ["дядя", "тётя"]}`)},
		"A1/1/grammar/articles.json": {Data: []byte(`{"id": "articles", "name": "Артикли",
			"theory": {"title": "Der, die, das"},
			"questions": [
				{"question": "___ Mann", "options": ["der", "die", "das"], "correct": 0},
				{"question": "___ Frau", "options": ["der", "die", "das"], "correct": 1},
				{"question": "___ Kind", "options": ["der", "die", "das"], "correct": 2}]}`)},
		"A1/1/phrases/greetings.json": {Data: []byte(`{"id": "greetings", "name": "Приветствия",
			"phrases": [{"de": "Guten Tag", "ru": "Добрый день"}]}`)},
		"A1/1/dialogues/cafe.json": {Data: []byte(`{"id": "cafe", "name": "В кафе",
			"dialogue": [{"speaker": "A", "de": "Einen Kaffee, bitte.", "ru": "Кофе, пожалуйста."}],
			"exercises": [{"question": "Was bestellt A?", "options": ["Tee", "Kaffee"], "correct": 1}]}`)},
		"B1/2/vocabulary/work.json": {Data: []byte(`{"id": "work", "name": "Работа",
			"words": [{"de": "die Arbeit", "ru": "работа"}]}`)},
	}
}

type nopLedger struct{}

func (nopLedger) RecordWordResult(context.Context, int64, string, bool) error { return nil }
func (nopLedger) RecordQuestionResult(context.Context, int64, string, string, bool) error {
	return nil
}
func (nopLedger) RecordTestResult(context.Context, int64, string, int, int) error { return nil }
func (nopLedger) RecordDailyAggregate(context.Context, int64, models.DailyDelta) error {
	return nil
}

type memorySaver struct {
	saved []string
}

func (m *memorySaver) SaveCurrentLevel(_ context.Context, lvl models.Level) error {
	m.saved = append(m.saved, lvl.Key())
	return nil
}

type testServer struct {
	router   *mux.Router
	saver    *memorySaver
	startup  *StartupStatus
	resolver *content.Resolver
	tokens   *security.TokenIssuer
	verifier *security.InitDataVerifier
}

// newTestServer wires the API over apiFS. With a nil db, sessions write to a
// no-op ledger and the progress and auth routes must not be used.
func newTestServer(t *testing.T, db *database.DB, authRequests int) *testServer {
	t.Helper()
	resolver := content.NewResolver(content.NewFSStore(apiFS()), models.DefaultLevel)

	var ledger service.Ledger = nopLedger{}
	var progress *service.ProgressService
	if db != nil {
		progressRepo := repository.NewProgressRepository(db)
		ledger = progressRepo
		progress = service.NewProgressService(progressRepo, repository.NewUserRepository(db), resolver)
	}

	ts := &testServer{
		startup:  NewStartupStatus(StepDatabase, StepContent),
		resolver: resolver,
		saver:    &memorySaver{},
		tokens:   security.NewTokenIssuer([]byte("0123456789abcdef0123456789abcdef"), time.Hour),
		verifier: security.NewInitDataVerifier(botToken, time.Hour),
	}
	isAdmin := func(id int64) bool { return id == admin }
	ts.router = NewRouter(Routes{
		Startup:    ts.startup,
		Middleware: NewMiddleware(ts.tokens, isAdmin, security.NewRateLimiter(authRequests, time.Minute)),
		Content:    NewContentHandler(resolver),
		Sessions:   NewSessionHandler(service.NewQuizService(resolver, ledger)),
		Progress:   NewProgressHandler(progress),
		Auth:       NewAuthHandler(ts.verifier, ts.tokens, progress),
		Admin:      NewAdminHandler(resolver, ts.saver),
	})
	return ts
}

func (ts *testServer) token(t *testing.T, userID int64) string {
	t.Helper()
	token, _, err := ts.tokens.Issue(userID)
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "192.0.2.1:1234"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil, 10)

	rec := ts.do(t, "GET", "/health", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	ts.startup.CompleteStep(StepDatabase)
	body := decode[healthResponse](t, ts.do(t, "GET", "/health", nil, ""))
	assert.Equal(t, 50, body.Progress)

	ts.startup.MarkReady()
	rec = ts.do(t, "GET", "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[healthResponse](t, rec).Status)
}

func TestContentRoutes(t *testing.T) {
	ts := newTestServer(t, nil, 10)

	tests := []struct {
		path   string
		status int
		items  int // -1 when the body is not a list
	}{
		{"/api/levels", http.StatusOK, 12},
		{"/api/categories", http.StatusOK, 1},
		{"/api/words", http.StatusOK, 5},
		{"/api/words?category=family", http.StatusOK, 5},
		{"/api/words?category=unknown", http.StatusOK, 0},
		{"/api/words/random", http.StatusOK, 3},
		{"/api/words/random?count=2", http.StatusOK, 2},
		{"/api/words/random?count=0", http.StatusBadRequest, -1},
		{"/api/tests", http.StatusOK, 1},
		{"/api/tests/articles", http.StatusOK, -1},
		{"/api/tests/missing", http.StatusNotFound, -1},
		{"/api/tests/articles/questions", http.StatusOK, 3},
		{"/api/tests/articles/theory", http.StatusOK, -1},
		{"/api/phrases", http.StatusOK, 1},
		{"/api/phrases/greetings", http.StatusOK, 1},
		{"/api/dialogues", http.StatusOK, 1},
		{"/api/dialogues/cafe", http.StatusOK, -1},
		{"/api/dialogues/cafe/exercises", http.StatusOK, 1},
		{"/api/dialogues/missing", http.StatusNotFound, -1},
		{"/api/categories/family/distractors", http.StatusOK, 2},
		{"/api/categories/unknown/distractors", http.StatusOK, 0},
		{"/api/categories?level=B1.2", http.StatusOK, 1},
		{"/api/categories?level=C1.2", http.StatusOK, 0},
		{"/api/categories?level=Z9.9", http.StatusBadRequest, -1},
		{"/api/nowhere", http.StatusNotFound, -1},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := ts.do(t, "GET", tt.path, nil, "")
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.items >= 0 {
				assert.Len(t, decode[[]json.RawMessage](t, rec), tt.items)
			}
		})
	}
}

func TestLevelQueryDoesNotChangeCurrentLevel(t *testing.T) {
	ts := newTestServer(t, nil, 10)

	words := decode[[]models.Word](t, ts.do(t, "GET", "/api/words?level=B1.2", nil, ""))
	require.Len(t, words, 1)
	assert.Equal(t, "die Arbeit", words[0].Term)

	current := decode[levelResponse](t, ts.do(t, "GET", "/api/levels/current", nil, ""))
	assert.Equal(t, "A1.1", current.Key)

	scoped := decode[levelResponse](t, ts.do(t, "GET", "/api/levels/current?level=B1.2", nil, ""))
	assert.Equal(t, "B1.2", scoped.Key)
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t, nil, 10)

	rec := ts.do(t, "POST", "/api/sessions", map[string]string{"kind": "vocabulary", "scope": "family"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, "GET", "/api/progress", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired := security.NewTokenIssuer([]byte("0123456789abcdef0123456789abcdef"), -time.Minute)
	token, _, err := expired.Issue(learner)
	require.NoError(t, err)
	rec = ts.do(t, "GET", "/api/sessions/x", nil, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token has expired", decode[errorResponse](t, rec).Error)
}

func TestAdminRoutes(t *testing.T) {
	ts := newTestServer(t, nil, 10)
	body := map[string]any{"major": "B1", "sub": 2}

	rec := ts.do(t, "PUT", "/api/levels/current", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, "PUT", "/api/levels/current", body, ts.token(t, learner))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, "PUT", "/api/levels/current", map[string]any{"major": "B3", "sub": 1}, ts.token(t, admin))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "A1.1", ts.resolver.CurrentLevel().Key())
	assert.Empty(t, ts.saver.saved)

	rec = ts.do(t, "PUT", "/api/levels/current", body, ts.token(t, admin))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	set := decode[setLevelResponse](t, rec)
	assert.Equal(t, "B1.2", set.Key)
	assert.True(t, set.Persisted)
	assert.Equal(t, []string{"B1.2"}, ts.saver.saved)

	words := decode[[]models.Word](t, ts.do(t, "GET", "/api/words", nil, ""))
	assert.Len(t, words, 1)

	rec = ts.do(t, "POST", "/api/admin/reload?level=B1.2", nil, ts.token(t, admin))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"B1.2"}, decode[reloadResponse](t, rec).Reloaded)

	rec = ts.do(t, "POST", "/api/admin/reload", nil, ts.token(t, learner))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSessionFlow(t *testing.T) {
	ts := newTestServer(t, nil, 10)
	token := ts.token(t, learner)

	rec := ts.do(t, "POST", "/api/sessions", map[string]string{"kind": "vocabulary", "scope": "family"}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	view := decode[map[string]any](t, rec)
	id := view["session_id"].(string)
	assert.Equal(t, "active", view["phase"])
	assert.EqualValues(t, 5, view["total"])
	assert.Equal(t, "A1.1", view["level"])

	current := view["current"].(map[string]any)
	for _, opt := range current["options"].([]any) {
		assert.NotContains(t, opt.(map[string]any), "correct", "options must not reveal the answer")
	}

	path := "/api/sessions/" + id
	for i := 0; i < 5; i++ {
		rec = ts.do(t, "POST", path+"/answer", map[string]int{"option": 0}, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		res := decode[map[string]any](t, rec)
		assert.Equal(t, true, res["persisted"])

		rec = ts.do(t, "POST", path+"/answer", map[string]int{"option": 0}, token)
		assert.Equal(t, http.StatusConflict, rec.Code, "second answer to the same item")

		rec = ts.do(t, "POST", path+"/next", nil, token)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	view = decode[map[string]any](t, ts.do(t, "GET", path, nil, token))
	assert.Equal(t, "done", view["phase"])
	summary := view["summary"].(map[string]any)
	assert.EqualValues(t, 5, summary["total"])

	rec = ts.do(t, "GET", path+"/review", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	mistakes := decode[[]map[string]any](t, rec)
	assert.EqualValues(t, 5-summary["correct"].(float64), len(mistakes))

	rec = ts.do(t, "GET", path, nil, ts.token(t, admin))
	assert.Equal(t, http.StatusNotFound, rec.Code, "sessions are private to their user")

	rec = ts.do(t, "DELETE", path, nil, token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(t, "GET", path, nil, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionStartValidation(t *testing.T) {
	ts := newTestServer(t, nil, 10)
	token := ts.token(t, learner)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"unknown kind", map[string]string{"kind": "listening", "scope": "family"}, http.StatusBadRequest},
		{"missing scope", map[string]string{"kind": "vocabulary"}, http.StatusBadRequest},
		{"bad level", map[string]string{"kind": "vocabulary", "scope": "all", "level": "A1.3"}, http.StatusBadRequest},
		{"unknown field", map[string]string{"kind": "vocabulary", "scope": "all", "extra": "x"}, http.StatusBadRequest},
		{"explicit level", map[string]string{"kind": "vocabulary", "scope": "work", "level": "B1.2"}, http.StatusCreated},
		{"unknown category", map[string]string{"kind": "vocabulary", "scope": "nothing"}, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, "POST", "/api/sessions", tt.body, token)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestGrammarSessionInvalidOption(t *testing.T) {
	ts := newTestServer(t, nil, 10)
	token := ts.token(t, learner)

	rec := ts.do(t, "POST", "/api/sessions", map[string]string{"kind": "grammar", "scope": "articles"}, token)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[map[string]any](t, rec)["session_id"].(string)

	rec = ts.do(t, "POST", "/api/sessions/"+id+"/answer", map[string]int{"option": 7}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, "POST", "/api/sessions/"+id+"/answer", map[string]any{}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "option is required")

	rec = ts.do(t, "POST", "/api/sessions/"+id+"/next", nil, token)
	assert.Equal(t, http.StatusConflict, rec.Code, "cannot skip an unanswered item")

	rec = ts.do(t, "POST", "/api/sessions/"+id+"/finish", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode[map[string]any](t, rec)["summary"].(map[string]any)["completed"])
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}
	db, err := database.Initialize(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations(context.Background()))
	return db
}

func (ts *testServer) initData(userID int64) string {
	values := url.Values{}
	values.Set("auth_date", strconv.FormatInt(time.Now().Unix(), 10))
	values.Set("user", `{"id": `+strconv.FormatInt(userID, 10)+`, "first_name": "Anna", "username": "anna"}`)
	values.Set("hash", ts.verifier.Sign(values))
	return values.Encode()
}

func TestTelegramAuthAndProgress(t *testing.T) {
	ts := newTestServer(t, newTestDB(t), 10)

	rec := ts.do(t, "POST", "/api/auth/telegram", map[string]string{"init_data": "user=x&hash=00"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, "POST", "/api/auth/telegram", map[string]string{"init_data": ts.initData(learner)}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	auth := decode[tokenResponse](t, rec)
	assert.Equal(t, learner, auth.UserID)
	token := auth.Token

	rec = ts.do(t, "POST", "/api/progress/word", map[string]any{"word_id": "A1.1_family_die Mutter", "is_correct": true}, token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(t, "POST", "/api/progress/word", map[string]any{"word_id": "A1.1_family_die Mutter", "correct": false}, token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(t, "POST", "/api/progress/word", map[string]any{"word_id": "A1.1_family_die Mutter"}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = ts.do(t, "POST", "/api/progress/word", map[string]any{"word_id": " ", "is_correct": true}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, "GET", "/api/progress/words/A1.1_family_die%20Mutter", nil, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	status := decode[models.WordStatus](t, rec)
	assert.Equal(t, "мать", status.Word.Translation)
	assert.Equal(t, 1, status.Progress.CorrectCount)
	assert.Equal(t, 1, status.Progress.WrongCount)
	assert.False(t, status.Mastered)

	rec = ts.do(t, "GET", "/api/progress/words/A1.1_family_der%20Onkel", nil, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, "POST", "/api/progress/grammar", map[string]any{"test_id": "articles", "score": 2, "total": 3}, token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(t, "POST", "/api/progress/grammar", map[string]any{"test_id": "articles", "score": 4, "total": 3}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, "GET", "/api/progress", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	overview := decode[models.ProgressOverview](t, rec)
	assert.Equal(t, 1, overview.TotalWords)
	assert.Equal(t, 5, overview.LevelWords)
	assert.InDelta(t, 20.0, overview.WordsPercentage, 0.01)
	assert.Equal(t, 1, overview.TestsCompleted)

	days := decode[[]models.DailyStats](t, ts.do(t, "GET", "/api/progress/daily?limit=3", nil, token))
	require.Len(t, days, 1)
	assert.Equal(t, 1, days[0].TestsCompleted)

	rec = ts.do(t, "PUT", "/api/reminder", map[string]any{"enabled": true, "hour": 25, "minute": 0}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = ts.do(t, "PUT", "/api/reminder", map[string]any{"enabled": true, "hour": 19, "minute": 30}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	user := decode[models.User](t, rec)
	assert.True(t, user.ReminderEnabled)
	assert.Equal(t, 19, user.ReminderHour)
}

func TestSessionAnswersReachLedger(t *testing.T) {
	db := newTestDB(t)
	ts := newTestServer(t, db, 10)
	token := ts.token(t, learner)

	rec := ts.do(t, "POST", "/api/sessions", map[string]string{"kind": "grammar", "scope": "articles"}, token)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[map[string]any](t, rec)["session_id"].(string)

	for i := 0; i < 3; i++ {
		rec = ts.do(t, "POST", "/api/sessions/"+id+"/answer", map[string]int{"option": 0}, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		ts.do(t, "POST", "/api/sessions/"+id+"/next", nil, token)
	}

	stats, err := repository.NewProgressRepository(db).GetUserStats(context.Background(), learner)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TestsCompleted)
	assert.Equal(t, 3, stats.GrammarTotal)
}

func TestAuthRateLimited(t *testing.T) {
	ts := newTestServer(t, nil, 2)
	body := map[string]string{"init_data": "hash=00"}

	for i := 0; i < 2; i++ {
		rec := ts.do(t, "POST", "/api/auth/telegram", body, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := ts.do(t, "POST", "/api/auth/telegram", body, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}
