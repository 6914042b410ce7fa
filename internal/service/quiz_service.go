package service

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"wortschatz/internal/content"
	"wortschatz/internal/models"
	"wortschatz/internal/quiz"
	"wortschatz/internal/security"
)

// Scope values that do not name a category or test.
const (
	ScopeAllWords   = "all"
	ScopeRandomTest = "random"
)

var (
	// ErrSessionNotFound is returned for unknown or foreign session handles.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUnknownKind is returned when starting a session of an unknown kind.
	ErrUnknownKind = errors.New("unknown quiz kind")
)

// SessionView is the externally visible state of a session.
type SessionView struct {
	ID              string        `json:"session_id"`
	Kind            quiz.Kind     `json:"kind"`
	Level           string        `json:"level"`
	Scope           string        `json:"scope"`
	Title           string        `json:"title"`
	Phase           quiz.Phase    `json:"phase"`
	Index           int           `json:"index"`
	Total           int           `json:"total"`
	Score           quiz.Score    `json:"score"`
	Current         *quiz.Item    `json:"current,omitempty"`
	AwaitingAdvance bool          `json:"awaiting_advance"`
	Summary         *quiz.Summary `json:"summary,omitempty"`
}

// AnswerResult is a graded answer plus the outcome of its ledger writes.
type AnswerResult struct {
	quiz.AnswerOutcome
	Summary   *quiz.Summary `json:"summary,omitempty"`
	Persisted bool          `json:"persisted"`
	// PersistErr holds the failed ledger writes, if any. The answer counts
	// either way.
	PersistErr error `json:"-"`
}

// Completion is the result of finishing a session.
type Completion struct {
	Summary    quiz.Summary `json:"summary"`
	Persisted  bool         `json:"persisted"`
	PersistErr error        `json:"-"`
}

type sessionEntry struct {
	mu       sync.Mutex
	id       string
	session  *quiz.Session
	lastUsed time.Time
	// recorded is set once the completion writes were issued
	recorded bool
}

type sessionKey struct {
	userID int64
	kind   quiz.Kind
}

// QuizService owns the live quiz sessions and writes their outcomes to the
// ledger. Requests for one session are serialized.
type QuizService struct {
	content *content.Resolver
	ledger  Ledger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionEntry
	byUser   map[sessionKey]string
}

// NewQuizService creates a new quiz service
func NewQuizService(resolver *content.Resolver, ledger Ledger) *QuizService {
	return &QuizService{
		content:  resolver,
		ledger:   ledger,
		now:      time.Now,
		sessions: make(map[string]*sessionEntry),
		byUser:   make(map[sessionKey]string),
	}
}

// Start opens a session for userID. The level is taken from ctx (see
// content.WithLevel) or the resolver's current level, and is fixed for the
// session's lifetime. A live session of the same kind is replaced.
//
// For vocabulary, scope is a category id or "all"; for grammar, a test id or
// "random". Scopes that resolve to no content produce a session that is
// already done.
func (s *QuizService) Start(ctx context.Context, userID int64, kind quiz.Kind, scope string) (*SessionView, error) {
	if !kind.Valid() {
		return nil, ErrUnknownKind
	}
	lvl := s.content.Level(ctx)
	ctx = content.WithLevel(ctx, lvl)

	sess := quiz.New(userID, kind, lvl)
	scope, title, src := s.resolveScope(ctx, kind, scope)
	if err := sess.Begin(scope, title, src); err != nil {
		return nil, err
	}

	entry := &sessionEntry{
		id:       security.GenerateSessionID(),
		session:  sess,
		lastUsed: s.now(),
	}
	// an empty session has nothing to record
	entry.recorded = sess.Phase() == quiz.PhaseDone

	s.mu.Lock()
	key := sessionKey{userID, kind}
	old := s.sessions[s.byUser[key]]
	if old != nil {
		delete(s.sessions, old.id)
	}
	s.sessions[entry.id] = entry
	s.byUser[key] = entry.id
	s.mu.Unlock()

	if old != nil {
		old.mu.Lock()
		old.session.Cancel()
		old.mu.Unlock()
		slog.Debug("replaced quiz session", "user_id", userID, "kind", kind, "session_id", old.id)
	}

	slog.Info("quiz session started",
		"user_id", userID,
		"session_id", entry.id,
		"kind", kind,
		"level", lvl.Key(),
		"scope", scope,
		"items", sess.Len())

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.view(), nil
}

// resolveScope returns the effective scope, a title and the items. A random
// test scope resolves to the id of the chosen test.
func (s *QuizService) resolveScope(ctx context.Context, kind quiz.Kind, scope string) (string, string, quiz.Source) {
	if kind == quiz.KindVocabulary {
		pool := s.content.AllWords(ctx)
		if scope == ScopeAllWords {
			return scope, "Все слова", quiz.NewVocabularySource(pool, pool)
		}
		cat, _ := s.content.Category(ctx, scope)
		return scope, cat.Name, quiz.NewVocabularySource(s.content.WordsByCategory(ctx, scope), pool)
	}

	if scope == ScopeRandomTest {
		if tests := s.content.Tests(ctx); len(tests) > 0 {
			scope = tests[rand.IntN(len(tests))].ID
		}
	}
	test, _ := s.content.Test(ctx, scope)
	return scope, test.Name, quiz.NewGrammarSource(scope, test.Questions)
}

// Get returns the state of a session.
func (s *QuizService) Get(userID int64, sessionID string) (*SessionView, error) {
	entry, err := s.acquire(userID, sessionID)
	if err != nil {
		return nil, err
	}
	defer entry.mu.Unlock()
	return entry.view(), nil
}

// Answer grades option against the current item and records it. The ledger
// write completes before the call returns; a failed write is reported in
// the result and does not undo the answer.
func (s *QuizService) Answer(ctx context.Context, userID int64, sessionID string, option int) (*AnswerResult, error) {
	entry, err := s.acquire(userID, sessionID)
	if err != nil {
		return nil, err
	}
	defer entry.mu.Unlock()

	sess := entry.session
	outcome, err := sess.Answer(option)
	if err != nil {
		return nil, err
	}

	res := &AnswerResult{AnswerOutcome: outcome}
	var errs []error
	if err := s.recordAnswer(ctx, sess, outcome); err != nil {
		errs = append(errs, err)
	}
	if outcome.Done {
		sum := sess.Summary()
		res.Summary = &sum
		if err := s.recordCompletion(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	res.PersistErr = errors.Join(errs...)
	res.Persisted = res.PersistErr == nil
	return res, nil
}

// Advance shows the next item, or returns the finished state once every
// item has been answered.
func (s *QuizService) Advance(userID int64, sessionID string) (*SessionView, error) {
	entry, err := s.acquire(userID, sessionID)
	if err != nil {
		return nil, err
	}
	defer entry.mu.Unlock()

	if _, _, err := entry.session.Advance(); err != nil {
		return nil, err
	}
	return entry.view(), nil
}

// Finish ends a session early, recording the daily aggregate if anything
// was answered. Finishing a completed session returns its summary again.
func (s *QuizService) Finish(ctx context.Context, userID int64, sessionID string) (*Completion, error) {
	entry, err := s.acquire(userID, sessionID)
	if err != nil {
		return nil, err
	}
	defer entry.mu.Unlock()

	if err := entry.session.Finish(); err != nil {
		return nil, err
	}
	res := &Completion{Summary: entry.session.Summary()}
	res.PersistErr = s.recordCompletion(ctx, entry)
	res.Persisted = res.PersistErr == nil
	return res, nil
}

// Review lists the wrong answers given so far.
func (s *QuizService) Review(userID int64, sessionID string) ([]quiz.Mistake, error) {
	entry, err := s.acquire(userID, sessionID)
	if err != nil {
		return nil, err
	}
	defer entry.mu.Unlock()

	if entry.session.Phase() == quiz.PhaseCancelled {
		return nil, quiz.ErrSessionNotActive
	}
	return entry.session.Mistakes(), nil
}

// Cancel abandons a session and forgets it. Ledger writes already made
// stay. Closing a finished session only forgets it.
func (s *QuizService) Cancel(userID int64, sessionID string) error {
	entry, err := s.acquire(userID, sessionID)
	if err != nil {
		return err
	}
	cancelled := entry.session.Cancel()
	entry.mu.Unlock()

	s.remove(entry)
	slog.Info("quiz session closed", "user_id", userID, "session_id", sessionID, "cancelled", cancelled)
	return nil
}

// CleanupIdle drops sessions unused for longer than maxIdle and returns how
// many were dropped.
func (s *QuizService) CleanupIdle(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	entries := make([]*sessionEntry, 0, len(s.sessions))
	for _, e := range s.sessions {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	removed := 0
	for _, e := range entries {
		e.mu.Lock()
		idle := e.lastUsed.Before(cutoff)
		if idle {
			e.session.Cancel()
		}
		e.mu.Unlock()
		if idle && s.remove(e) {
			removed++
		}
	}
	if removed > 0 {
		slog.Info("idle quiz sessions removed", "count", removed)
	}
	return removed
}

// ActiveSessions returns the number of tracked sessions.
func (s *QuizService) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// acquire returns the locked entry of a session owned by userID.
func (s *QuizService) acquire(userID int64, sessionID string) (*sessionEntry, error) {
	s.mu.Lock()
	entry, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	entry.mu.Lock()
	if entry.session.UserID != userID || entry.session.Phase() == quiz.PhaseCancelled {
		entry.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	entry.lastUsed = s.now()
	return entry, nil
}

func (s *QuizService) remove(entry *sessionEntry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sessions[entry.id] != entry {
		return false
	}
	delete(s.sessions, entry.id)
	key := sessionKey{entry.session.UserID, entry.session.Kind}
	if s.byUser[key] == entry.id {
		delete(s.byUser, key)
	}
	return true
}

func (s *QuizService) recordAnswer(ctx context.Context, sess *quiz.Session, out quiz.AnswerOutcome) error {
	var err error
	var op string
	switch sess.Kind {
	case quiz.KindVocabulary:
		op = "word result"
		err = s.ledger.RecordWordResult(ctx, sess.UserID, out.ItemID, out.Correct)
	case quiz.KindGrammar:
		op = "question result"
		err = s.ledger.RecordQuestionResult(ctx, sess.UserID, sess.Scope, out.ItemID, out.Correct)
	}
	if err != nil {
		slog.Error("failed to record answer", "user_id", sess.UserID, "item_id", out.ItemID, "error", err)
		return &PersistenceError{Op: op, Err: err}
	}
	return nil
}

// recordCompletion issues the end-of-session writes once per session.
func (s *QuizService) recordCompletion(ctx context.Context, entry *sessionEntry) error {
	if entry.recorded {
		return nil
	}
	entry.recorded = true

	sess := entry.session
	sum := sess.Summary()
	answered := sum.Correct + sum.Wrong
	if answered == 0 {
		return nil
	}

	var errs []error
	delta := models.DailyDelta{Correct: sum.Correct, Total: answered}
	switch sess.Kind {
	case quiz.KindVocabulary:
		delta.Words = sum.Correct
	case quiz.KindGrammar:
		if sum.Completed {
			delta.Tests = 1
			delta.Total = sum.Total
			if err := s.ledger.RecordTestResult(ctx, sess.UserID, sess.Scope, sum.Correct, sum.Total); err != nil {
				errs = append(errs, &PersistenceError{Op: "test result", Err: err})
			}
		}
	}
	if err := s.ledger.RecordDailyAggregate(ctx, sess.UserID, delta); err != nil {
		errs = append(errs, &PersistenceError{Op: "daily aggregate", Err: err})
	}

	if err := errors.Join(errs...); err != nil {
		slog.Error("failed to record session completion", "user_id", sess.UserID, "session_id", entry.id, "error", err)
		return err
	}
	slog.Info("quiz session completed",
		"user_id", sess.UserID,
		"session_id", entry.id,
		"kind", sess.Kind,
		"correct", sum.Correct,
		"wrong", sum.Wrong,
		"completed", sum.Completed)
	return nil
}

func (e *sessionEntry) view() *SessionView {
	sess := e.session
	v := &SessionView{
		ID:              e.id,
		Kind:            sess.Kind,
		Level:           sess.Level.Key(),
		Scope:           sess.Scope,
		Title:           sess.Title,
		Phase:           sess.Phase(),
		Index:           sess.Index(),
		Total:           sess.Len(),
		Score:           sess.Score(),
		AwaitingAdvance: sess.AwaitingAdvance(),
	}
	if it, ok := sess.Current(); ok {
		v.Current = &it
	}
	if sess.Phase() == quiz.PhaseDone {
		sum := sess.Summary()
		v.Summary = &sum
	}
	return v
}
