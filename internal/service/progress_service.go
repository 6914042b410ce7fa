package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"wortschatz/internal/content"
	"wortschatz/internal/models"
	"wortschatz/internal/repository"
)

// ErrInvalidResult is returned for results that cannot be recorded, such as
// a grammar score that does not fit its total.
var ErrInvalidResult = errors.New("invalid result")

// ErrWordNotFound is returned when a word id resolves to no content word.
var ErrWordNotFound = errors.New("word not found")

// ProgressService exposes the read side of the ledger and the direct writes
// used by the web app.
type ProgressService struct {
	progressRepo *repository.ProgressRepository
	userRepo     *repository.UserRepository
	content      *content.Resolver
}

// NewProgressService creates a new progress service
func NewProgressService(progressRepo *repository.ProgressRepository, userRepo *repository.UserRepository, resolver *content.Resolver) *ProgressService {
	return &ProgressService{
		progressRepo: progressRepo,
		userRepo:     userRepo,
		content:      resolver,
	}
}

// Overview returns the user's stats relative to the vocabulary size of the
// level in ctx.
func (s *ProgressService) Overview(ctx context.Context, userID int64) (*models.ProgressOverview, error) {
	stats, err := s.progressRepo.GetUserStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	vocab := s.content.VocabularyStats(ctx)
	overview := &models.ProgressOverview{
		UserStats:  *stats,
		Level:      s.content.Level(ctx).Key(),
		LevelWords: vocab.TotalWords,
	}
	if vocab.TotalWords > 0 {
		// practised words from other levels can push the ratio past 100
		overview.WordsPercentage = min(float64(stats.TotalWords)/float64(vocab.TotalWords)*100, 100)
	}
	if answered := stats.TotalCorrect + stats.TotalWrong; answered > 0 {
		overview.Accuracy = float64(stats.TotalCorrect) / float64(answered) * 100
	}
	return overview, nil
}

// Stats returns the raw ledger summary of a user.
func (s *ProgressService) Stats(ctx context.Context, userID int64) (*models.UserStats, error) {
	return s.progressRepo.GetUserStats(ctx, userID)
}

// RecordWord records a single flashcard answer made outside a server session.
func (s *ProgressService) RecordWord(ctx context.Context, userID int64, wordID string, correct bool) error {
	wordID = strings.TrimSpace(wordID)
	if wordID == "" {
		return fmt.Errorf("%w: word id is required", ErrInvalidResult)
	}
	return s.progressRepo.RecordWordResult(ctx, userID, wordID, correct)
}

// WordStatus returns the user's counters for wordID. The level is taken from
// the id prefix when it names one, otherwise from ctx.
func (s *ProgressService) WordStatus(ctx context.Context, userID int64, wordID string) (*models.WordStatus, error) {
	if key, _, ok := strings.Cut(wordID, "_"); ok {
		if lvl, err := models.ParseLevel(key); err == nil {
			ctx = content.WithLevel(ctx, lvl)
		}
	}
	word, ok := s.content.Word(ctx, wordID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWordNotFound, wordID)
	}

	progress, err := s.progressRepo.GetWordProgress(ctx, userID, wordID)
	if err != nil {
		return nil, err
	}
	status := &models.WordStatus{
		Word:     word,
		Progress: models.WordProgress{UserID: userID, WordID: wordID},
	}
	if progress != nil {
		status.Progress = *progress
	}
	status.Mastered = status.Progress.Mastered()
	return status, nil
}

// RecordGrammar records a grammar test completed outside a server session,
// together with its daily aggregate.
func (s *ProgressService) RecordGrammar(ctx context.Context, userID int64, testID string, score, total int) error {
	if strings.TrimSpace(testID) == "" || total <= 0 || score < 0 || score > total {
		return ErrInvalidResult
	}
	if err := s.progressRepo.RecordTestResult(ctx, userID, testID, score, total); err != nil {
		return err
	}
	return s.progressRepo.RecordDailyAggregate(ctx, userID, models.DailyDelta{Tests: 1, Correct: score, Total: total})
}

// RecentDays returns up to limit daily aggregates, newest first.
func (s *ProgressService) RecentDays(ctx context.Context, userID int64, limit int) ([]models.DailyStats, error) {
	if limit <= 0 || limit > 366 {
		limit = 7
	}
	days, err := s.progressRepo.GetRecentDailyStats(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if days == nil {
		days = []models.DailyStats{}
	}
	return days, nil
}

// Register records first contact with a user and refreshes their names.
func (s *ProgressService) Register(ctx context.Context, userID int64, username, firstName string) (*models.User, error) {
	u, err := s.userRepo.GetOrCreate(ctx, userID, username, firstName)
	if err != nil {
		return nil, err
	}
	slog.Debug("user registered", "user_id", userID)
	return u, nil
}

// SetReminder updates the daily reminder of a user.
func (s *ProgressService) SetReminder(ctx context.Context, userID int64, enabled bool, hour, minute int) (*models.User, error) {
	if err := s.userRepo.SetReminder(ctx, userID, enabled, hour, minute); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, userID)
}

// DueReminders lists the users whose reminder fires at hour:minute.
func (s *ProgressService) DueReminders(ctx context.Context, hour, minute int) ([]int64, error) {
	return s.userRepo.UsersForReminder(ctx, hour, minute)
}
