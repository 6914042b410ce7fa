package repository

import (
	"context"
	"fmt"
	"time"

	"wortschatz/internal/database"
	"wortschatz/internal/models"
)

// ProgressRepository persists per-word counters, grammar results and daily
// aggregates. Every write is a single statement, so concurrent writers for
// the same user never lose increments.
type ProgressRepository struct {
	db  database.DBTX
	now func() time.Time
}

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db database.DBTX) *ProgressRepository {
	return &ProgressRepository{db: db, now: time.Now}
}

// RecordWordResult increments the correct or wrong counter of one word and
// stamps last_reviewed.
func (r *ProgressRepository) RecordWordResult(ctx context.Context, userID int64, wordID string, correct bool) error {
	correctDelta, wrongDelta := 0, 1
	if correct {
		correctDelta, wrongDelta = 1, 0
	}

	query := r.db.GetDialect().Upsert("progress",
		[]string{"user_id", "word_id"},
		[]string{"correct_count", "wrong_count"},
		[]string{"last_reviewed"})

	if _, err := r.db.ExecContext(ctx, query, userID, wordID, correctDelta, wrongDelta, r.now().UTC()); err != nil {
		return fmt.Errorf("record word result: %w", err)
	}
	return nil
}

// RecordTestResult appends a completed grammar test.
func (r *ProgressRepository) RecordTestResult(ctx context.Context, userID int64, testID string, score, total int) error {
	query := `
		INSERT INTO grammar_results (user_id, test_id, score, total, completed_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query, userID, testID, score, total, r.now().UTC()); err != nil {
		return fmt.Errorf("record test result: %w", err)
	}
	return nil
}

// RecordQuestionResult appends a single answered grammar question.
func (r *ProgressRepository) RecordQuestionResult(ctx context.Context, userID int64, testID, questionID string, correct bool) error {
	query := `
		INSERT INTO question_attempts (user_id, test_id, question_id, is_correct, answered_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query, userID, testID, questionID, correct, r.now().UTC()); err != nil {
		return fmt.Errorf("record question result: %w", err)
	}
	return nil
}

// RecordDailyAggregate adds delta to today's row for the user, creating it
// when absent. Dates are calendar days in local time.
func (r *ProgressRepository) RecordDailyAggregate(ctx context.Context, userID int64, delta models.DailyDelta) error {
	query := r.db.GetDialect().Upsert("daily_stats",
		[]string{"user_id", "date"},
		[]string{"words_learned", "tests_completed", "correct_answers", "total_answers"},
		nil)

	date := r.now().Format(time.DateOnly)
	if _, err := r.db.ExecContext(ctx, query, userID, date, delta.Words, delta.Tests, delta.Correct, delta.Total); err != nil {
		return fmt.Errorf("record daily aggregate: %w", err)
	}
	return nil
}

// GetUserStats summarises the whole ledger of a user. A user with no
// records gets all zeroes.
func (r *ProgressRepository) GetUserStats(ctx context.Context, userID int64) (*models.UserStats, error) {
	stats := &models.UserStats{}

	wordQuery := `
		SELECT COUNT(*),
		       COALESCE(SUM(correct_count), 0),
		       COALESCE(SUM(wrong_count), 0),
		       COALESCE(SUM(CASE WHEN correct_count >= 3 AND wrong_count = 0 THEN 1 ELSE 0 END), 0)
		FROM progress
		WHERE user_id = ?
	`
	err := r.db.QueryRowContext(ctx, wordQuery, userID).Scan(
		&stats.TotalWords,
		&stats.TotalCorrect,
		&stats.TotalWrong,
		&stats.MasteredWords,
	)
	if err != nil {
		return nil, fmt.Errorf("get word stats: %w", err)
	}

	grammarQuery := `
		SELECT COUNT(*), COALESCE(SUM(score), 0), COALESCE(SUM(total), 0)
		FROM grammar_results
		WHERE user_id = ?
	`
	err = r.db.QueryRowContext(ctx, grammarQuery, userID).Scan(
		&stats.TestsCompleted,
		&stats.GrammarScore,
		&stats.GrammarTotal,
	)
	if err != nil {
		return nil, fmt.Errorf("get grammar stats: %w", err)
	}

	return stats, nil
}

// GetWordProgress returns the counters of one word, or nil if the user
// never answered it.
func (r *ProgressRepository) GetWordProgress(ctx context.Context, userID int64, wordID string) (*models.WordProgress, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, word_id, correct_count, wrong_count, last_reviewed
		FROM progress
		WHERE user_id = ? AND word_id = ?
	`, userID, wordID)
	if err != nil {
		return nil, fmt.Errorf("get word progress: %w", err)
	}
	defer rows.Close()

	progress, err := scanWordProgress(rows)
	if err != nil {
		return nil, fmt.Errorf("get word progress: %w", err)
	}
	if len(progress) == 0 {
		return nil, nil
	}
	return &progress[0], nil
}

// GetRecentDailyStats returns the latest limit daily rows, newest first.
func (r *ProgressRepository) GetRecentDailyStats(ctx context.Context, userID int64, limit int) ([]models.DailyStats, error) {
	query := `
		SELECT user_id, date, words_learned, tests_completed, correct_answers, total_answers
		FROM daily_stats
		WHERE user_id = ?
		ORDER BY date DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("get daily stats: %w", err)
	}
	defer rows.Close()

	var days []models.DailyStats
	for rows.Next() {
		var d models.DailyStats
		if err := rows.Scan(&d.UserID, &d.Date, &d.WordsLearned, &d.TestsCompleted, &d.CorrectAnswers, &d.TotalAnswers); err != nil {
			return nil, fmt.Errorf("scan daily stats: %w", err)
		}
		days = append(days, d)
	}
	return days, rows.Err()
}
