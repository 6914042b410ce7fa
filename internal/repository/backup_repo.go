package repository

import (
	"context"
	"database/sql"
	"fmt"

	"wortschatz/internal/database"
	"wortschatz/internal/models"
)

// LedgerDump is every ledger row, in an engine-neutral shape.
type LedgerDump struct {
	Users            []models.User            `json:"users"`
	Progress         []models.WordProgress    `json:"progress"`
	GrammarResults   []models.GrammarResult   `json:"grammar_results"`
	QuestionAttempts []models.QuestionAttempt `json:"question_attempts"`
	DailyStats       []models.DailyStats      `json:"daily_stats"`
}

// ledgerTables lists the tables in restore order.
var ledgerTables = []string{"users", "progress", "grammar_results", "question_attempts", "daily_stats"}

// BackupRepository reads and writes whole ledger tables
type BackupRepository struct {
	db *database.DB
}

// NewBackupRepository creates a new backup repository
func NewBackupRepository(db *database.DB) *BackupRepository {
	return &BackupRepository{db: db}
}

// Dump reads every ledger table.
func (r *BackupRepository) Dump(ctx context.Context) (*LedgerDump, error) {
	dump := &LedgerDump{}

	if err := r.dumpUsers(ctx, dump); err != nil {
		return nil, fmt.Errorf("dump users: %w", err)
	}
	if err := r.dumpProgress(ctx, dump); err != nil {
		return nil, fmt.Errorf("dump progress: %w", err)
	}
	if err := r.dumpGrammarResults(ctx, dump); err != nil {
		return nil, fmt.Errorf("dump grammar results: %w", err)
	}
	if err := r.dumpQuestionAttempts(ctx, dump); err != nil {
		return nil, fmt.Errorf("dump question attempts: %w", err)
	}
	if err := r.dumpDailyStats(ctx, dump); err != nil {
		return nil, fmt.Errorf("dump daily stats: %w", err)
	}
	return dump, nil
}

// Restore writes dump inside one transaction. With clear set, existing rows
// are deleted first; otherwise counters are merged additively into existing
// rows and appended rows keep being appended.
func (r *BackupRepository) Restore(ctx context.Context, dump *LedgerDump, clear bool) error {
	return r.db.InTx(ctx, func(tx *database.Tx) error {
		if clear {
			for i := len(ledgerTables) - 1; i >= 0; i-- {
				if _, err := tx.ExecContext(ctx, "DELETE FROM "+ledgerTables[i]); err != nil {
					return fmt.Errorf("clear %s: %w", ledgerTables[i], err)
				}
			}
		}

		dialect := tx.GetDialect()

		userQuery := dialect.Upsert("users", []string{"user_id"}, nil,
			[]string{"username", "first_name", "created_at", "reminder_enabled", "reminder_hour", "reminder_minute"})
		for _, u := range dump.Users {
			if _, err := tx.ExecContext(ctx, userQuery, u.ID, u.Username, u.FirstName, userCreatedAt(u),
				u.ReminderEnabled, u.ReminderHour, u.ReminderMinute); err != nil {
				return fmt.Errorf("restore user %d: %w", u.ID, err)
			}
		}

		progressQuery := dialect.Upsert("progress", []string{"user_id", "word_id"},
			[]string{"correct_count", "wrong_count"}, []string{"last_reviewed"})
		for _, p := range dump.Progress {
			if _, err := tx.ExecContext(ctx, progressQuery, p.UserID, p.WordID, p.CorrectCount, p.WrongCount, p.LastReviewed); err != nil {
				return fmt.Errorf("restore progress %d/%s: %w", p.UserID, p.WordID, err)
			}
		}

		for _, g := range dump.GrammarResults {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO grammar_results (user_id, test_id, score, total, completed_at) VALUES (?, ?, ?, ?, ?)",
				g.UserID, g.TestID, g.Score, g.Total, g.CompletedAt); err != nil {
				return fmt.Errorf("restore grammar result: %w", err)
			}
		}

		for _, q := range dump.QuestionAttempts {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO question_attempts (user_id, test_id, question_id, is_correct, answered_at) VALUES (?, ?, ?, ?, ?)",
				q.UserID, q.TestID, q.QuestionID, q.IsCorrect, q.AnsweredAt); err != nil {
				return fmt.Errorf("restore question attempt: %w", err)
			}
		}

		dailyQuery := dialect.Upsert("daily_stats", []string{"user_id", "date"},
			[]string{"words_learned", "tests_completed", "correct_answers", "total_answers"}, nil)
		for _, d := range dump.DailyStats {
			if _, err := tx.ExecContext(ctx, dailyQuery, d.UserID, d.Date,
				d.WordsLearned, d.TestsCompleted, d.CorrectAnswers, d.TotalAnswers); err != nil {
				return fmt.Errorf("restore daily stats %d/%s: %w", d.UserID, d.Date, err)
			}
		}

		return nil
	})
}

func (r *BackupRepository) dumpUsers(ctx context.Context, dump *LedgerDump) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, username, first_name, created_at, reminder_enabled, reminder_hour, reminder_minute
		FROM users ORDER BY user_id
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.FirstName, &u.CreatedAt,
			&u.ReminderEnabled, &u.ReminderHour, &u.ReminderMinute); err != nil {
			return err
		}
		dump.Users = append(dump.Users, u)
	}
	return rows.Err()
}

func (r *BackupRepository) dumpProgress(ctx context.Context, dump *LedgerDump) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, word_id, correct_count, wrong_count, last_reviewed
		FROM progress ORDER BY user_id, word_id
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	dump.Progress, err = scanWordProgress(rows)
	return err
}

func (r *BackupRepository) dumpGrammarResults(ctx context.Context, dump *LedgerDump) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, test_id, score, total, completed_at
		FROM grammar_results ORDER BY id
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var g models.GrammarResult
		if err := rows.Scan(&g.ID, &g.UserID, &g.TestID, &g.Score, &g.Total, &g.CompletedAt); err != nil {
			return err
		}
		dump.GrammarResults = append(dump.GrammarResults, g)
	}
	return rows.Err()
}

func (r *BackupRepository) dumpQuestionAttempts(ctx context.Context, dump *LedgerDump) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, test_id, question_id, is_correct, answered_at
		FROM question_attempts ORDER BY id
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var q models.QuestionAttempt
		if err := rows.Scan(&q.ID, &q.UserID, &q.TestID, &q.QuestionID, &q.IsCorrect, &q.AnsweredAt); err != nil {
			return err
		}
		dump.QuestionAttempts = append(dump.QuestionAttempts, q)
	}
	return rows.Err()
}

func (r *BackupRepository) dumpDailyStats(ctx context.Context, dump *LedgerDump) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, date, words_learned, tests_completed, correct_answers, total_answers
		FROM daily_stats ORDER BY user_id, date
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var d models.DailyStats
		if err := rows.Scan(&d.UserID, &d.Date, &d.WordsLearned, &d.TestsCompleted, &d.CorrectAnswers, &d.TotalAnswers); err != nil {
			return err
		}
		dump.DailyStats = append(dump.DailyStats, d)
	}
	return rows.Err()
}

func scanWordProgress(rows *sql.Rows) ([]models.WordProgress, error) {
	var out []models.WordProgress
	for rows.Next() {
		var p models.WordProgress
		var lastReviewed sql.NullTime
		if err := rows.Scan(&p.UserID, &p.WordID, &p.CorrectCount, &p.WrongCount, &lastReviewed); err != nil {
			return nil, err
		}
		if lastReviewed.Valid {
			t := lastReviewed.Time
			p.LastReviewed = &t
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
