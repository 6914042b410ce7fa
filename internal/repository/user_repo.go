package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"wortschatz/internal/database"
	"wortschatz/internal/models"
)

// ErrUserNotFound is returned when no user row matches.
var ErrUserNotFound = errors.New("user not found")

// UserRepository handles learner accounts and reminder settings
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// GetOrCreate returns the user, inserting it with default reminder settings
// on first contact. Username and first name are refreshed on every call.
func (r *UserRepository) GetOrCreate(ctx context.Context, userID int64, username, firstName string) (*models.User, error) {
	query := r.db.GetDialect().Upsert("users",
		[]string{"user_id"},
		nil,
		[]string{"username", "first_name"})

	if _, err := r.db.ExecContext(ctx, query, userID, username, firstName); err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return r.GetByID(ctx, userID)
}

// GetByID retrieves a user by Telegram id
func (r *UserRepository) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	query := `
		SELECT user_id, username, first_name, created_at, reminder_enabled, reminder_hour, reminder_minute
		FROM users
		WHERE user_id = ?
	`
	u := &models.User{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&u.ID, &u.Username, &u.FirstName, &u.CreatedAt,
		&u.ReminderEnabled, &u.ReminderHour, &u.ReminderMinute,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// SetReminder updates the daily reminder of a user.
func (r *UserRepository) SetReminder(ctx context.Context, userID int64, enabled bool, hour, minute int) error {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("invalid reminder time %02d:%02d", hour, minute)
	}

	result, err := r.db.ExecContext(ctx,
		"UPDATE users SET reminder_enabled = ?, reminder_hour = ?, reminder_minute = ? WHERE user_id = ?",
		enabled, hour, minute, userID)
	if err != nil {
		return fmt.Errorf("set reminder: %w", err)
	}
	// MySQL reports zero affected rows when the values did not change
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		if _, err := r.GetByID(ctx, userID); err != nil {
			return err
		}
	}
	return nil
}

// UsersForReminder lists the ids of users whose reminder fires at hour:minute.
func (r *UserRepository) UsersForReminder(ctx context.Context, hour, minute int) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id FROM users
		WHERE reminder_enabled = ? AND reminder_hour = ? AND reminder_minute = ?
		ORDER BY user_id
	`, true, hour, minute)
	if err != nil {
		return nil, fmt.Errorf("users for reminder: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func userCreatedAt(u models.User) time.Time {
	if u.CreatedAt.IsZero() {
		return time.Now().UTC()
	}
	return u.CreatedAt
}
