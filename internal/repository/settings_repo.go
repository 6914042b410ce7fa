package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"wortschatz/internal/database"
	"wortschatz/internal/models"
)

const currentLevelKey = "current_level"

type SettingsRepository struct {
	db *database.DB
}

func NewSettingsRepository(db *database.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetSetting retrieves a setting value by key. ok is false when the key was
// never set.
func (r *SettingsRepository) GetSetting(ctx context.Context, key string) (value string, ok bool, err error) {
	err = r.db.QueryRowContext(ctx, "SELECT setting_value FROM settings WHERE setting_key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

// SetSetting updates or inserts a setting
func (r *SettingsRepository) SetSetting(ctx context.Context, key, value string) error {
	query := r.db.GetDialect().Upsert("settings", []string{"setting_key"}, nil, []string{"setting_value"})
	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// CurrentLevel returns the persisted default level. ok is false when none
// was stored or the stored key is no longer valid.
func (r *SettingsRepository) CurrentLevel(ctx context.Context) (models.Level, bool, error) {
	value, ok, err := r.GetSetting(ctx, currentLevelKey)
	if err != nil || !ok {
		return models.Level{}, false, err
	}
	lvl, err := models.ParseLevel(value)
	if err != nil {
		return models.Level{}, false, nil
	}
	return lvl, true, nil
}

// SaveCurrentLevel persists the default level across restarts.
func (r *SettingsRepository) SaveCurrentLevel(ctx context.Context, lvl models.Level) error {
	return r.SetSetting(ctx, currentLevelKey, lvl.Key())
}
