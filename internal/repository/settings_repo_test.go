package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wortschatz/internal/models"
)

func TestSettings(t *testing.T) {
	repo := NewSettingsRepository(newTestDB(t))
	ctx := context.Background()

	_, ok, err := repo.GetSetting(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.SetSetting(ctx, "greeting", "hallo"))
	require.NoError(t, repo.SetSetting(ctx, "greeting", "servus"))
	value, ok, err := repo.GetSetting(ctx, "greeting")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "servus", value)
}

func TestCurrentLevelSetting(t *testing.T) {
	repo := NewSettingsRepository(newTestDB(t))
	ctx := context.Background()

	_, ok, err := repo.CurrentLevel(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.SaveCurrentLevel(ctx, models.Level{Major: models.B2, Sub: 1}))
	lvl, ok, err := repo.CurrentLevel(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "B2.1", lvl.Key())

	require.NoError(t, repo.SetSetting(ctx, currentLevelKey, "Z9.9"))
	_, ok, err = repo.CurrentLevel(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "stale keys are ignored")
}
