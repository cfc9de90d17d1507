package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/shramba/internal/db"
	"github.com/erazemk/shramba/internal/model"
	"github.com/erazemk/shramba/internal/store"
)

func TestEnsureAdminCreatesOnce(t *testing.T) {
	s := store.New(db.NewTestDB(t), nil, store.Options{})
	ctx := context.Background()

	require.NoError(t, ensureAdmin(ctx, s.Accounts, "root"))
	require.NoError(t, ensureAdmin(ctx, s.Accounts, "other"))

	users, err := s.Accounts.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "root", users[0].Username)
	assert.Equal(t, model.RoleAdmin, users[0].Role)
}

func TestLevelRouterSplitsByLevel(t *testing.T) {
	var out, errOut bytes.Buffer
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	logger := slog.New(&levelRouter{
		level:  slog.LevelWarn,
		stdout: slog.NewTextHandler(&out, opts),
		stderr: slog.NewTextHandler(&errOut, opts),
	})

	logger.Info("hidden")
	logger.Warn("careful")
	logger.Error("broken")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "careful")
	assert.NotContains(t, out.String(), "broken")
	assert.Contains(t, errOut.String(), "broken")
}

func TestGeneratePassword(t *testing.T) {
	a, err := generatePassword(16)
	require.NoError(t, err)
	b, err := generatePassword(16)
	require.NoError(t, err)
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
}
