package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/shramba/internal/db"
	"github.com/erazemk/shramba/internal/live"
	"github.com/erazemk/shramba/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(db.NewTestDB(t), live.NewHub(), Options{LowStockThreshold: 1})
}

func createItem(t *testing.T, s *Store, name, category string) int64 {
	t.Helper()
	id, err := s.Items.Create(context.Background(), model.Item{Name: name, Category: category})
	require.NoError(t, err)
	return id
}

func ptr[T any](v T) *T { return &v }

func TestValidationErrorMatchesKind(t *testing.T) {
	err := fmt.Errorf("saving: %w", invalid("quantity", "must not be negative"))

	assert.ErrorIs(t, err, ErrValidation)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "quantity", ve.Field)
	assert.Equal(t, "invalid quantity: must not be negative", ve.Error())
}

func TestOutcome(t *testing.T) {
	cases := map[string]error{
		"ok":           nil,
		"not_found":    fmt.Errorf("x: %w", ErrNotFound),
		"validation":   invalid("name", "blank"),
		"precondition": ErrPrecondition,
		"conflict":     storageErr("op", fmt.Errorf("y: %w", ErrConflict)),
		"error":        errors.New("boom"),
	}
	for want, err := range cases {
		assert.Equal(t, want, Outcome(err), "%v", err)
	}
}

func TestWithTxPublishesOnlyAfterCommit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := createItem(t, s, "Rice", "Pantry")

	sub := s.Ledger.ActiveItemsByStage(ctx, model.StageShopping)
	defer sub.Close()
	assert.Empty(t, receive(t, sub.C))

	s.base.inject = func(string) error { return errors.New("injected") }
	_, err := s.Ledger.Transition(ctx, id, model.StageWishlist, model.StageShopping, nil, nil)
	require.Error(t, err)
	s.base.inject = nil

	select {
	case v := <-sub.C:
		t.Fatalf("unexpected snapshot after rollback: %v", v)
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, s.Ledger.Activate(ctx, id, model.StageShopping, nil))
	entries := receive(t, sub.C)
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ItemID)
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	var zero T
	return zero
}
