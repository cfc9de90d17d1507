package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/shramba/internal/live"
	"github.com/erazemk/shramba/internal/model"
)

const stateColumns = `id, item_id, stage_type, is_active, context_id, activated_at, deactivated_at, reason`

// Ledger records which stages each item occupies. Entries are never
// deleted: leaving a stage deactivates its entry, so the ledger doubles as
// the item's history.
type Ledger struct {
	*base
}

// TransitionResult describes a completed transition. Warning is non-nil
// (and wraps ErrStageNotActive) when the stage being left had no active
// entry; the target stage is activated regardless.
type TransitionResult struct {
	Deactivated int64 `json:"deactivated"`
	Warning     error `json:"-"`
}

// Activate makes stage active for the item. Activating an already active
// stage only updates its context.
func (l *Ledger) Activate(ctx context.Context, itemID int64, stage model.StageType, contextID *int64) error {
	if !stage.Valid() {
		return invalid("stage", "unknown stage %q", stage)
	}
	return l.withTx(ctx, func(tx *txn) error {
		if err := requireItem(ctx, tx, itemID); err != nil {
			return err
		}
		return activate(ctx, tx, itemID, stage, contextID, nil, l.now())
	})
}

// Deactivate ends the item's active entry for stage and reports how many
// entries were affected (0 or 1).
func (l *Ledger) Deactivate(ctx context.Context, itemID int64, stage model.StageType, reason *string) (int64, error) {
	if !stage.Valid() {
		return 0, invalid("stage", "unknown stage %q", stage)
	}
	var n int64
	err := l.withTx(ctx, func(tx *txn) error {
		var err error
		n, err = deactivate(ctx, tx, itemID, stage, reason, l.now())
		return err
	})
	return n, err
}

// DeactivateAll ends every active entry of the item.
func (l *Ledger) DeactivateAll(ctx context.Context, itemID int64, reason *string) (int64, error) {
	var n int64
	err := l.withTx(ctx, func(tx *txn) error {
		var err error
		n, err = deactivateAll(ctx, tx, itemID, reason, l.now())
		return err
	})
	return n, err
}

// IsActive reports whether the item currently occupies stage.
func (l *Ledger) IsActive(ctx context.Context, itemID int64, stage model.StageType) (bool, error) {
	return isActive(ctx, l.db, itemID, stage)
}

// ActiveStageTypes returns the item's active stages in display order.
func (l *Ledger) ActiveStageTypes(ctx context.Context, itemID int64) ([]model.StageType, error) {
	return activeStages(ctx, l.db, itemID)
}

// History returns every entry of the item, newest first.
func (l *Ledger) History(ctx context.Context, itemID int64) ([]model.StateEntry, error) {
	var entries []model.StateEntry
	err := sqlx.SelectContext(ctx, l.db, &entries,
		`SELECT `+stateColumns+` FROM item_states
		 WHERE item_id = ? ORDER BY activated_at DESC, id DESC`, itemID,
	)
	if err != nil {
		return nil, storageErr("listing state history", err)
	}
	return entries, nil
}

// ListActive returns the active entries of stage, most recently activated
// first.
func (l *Ledger) ListActive(ctx context.Context, stage model.StageType) ([]model.StateEntry, error) {
	var entries []model.StateEntry
	err := sqlx.SelectContext(ctx, l.db, &entries,
		`SELECT `+stateColumns+` FROM item_states
		 WHERE stage_type = ? AND is_active = 1 ORDER BY activated_at DESC, id DESC`,
		string(stage),
	)
	if err != nil {
		return nil, storageErr("listing active entries", err)
	}
	return entries, nil
}

// ActiveItemsByStage streams the active entries of stage. A fresh snapshot
// is emitted on subscription and after every committed change to the stage.
func (l *Ledger) ActiveItemsByStage(ctx context.Context, stage model.StageType) *live.Subscription[[]model.StateEntry] {
	return live.Watch(ctx, l.hub, func(ctx context.Context) ([]model.StateEntry, error) {
		return l.ListActive(ctx, stage)
	}, StageTopic(stage))
}

// Transition atomically deactivates from and activates to. If from was
// not active the transition still completes and the result carries a
// warning.
func (l *Ledger) Transition(ctx context.Context, itemID int64, from, to model.StageType, contextID *int64, reason *string) (TransitionResult, error) {
	if err := validateTransition(from, to); err != nil {
		return TransitionResult{}, err
	}

	var res TransitionResult
	err := l.withTx(ctx, func(tx *txn) error {
		if err := requireItem(ctx, tx, itemID); err != nil {
			return err
		}
		var err error
		res, err = l.transition(ctx, tx, itemID, from, to, contextID, reason)
		return err
	})
	if err != nil {
		return TransitionResult{}, err
	}
	return res, nil
}

func validateTransition(from, to model.StageType) error {
	if !from.Valid() {
		return invalid("from", "unknown stage %q", from)
	}
	if !to.Valid() {
		return invalid("to", "unknown stage %q", to)
	}
	if from == to {
		return invalid("to", "must differ from source stage %s", from)
	}
	return nil
}

// transition is the in-transaction body of Transition, shared with the
// Coordinator.
func (b *base) transition(ctx context.Context, tx *txn, itemID int64, from, to model.StageType, contextID *int64, reason *string) (TransitionResult, error) {
	now := b.now()
	n, err := deactivate(ctx, tx, itemID, from, reason, now)
	if err != nil {
		return TransitionResult{}, err
	}
	if err := b.failpoint("transition.deactivated"); err != nil {
		return TransitionResult{}, err
	}
	if err := activate(ctx, tx, itemID, to, contextID, nil, now); err != nil {
		return TransitionResult{}, err
	}

	res := TransitionResult{Deactivated: n}
	if n == 0 {
		res.Warning = fmt.Errorf("item %d leaving %s: %w", itemID, from, ErrStageNotActive)
		slog.Warn("transition from inactive stage",
			"item_id", itemID, "from", from, "to", to)
	}
	return res, nil
}

func activate(ctx context.Context, tx *txn, itemID int64, stage model.StageType, contextID *int64, reason *string, now time.Time) error {
	var ids []int64
	err := sqlx.SelectContext(ctx, tx, &ids,
		`SELECT id FROM item_states WHERE item_id = ? AND stage_type = ? AND is_active = 1`,
		itemID, string(stage),
	)
	if err != nil {
		return storageErr("checking active state", err)
	}

	switch len(ids) {
	case 0:
		_, err = tx.ExecContext(ctx,
			`INSERT INTO item_states (item_id, stage_type, is_active, context_id, activated_at, reason)
			 VALUES (?, ?, 1, ?, ?, ?)`,
			itemID, string(stage), contextID, now, reason,
		)
		if err != nil {
			return storageErr("activating state", err)
		}
	case 1:
		if contextID != nil {
			_, err = tx.ExecContext(ctx,
				`UPDATE item_states SET context_id = ? WHERE id = ?`, *contextID, ids[0],
			)
			if err != nil {
				return storageErr("updating state context", err)
			}
		}
	default:
		return fmt.Errorf("item %d has %d active %s entries: %w", itemID, len(ids), stage, ErrConflict)
	}

	tx.touch(StageTopic(stage))
	return nil
}

func deactivate(ctx context.Context, tx *txn, itemID int64, stage model.StageType, reason *string, now time.Time) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE item_states SET is_active = 0, deactivated_at = ?, reason = COALESCE(?, reason)
		 WHERE item_id = ? AND stage_type = ? AND is_active = 1`,
		now, reason, itemID, string(stage),
	)
	if err != nil {
		return 0, storageErr("deactivating state", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("deactivating state", err)
	}
	if n > 0 {
		tx.touch(StageTopic(stage))
	}
	return n, nil
}

func deactivateAll(ctx context.Context, tx *txn, itemID int64, reason *string, now time.Time) (int64, error) {
	stages, err := activeStages(ctx, tx, itemID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, st := range stages {
		n, err := deactivate(ctx, tx, itemID, st, reason, now)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func isActive(ctx context.Context, q sqlx.QueryerContext, itemID int64, stage model.StageType) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, q, &n,
		`SELECT COUNT(*) FROM item_states WHERE item_id = ? AND stage_type = ? AND is_active = 1`,
		itemID, string(stage),
	)
	if err != nil {
		return false, storageErr("checking active state", err)
	}
	return n > 0, nil
}

func activeStages(ctx context.Context, q sqlx.QueryerContext, itemID int64) ([]model.StageType, error) {
	var stages []model.StageType
	err := sqlx.SelectContext(ctx, q, &stages,
		`SELECT DISTINCT stage_type FROM item_states WHERE item_id = ? AND is_active = 1`, itemID,
	)
	if err != nil {
		return nil, storageErr("listing active stages", err)
	}
	sort.Slice(stages, func(i, j int) bool { return stages[i].Order() < stages[j].Order() })
	return stages, nil
}

// lastContext returns the context of the item's most recent entry for
// stage, active or not.
func lastContext(ctx context.Context, q sqlx.QueryerContext, itemID int64, stage model.StageType) (*int64, error) {
	var contextID *int64
	_, err := getOne(ctx, q, &contextID,
		`SELECT context_id FROM item_states WHERE item_id = ? AND stage_type = ?
		 ORDER BY activated_at DESC, id DESC LIMIT 1`,
		itemID, string(stage),
	)
	if err != nil {
		return nil, storageErr("getting last context", err)
	}
	return contextID, nil
}
