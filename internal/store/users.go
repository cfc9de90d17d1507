package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/shramba/internal/model"
)

const userColumns = `id, username, password_hash, role, created_at, deleted_at`

// AccountStore manages API users, revoked tokens and server settings.
type AccountStore struct {
	*base
}

// CreateUser creates a new user.
func (s *AccountStore) CreateUser(ctx context.Context, username, passwordHash, role string) (*model.User, error) {
	if !model.ValidRole(role) {
		return nil, invalid("role", "unknown role %q", role)
	}

	var id int64
	err := s.withTx(ctx, func(tx *txn) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO users (username, password_hash, role, created_at) VALUES (?, ?, ?, ?)`,
			username, passwordHash, role, s.now(),
		)
		if err != nil {
			return storageErr("creating user", err)
		}
		if id, err = result.LastInsertId(); err != nil {
			return storageErr("getting user id", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetUser(ctx, id)
}

// GetUser returns a user by ID.
func (s *AccountStore) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetUserByUsername returns the active user with username.
func (s *AccountStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.getUser(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? AND deleted_at IS NULL`, username)
}

func (s *AccountStore) getUser(ctx context.Context, query string, arg any) (*model.User, error) {
	var u model.User
	ok, err := getOne(ctx, s.db, &u, query, arg)
	if err != nil {
		return nil, storageErr("getting user", err)
	}
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// ListUsers returns all non-deleted users.
func (s *AccountStore) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := sqlx.SelectContext(ctx, s.db, &users,
		`SELECT `+userColumns+` FROM users WHERE deleted_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, storageErr("listing users", err)
	}
	return users, nil
}

// CountUsers returns the number of non-deleted users.
func (s *AccountStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, s.db, &n, `SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`); err != nil {
		return 0, storageErr("counting users", err)
	}
	return n, nil
}

// UpdateUser updates a user's role.
func (s *AccountStore) UpdateUser(ctx context.Context, id int64, role string) error {
	if !model.ValidRole(role) {
		return invalid("role", "unknown role %q", role)
	}
	return s.updateUser(ctx, "updating user",
		`UPDATE users SET role = ? WHERE id = ? AND deleted_at IS NULL`, role, id)
}

// UpdateUserPassword updates a user's password hash.
func (s *AccountStore) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	return s.updateUser(ctx, "updating user password",
		`UPDATE users SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`, passwordHash, id)
}

// DeleteUser soft-deletes a user.
func (s *AccountStore) DeleteUser(ctx context.Context, id int64) error {
	return s.updateUser(ctx, "deleting user",
		`UPDATE users SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, s.now(), id)
}

func (s *AccountStore) updateUser(ctx context.Context, op, query string, args ...any) error {
	return s.withTx(ctx, func(tx *txn) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return storageErr(op, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return storageErr(op, err)
		}
		if n == 0 {
			return fmt.Errorf("%s: user: %w", op, ErrNotFound)
		}
		return nil
	})
}
