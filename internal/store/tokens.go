package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// RevokeToken adds a token's JTI to the revocation list.
func (s *AccountStore) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	return s.withTx(ctx, func(tx *txn) error {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO revoked_tokens (jti, expires_at) VALUES (?, ?)`,
			jti, expiresAt.UTC(),
		)
		if err != nil {
			return storageErr("revoking token", err)
		}

		// Opportunistically clean up expired revocations.
		_, _ = tx.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < ?`, s.now())
		return nil
	})
}

// IsTokenRevoked checks if a token's JTI has been revoked.
func (s *AccountStore) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var count int
	err := sqlx.GetContext(ctx, s.db, &count, `SELECT COUNT(*) FROM revoked_tokens WHERE jti = ?`, jti)
	if err != nil {
		return false, storageErr("checking token revocation", err)
	}
	return count > 0, nil
}
