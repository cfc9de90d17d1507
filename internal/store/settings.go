package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// JWTSecret retrieves the JWT secret, generating and storing one on first
// use. INSERT OR IGNORE followed by a re-select keeps concurrent startups
// on the same secret.
func (s *AccountStore) JWTSecret(ctx context.Context) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	candidate := hex.EncodeToString(buf)

	err := s.withTx(ctx, func(tx *txn) error {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO settings (key, value) VALUES ('jwt_secret', ?)`, candidate)
		if err != nil {
			return storageErr("storing jwt secret", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	var secret string
	if err := sqlx.GetContext(ctx, s.db, &secret, `SELECT value FROM settings WHERE key = 'jwt_secret'`); err != nil {
		return "", storageErr("querying jwt secret", err)
	}
	return secret, nil
}
