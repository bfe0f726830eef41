package store

import (
	"context"
	"database/sql"
)

// TokenKey is the fixed settings key the bearer credential lives under.
const TokenKey = "token"

// TokenStore persists the operator's bearer credential in the local
// database. An empty token means unauthenticated.
type TokenStore struct {
	DB *sql.DB
}

// NewTokenStore returns a TokenStore backed by db.
func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{DB: db}
}

// Token returns the stored credential, or "" when none is stored.
func (s *TokenStore) Token(ctx context.Context) (string, error) {
	token, _, err := GetSetting(ctx, s.DB, TokenKey)
	return token, err
}

// SetToken stores the credential. Storing "" clears it.
func (s *TokenStore) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return s.ClearToken(ctx)
	}
	return SetSetting(ctx, s.DB, TokenKey, token)
}

// ClearToken removes the stored credential.
func (s *TokenStore) ClearToken(ctx context.Context) error {
	return DeleteSetting(ctx, s.DB, TokenKey)
}
