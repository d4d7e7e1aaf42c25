package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/asistencia/core/user"
)

type tokenStore struct {
	db *DB
}

var _ user.TokenStore = (*tokenStore)(nil) // interface compliance check

func NewTokenStore(db *DB) user.TokenStore {
	return &tokenStore{db: db}
}

func (store *tokenStore) SaveToken(_ context.Context, token string, userID int, expiresAt time.Time) error {
	store.db.mu.Lock()
	defer store.db.mu.Unlock()

	store.db.tokens[token] = tokenEntry{userID: userID, expiresAt: expiresAt}
	return nil
}

func (store *tokenStore) ConsumeToken(_ context.Context, token string, now time.Time) (int, error) {
	store.db.mu.Lock()
	defer store.db.mu.Unlock()

	entry, ok := store.db.tokens[token]
	if !ok {
		return 0, user.ErrInvalidToken
	}
	delete(store.db.tokens, token)
	if !now.Before(entry.expiresAt) {
		return 0, user.ErrInvalidToken
	}
	return entry.userID, nil
}

func (store *tokenStore) PurgeExpiredTokens(_ context.Context, now time.Time) (int, error) {
	store.db.mu.Lock()
	defer store.db.mu.Unlock()

	var n int
	for token, entry := range store.db.tokens {
		if !now.Before(entry.expiresAt) {
			delete(store.db.tokens, token)
			n++
		}
	}
	return n, nil
}
