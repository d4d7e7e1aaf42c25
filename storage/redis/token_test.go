package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/user"
)

func setup(t *testing.T) (*miniredis.Miniredis, user.TokenStore) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return srv, NewTokenStore(client)
}

func TestTokenStore_ConsumeToken(t *testing.T) {
	srv, store := setup(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.SaveToken(ctx, "abc", 42, now.Add(time.Hour)))
	require.NoError(t, store.SaveToken(ctx, "old", 7, now.Add(-time.Hour)))
	require.NoError(t, store.SaveToken(ctx, "soon", 8, now.Add(time.Minute)))
	srv.FastForward(2 * time.Minute)

	tests := []struct {
		name    string
		token   string
		wantID  int
		wantErr error
	}{
		{"valid token", "abc", 42, nil},
		{"already consumed", "abc", 0, user.ErrInvalidToken},
		{"expired before saved", "old", 0, user.ErrInvalidToken},
		{"expired", "soon", 0, user.ErrInvalidToken},
		{"unknown", "nope", 0, user.ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := store.ConsumeToken(ctx, tt.token, now)
			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestTokenStore_Unavailable(t *testing.T) {
	srv, store := setup(t)
	srv.Close()

	err := store.SaveToken(context.Background(), "abc", 1, time.Now().Add(time.Hour))
	assert.True(t, core.IsUnavailable(err))

	n, err := store.PurgeExpiredTokens(context.Background(), time.Now())
	assert.NoError(t, err)
	assert.Zero(t, n)
}
