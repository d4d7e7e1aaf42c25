package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/asistencia/core/user"
)

type tokenStore struct {
	db *sqlx.DB
}

var _ user.TokenStore = (*tokenStore)(nil) // interface compliance check

func NewTokenStore(db *sqlx.DB) user.TokenStore {
	return &tokenStore{db: db}
}

func (store *tokenStore) SaveToken(ctx context.Context, token string, userID int, expiresAt time.Time) error {
	b := psql.Insert("recovery_tokens").
		Columns("token", "user_id", "expires_at").
		Values(token, userID, expiresAt.UTC())
	return execContext(ctx, store.db, b, nil, "saving token")
}

func (store *tokenStore) ConsumeToken(ctx context.Context, token string, now time.Time) (int, error) {
	// the row is deleted even when expired
	b := psql.Delete("recovery_tokens").
		Where(sq.Eq{"token": token}).
		Suffix("RETURNING user_id, expires_at")

	var row struct {
		UserID    int       `db:"user_id"`
		ExpiresAt time.Time `db:"expires_at"`
	}
	if err := getContext(ctx, store.db, &row, b, user.ErrInvalidToken, "consuming token"); err != nil {
		return 0, err
	}
	if !now.Before(row.ExpiresAt) {
		return 0, user.ErrInvalidToken
	}
	return row.UserID, nil
}

func (store *tokenStore) PurgeExpiredTokens(ctx context.Context, now time.Time) (int, error) {
	query, args, err := psql.Delete("recovery_tokens").Where(sq.LtOrEq{"expires_at": now.UTC()}).ToSql()
	if err != nil {
		return 0, err
	}
	res, err := store.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, trapErr(err, nil, "purging tokens")
	}
	n, err := res.RowsAffected()
	return int(n), trapErr(err, nil, "purging tokens")
}
