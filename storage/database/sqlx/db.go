package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"net"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/asistencia/core"
)

// postgres error codes
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	connectionException = "08"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// trapErr maps psql errors to the core error taxonomy:
// no rows to notFound, integrity violations to core.ConflictError & connection failures to core.UnavailableError.
func trapErr(err error, notFound error, msg string) error {
	if err == nil {
		return nil
	}
	cause := errors.Cause(err)
	if cause == sql.ErrNoRows && notFound != nil {
		return notFound
	}
	if pqErr, ok := cause.(*pq.Error); ok {
		switch {
		case pqErr.Code == uniqueViolation:
			return core.NewConflictError(msg + ": " + pqErr.Message)
		case pqErr.Code == foreignKeyViolation:
			return core.NewConflictError(msg + ": " + pqErr.Message)
		case string(pqErr.Code.Class()) == connectionException:
			return core.NewUnavailableError(errors.Wrap(err, msg))
		}
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) || errors.As(err, &netErr) {
		return core.NewUnavailableError(errors.Wrap(err, msg))
	}
	return errors.Wrap(err, msg)
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}

// orderBy renders the allowed orderings, falling back to defaults.
func orderBy(ordering []core.DBOrdering, allowed []string, defaults ...string) []string {
	clauses := make([]string, 0, len(ordering)+1)
	for _, ord := range core.FilterOrderings(ordering, allowed...) {
		clauses = append(clauses, ord.String())
	}
	if len(clauses) == 0 {
		clauses = append(clauses, defaults...)
	}
	return append(clauses, "id ASC")
}

func selectContext(ctx context.Context, q sqlx.QueryerContext, dest interface{}, b sq.Sqlizer, notFound error, msg string) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return trapErr(sqlx.SelectContext(ctx, q, dest, query, args...), notFound, msg)
}

func getContext(ctx context.Context, q sqlx.QueryerContext, dest interface{}, b sq.Sqlizer, notFound error, msg string) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return trapErr(sqlx.GetContext(ctx, q, dest, query, args...), notFound, msg)
}

// execContext runs b and returns notFound if no row was affected.
func execContext(ctx context.Context, e sqlx.ExecerContext, b sq.Sqlizer, notFound error, msg string) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	res, err := e.ExecContext(ctx, query, args...)
	if err != nil {
		return trapErr(err, notFound, msg)
	}
	if notFound != nil {
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return notFound
		}
	}
	return nil
}

// withTx runs fn in a transaction, rolled back if fn fails.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return trapErr(err, nil, "beginning transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return trapErr(tx.Commit(), nil, "committing transaction")
}
