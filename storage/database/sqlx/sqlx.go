// Package sqlxrepos implements the repositories on Postgres through sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/skripsi/core"
)

const uniqueViolation = "23505"

// trapNoRowsErr replaces sql.ErrNoRows with the repository's not found error.
func trapNoRowsErr(err, notFound error) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == uniqueViolation
}

// validID reports whether id can be compared to a uuid column; anything else cannot match a row.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// whereClause accumulates AND-ed conditions written with `?` bind vars.
type whereClause struct {
	conds []string
	args  []interface{}
}

func (w *whereClause) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *whereClause) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// orderBy builds an ORDER BY clause from the allowed orderings, falling back to `fallback`.
func orderBy(ordering []core.DBOrdering, allowed []string, fallback string) string {
	ordering = core.FilterOrderings(ordering, allowed...)
	if len(ordering) == 0 {
		return " ORDER BY " + fallback
	}
	parts := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		parts = append(parts, ord.String())
	}
	parts = append(parts, fallback)
	return " ORDER BY " + strings.Join(parts, ", ")
}

func rowsAffected(res sql.Result, err error) (int, error) {
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// execOne executes a statement that must affect exactly one row.
func execOne(ctx context.Context, db sqlx.ExtContext, notFound error, query string, args ...interface{}) error {
	n, err := rowsAffected(db.ExecContext(ctx, db.Rebind(query), args...))
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
