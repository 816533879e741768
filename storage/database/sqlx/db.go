// Package sqlxrepos implements the repositories over PostgreSQL with sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/shkola/core"
)

// pq error codes
const (
	uniqueViolation = "23505"
)

type txKey struct{}

// Store runs queries on the database, or on the transaction carried by the context.
type Store struct {
	db *sqlx.DB
}

var _ core.Transactor = (*Store)(nil) // interface compliance check

func NewStore(db *sql.DB, driverName string) *Store {
	return &Store{db: sqlx.NewDb(db, driverName)}
}

func (s *Store) ext(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return s.db
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back: %v", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func (s *Store) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return translateErr(sqlx.GetContext(ctx, s.ext(ctx), dest, query, args...))
}

func (s *Store) selectAll(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return translateErr(sqlx.SelectContext(ctx, s.ext(ctx), dest, query, args...))
}

// exec runs a write query and returns core.ErrNoRecord when it affected no row.
func (s *Store) exec(ctx context.Context, query string, args ...interface{}) error {
	res, err := s.ext(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return translateErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "getting affected rows")
	}
	if n == 0 {
		return core.ErrNoRecord
	}
	return nil
}

// execMany runs a write query that may affect any number of rows.
func (s *Store) execMany(ctx context.Context, query string, args ...interface{}) error {
	_, err := s.ext(ctx).ExecContext(ctx, query, args...)
	return translateErr(err)
}

// translateErr maps driver errors onto the storage errors services expect.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNoRecord
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return core.ErrConflict
	}
	return err
}

// where builds the positional WHERE clause of a filter; conds hold one `%d` placeholder each.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}
