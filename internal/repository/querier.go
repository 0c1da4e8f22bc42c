package repository

import (
	"context"
	"errors"

	"tamv/internal/economy"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// postgres error codes
const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

// classify maps driver errors onto economy error kinds. Anything it does not
// recognise is a transport error and may be retried.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var ee *economy.Error
	if errors.As(err, &ee) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return economy.Errorf(economy.KindNotFound, "%s: not found", op)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return economy.Errorf(economy.KindConflict, "%s: %s", op, pgErr.ConstraintName)
		case pgCheckViolation:
			return economy.Errorf(economy.KindInsufficientBalance, "%s: %s", op, pgErr.ConstraintName)
		}
	}
	return economy.Transport(op, err)
}

// expectOne turns a zero-row conditional update into a conflict.
func expectOne(op string, tag pgconn.CommandTag, err error) error {
	if err != nil {
		return classify(op, err)
	}
	if tag.RowsAffected() == 0 {
		return economy.Errorf(economy.KindConflict, "%s: state changed concurrently", op)
	}
	return nil
}
