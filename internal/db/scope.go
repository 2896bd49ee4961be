package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/randalmurphal/tally/internal/db/driver"
	tallyerrors "github.com/randalmurphal/tally/internal/errors"
)

// ErrNoTransactions is reported by Begin when the driver cannot run transactions.
var ErrNoTransactions = errors.New("driver does not support transactions")

// TxError is a statement or transaction failure inside a Scope.
type TxError struct {
	Op  string
	Err error
}

func (e *TxError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TxError) Unwrap() error {
	return e.Err
}

// Scope is an open transaction that rolls back on Close unless Commit
// was called first. Callers defer Close right after Begin:
//
//	s, err := d.Begin(ctx)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//	...
//	return s.Commit()
type Scope struct {
	tx        driver.Tx
	ctx       context.Context
	committed bool
	closed    bool
}

// Begin starts a transaction. It fails immediately if the driver reports
// no transaction support.
func (d *DB) Begin(ctx context.Context) (*Scope, error) {
	if !d.driver.Transactional() {
		return nil, &TxError{Op: "begin", Err: ErrNoTransactions}
	}
	tx, err := d.driver.BeginTx(ctx, nil)
	if err != nil {
		return nil, &TxError{Op: "begin", Err: err}
	}
	return &Scope{tx: tx, ctx: ctx}, nil
}

// Exec executes a statement in the transaction.
func (s *Scope) Exec(query string, args ...any) (sql.Result, error) {
	res, err := s.tx.Exec(s.ctx, query, args...)
	if err != nil {
		return nil, &TxError{Op: "exec", Err: err}
	}
	return res, nil
}

// Query executes a query in the transaction.
func (s *Scope) Query(query string, args ...any) (*sql.Rows, error) {
	rows, err := s.tx.Query(s.ctx, query, args...)
	if err != nil {
		return nil, &TxError{Op: "query", Err: err}
	}
	return rows, nil
}

// QueryRow executes a single row query in the transaction.
func (s *Scope) QueryRow(query string, args ...any) *sql.Row {
	return s.tx.QueryRow(s.ctx, query, args...)
}

// Context returns the context the transaction was started with.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Committed reports whether Commit succeeded.
func (s *Scope) Committed() bool {
	return s.committed
}

// Commit commits the transaction. After Commit, Close is a no-op.
func (s *Scope) Commit() error {
	if s.closed {
		return &TxError{Op: "commit", Err: sql.ErrTxDone}
	}
	s.closed = true
	if err := s.tx.Commit(); err != nil {
		return &TxError{Op: "commit", Err: err}
	}
	s.committed = true
	return nil
}

// Close rolls the transaction back unless it was committed.
func (s *Scope) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.tx.Rollback(); err != nil {
		return &TxError{Op: "rollback", Err: err}
	}
	return nil
}

// RunInTx executes fn within a transaction.
// If fn returns an error, the transaction is rolled back and the error is
// returned unchanged. If fn returns nil, the transaction is committed.
func (d *DB) RunInTx(ctx context.Context, fn func(s *Scope) error) error {
	s, err := d.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if err := fn(s); err != nil {
		return err
	}
	return s.Commit()
}

// opError converts scope and driver failures into a transaction error
// for op. Structured errors pass through unchanged.
func opError(op string, err error) error {
	if err == nil {
		return nil
	}
	if tallyerrors.AsTallyError(err) != nil {
		return err
	}
	return tallyerrors.ErrTransaction(op, err)
}

// scanError wraps a row scan failure as a TxError.
func scanError(op string, err error) error {
	if err == nil || errors.Is(err, sql.ErrNoRows) {
		return err
	}
	return &TxError{Op: op, Err: err}
}
