package akita

import (
	"context"
	"fmt"

	"github.com/akita-go/akita/schema"
)

// Tx owns one pooled connection for the lifetime of a transaction. A handle
// belongs to the goroutine that created it and must not be shared. Nested
// Begin calls push savepoints instead of opening new physical transactions.
//
// A handle must be finalized explicitly; `defer tx.Close()` guarantees that an
// abandoned handle rolls back everything still open before the connection
// goes back to the pool.
type Tx struct {
	ak         *Akita
	conn       *PooledConn
	savepoints []string
	finished   bool
}

// Begin checks a connection out of the pool and opens a transaction on it.
func (a *Akita) Begin(ctx context.Context) (*Tx, error) {
	conn, err := a.pool.Checkout(ctx)
	if err != nil {
		return nil, err
	}
	if sql := a.dialect.BeginSQL(); sql != "" {
		if _, err := conn.ExecContext(ctx, sql); err != nil {
			conn.Release()
			return nil, &ExecutionError{Dialect: a.dialect.GetName(), Err: err}
		}
	}
	return &Tx{ak: a, conn: conn}, nil
}

// Begin on an open handle pushes a savepoint named sp_<depth> instead of
// starting a second physical transaction.
func (tx *Tx) Begin(ctx context.Context) error {
	if tx.finished {
		return ErrInvalidTransaction
	}
	name := fmt.Sprintf("sp_%d", len(tx.savepoints)+1)
	if _, err := tx.conn.ExecContext(ctx, tx.ak.dialect.SavePointSQL(name)); err != nil {
		return &ExecutionError{Dialect: tx.ak.dialect.GetName(), Err: err}
	}
	tx.savepoints = append(tx.savepoints, name)
	return nil
}

// Depth reports how many savepoints are currently open on the handle.
func (tx *Tx) Depth() int {
	return len(tx.savepoints)
}

// Commit releases the top savepoint when one is open; otherwise it commits
// the physical transaction and returns the connection to the pool.
func (tx *Tx) Commit(ctx context.Context) error {
	if tx.finished {
		return ErrInvalidTransaction
	}
	if n := len(tx.savepoints); n > 0 {
		name := tx.savepoints[n-1]
		if sql := tx.ak.dialect.ReleaseSavePointSQL(name); sql != "" {
			if _, err := tx.conn.ExecContext(ctx, sql); err != nil {
				return fmt.Errorf("%w: release %s: %v", ErrTransaction, name, err)
			}
		}
		tx.savepoints = tx.savepoints[:n-1]
		return nil
	}

	tx.finished = true
	defer tx.conn.Release()
	if _, err := tx.conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrTransaction, err)
	}
	return nil
}

// Rollback rolls back to the top savepoint when one is open, leaving the
// outer transaction running; otherwise it rolls back the physical transaction
// and returns the connection to the pool.
func (tx *Tx) Rollback(ctx context.Context) error {
	if tx.finished {
		return ErrInvalidTransaction
	}
	if n := len(tx.savepoints); n > 0 {
		name := tx.savepoints[n-1]
		if _, err := tx.conn.ExecContext(ctx, tx.ak.dialect.RollbackToSQL(name)); err != nil {
			return fmt.Errorf("%w: rollback to %s: %v", ErrTransaction, name, err)
		}
		tx.savepoints = tx.savepoints[:n-1]
		return nil
	}

	tx.finished = true
	defer tx.conn.Release()
	if _, err := tx.conn.ExecContext(ctx, "ROLLBACK"); err != nil {
		return fmt.Errorf("%w: rollback: %v", ErrTransaction, err)
	}
	return nil
}

// Close rolls back everything still open on an unfinalized handle. After an
// explicit Commit or Rollback of the outer transaction it is a no-op, so it
// is safe to defer right after Begin.
func (tx *Tx) Close() error {
	if tx.finished {
		return nil
	}
	tx.savepoints = nil
	return tx.Rollback(context.Background())
}

// Transaction runs fn inside a transaction, committing on success and rolling
// back when fn returns an error or panics.
func (a *Akita) Transaction(ctx context.Context, fn func(tx *Tx) error) (err error) {
	tx, err := a.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Close()
			panic(r)
		}
	}()

	if err = fn(tx); err != nil {
		_ = tx.Close()
		return err
	}
	return tx.Commit(ctx)
}

// session plumbing so entry points run inside the transaction.

func (tx *Tx) dialector() Dialect { return tx.ak.dialect }

func (tx *Tx) registry() *schema.Registry { return tx.ak.schemas }

func (tx *Tx) dispatch(ec *ExecuteContext, query bool) (*execResult, error) {
	if tx.finished {
		return nil, ErrInvalidTransaction
	}
	return tx.ak.execOn(ec, query, tx.conn)
}
