package akita

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Pool owns the physical connections for one database. Checkout lends a
// dedicated connection to exactly one borrower; concurrent borrowers beyond
// MaxSize wait until a connection returns or ConnectionTimeout elapses.
type Pool struct {
	db      *sql.DB
	sem     *semaphore.Weighted
	timeout time.Duration

	mu     sync.Mutex
	closed bool
}

// PoolStatus is a point-in-time snapshot of the pool counters.
type PoolStatus struct {
	MaxSize int
	Open    int
	InUse   int
	Idle    int
	Waiting int64
}

// NewPool wraps an opened database handle with the pool policy from cfg.
func NewPool(db *sql.DB, cfg *Config) *Pool {
	db.SetMaxOpenConns(cfg.MaxSize)
	db.SetMaxIdleConns(cfg.MaxSize)
	db.SetConnMaxIdleTime(cfg.IdleTimeout)
	db.SetConnMaxLifetime(cfg.MaxLifetime)

	return &Pool{
		db:      db,
		sem:     semaphore.NewWeighted(int64(cfg.MaxSize)),
		timeout: cfg.ConnectionTimeout,
	}
}

// Warmup dials MinSize connections so the first callers do not pay the
// connect latency. Failures are reported but leave the pool usable.
func (p *Pool) Warmup(ctx context.Context, minSize int) error {
	conns := make([]*PooledConn, 0, minSize)
	defer func() {
		for _, conn := range conns {
			conn.Release()
		}
	}()
	for i := 0; i < minSize; i++ {
		conn, err := p.Checkout(ctx)
		if err != nil {
			return err
		}
		conns = append(conns, conn)
	}
	return nil
}

// Checkout borrows one connection. The borrower must call Release exactly
// once; the connection is never lent to anyone else in between.
func (p *Pool) Checkout(ctx context.Context) (*PooledConn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	p.mu.Unlock()

	waitCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err := p.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() == nil {
			return nil, ErrPoolTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	conn, err := p.conn(waitCtx)
	if err != nil {
		p.sem.Release(1)
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, ErrPoolTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	return &PooledConn{pool: p, conn: conn, checkedOutAt: time.Now()}, nil
}

// conn hands out a validated connection. A stale idle connection is discarded
// and replaced once, so it never fails more than one caller.
func (p *Pool) conn(ctx context.Context) (*sql.Conn, error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return p.db.Conn(ctx)
	}
	return conn, nil
}

// Status reports the current pool counters.
func (p *Pool) Status() PoolStatus {
	stats := p.db.Stats()
	return PoolStatus{
		MaxSize: stats.MaxOpenConnections,
		Open:    stats.OpenConnections,
		InUse:   stats.InUse,
		Idle:    stats.Idle,
		Waiting: stats.WaitCount,
	}
}

// Close shuts the pool down. Outstanding borrowers keep their connections
// until they release them.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.db.Close()
}

// PooledConn is one borrowed physical connection. It has exactly one owner
// from Checkout until Release.
type PooledConn struct {
	pool         *Pool
	conn         *sql.Conn
	checkedOutAt time.Time

	releaseOnce sync.Once
}

// ExecContext runs a statement on the borrowed connection.
func (pc *PooledConn) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return pc.conn.ExecContext(ctx, query, args...)
}

// QueryContext runs a query on the borrowed connection.
func (pc *PooledConn) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return pc.conn.QueryContext(ctx, query, args...)
}

// QueryRowContext runs a single-row query on the borrowed connection.
func (pc *PooledConn) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return pc.conn.QueryRowContext(ctx, query, args...)
}

// CheckedOutAt reports when this borrower obtained the connection.
func (pc *PooledConn) CheckedOutAt() time.Time {
	return pc.checkedOutAt
}

// Release returns the connection to the pool. Safe to call more than once;
// only the first call has effect.
func (pc *PooledConn) Release() {
	pc.releaseOnce.Do(func() {
		_ = pc.conn.Close()
		pc.pool.sem.Release(1)
	})
}
