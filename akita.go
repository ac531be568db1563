package akita

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/akita-go/akita/logger"
	"github.com/akita-go/akita/schema"
	"github.com/akita-go/akita/value"
)

// Akita is the entry point: it owns the dialect, connection pool, schema
// registry and interceptor chain. One instance serves one database and is
// safe for concurrent use.
type Akita struct {
	cfg     *Config
	dialect Dialect
	pool    *Pool
	chain   *interceptorChain
	logger  logger.Interface
	schemas *schema.Registry
	namer   schema.Namer
}

// New opens a database described by cfg.URL. The URL scheme picks the
// dialect, MinSize connections are dialed eagerly.
func New(cfg *Config) (*Akita, error) {
	cfg.applyDefaults()

	name, err := cfg.dialectName()
	if err != nil {
		return nil, err
	}
	dialect, err := newDialect(name)
	if err != nil {
		return nil, err
	}
	dsn, err := cfg.dsn(dialect.GetName())
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrConnection, dialect.GetName(), err)
	}

	return newWithDB(cfg, dialect, db)
}

// NewWithDB wraps an already-open *sql.DB, e.g. one backed by sqlmock.
// cfg.URL is ignored; dialectName picks the SQL flavor.
func NewWithDB(cfg *Config, dialectName string, db *sql.DB) (*Akita, error) {
	cfg.applyDefaults()
	dialect, err := newDialect(dialectName)
	if err != nil {
		return nil, err
	}
	return newWithDB(cfg, dialect, db)
}

func newWithDB(cfg *Config, dialect Dialect, db *sql.DB) (*Akita, error) {
	l := cfg.Logger
	if l == nil {
		l = logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
			SlowThreshold: cfg.SlowThreshold,
			LogLevel:      logger.ParseLevel(cfg.LogLevel),
		})
	}

	namer := cfg.NamingStrategy
	if namer == nil {
		namer = schema.NamingStrategy{}
	}

	a := &Akita{
		cfg:     cfg,
		dialect: dialect,
		pool:    NewPool(db, cfg),
		chain:   newInterceptorChain(),
		logger:  l,
		schemas: schema.NewRegistry(namer),
		namer:   namer,
	}
	for _, i := range cfg.Interceptors {
		a.chain.Register(i)
	}

	if cfg.MinSize > 0 {
		if err := a.pool.Warmup(context.Background(), cfg.MinSize); err != nil {
			_ = a.pool.Close()
			return nil, err
		}
	}
	return a, nil
}

// Dialect returns the active SQL dialect.
func (a *Akita) Dialect() Dialect { return a.dialect }

// Logger returns the configured logger.
func (a *Akita) Logger() logger.Interface { return a.logger }

// Pool exposes pool status for monitoring.
func (a *Akita) Pool() *Pool { return a.pool }

// Use registers an interceptor on the execution chain.
func (a *Akita) Use(i Interceptor) { a.chain.Register(i) }

// EnableInterceptor turns a registered interceptor back on by name.
func (a *Akita) EnableInterceptor(name string) { a.chain.Enable(name) }

// DisableInterceptor turns a registered interceptor off by name.
func (a *Akita) DisableInterceptor(name string) { a.chain.Disable(name) }

// Close shuts the pool down. In-flight transactions keep their connections
// until they finish.
func (a *Akita) Close() error { return a.pool.Close() }

// execResult is the collected outcome of one statement: for queries the full
// row set is read before after-hooks run, so interceptors observe the final
// row count and the driver connection is free again.
type execResult struct {
	columns      []string
	rows         [][]value.Value
	rowsAffected int64
	lastInsertID int64
	hasInsertID  bool
}

// Session is what the generic entry points run against; *Akita executes on a
// per-call pooled connection, *Tx pins everything to its own connection. Only
// those two types implement it.
type Session interface {
	dialector() Dialect
	registry() *schema.Registry
	dispatch(ec *ExecuteContext, query bool) (*execResult, error)
}

func (a *Akita) dialector() Dialect { return a.dialect }

func (a *Akita) registry() *schema.Registry { return a.schemas }

func (a *Akita) dispatch(ec *ExecuteContext, query bool) (*execResult, error) {
	conn, err := a.pool.Checkout(ec.Context)
	if err != nil {
		return nil, err
	}
	defer conn.Release()
	return a.execOn(ec, query, conn)
}

// execOn runs one statement through the interceptor chain on conn.
func (a *Akita) execOn(ec *ExecuteContext, query bool, conn *PooledConn) (*execResult, error) {
	ec.Dialect = a.dialect
	res := &execResult{}
	err := a.chain.run(ec, func(ec *ExecuteContext) error {
		if query {
			return a.queryInto(ec, conn, res)
		}
		r, err := conn.ExecContext(ec.Context, ec.SQL, ec.Vars...)
		if err != nil {
			return &ExecutionError{Dialect: a.dialect.GetName(), Err: err}
		}
		if n, err := r.RowsAffected(); err == nil {
			res.rowsAffected = n
			ec.RowsAffected = n
		}
		if a.dialect.SupportsLastInsertID() {
			if id, err := r.LastInsertId(); err == nil {
				res.lastInsertID = id
				res.hasInsertID = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (a *Akita) queryInto(ec *ExecuteContext, conn *PooledConn, res *execResult) error {
	rows, err := conn.QueryContext(ec.Context, ec.SQL, ec.Vars...)
	if err != nil {
		return &ExecutionError{Dialect: a.dialect.GetName(), Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return &ExecutionError{Dialect: a.dialect.GetName(), Err: err}
	}
	res.columns = cols

	for rows.Next() {
		vals := make([]value.Value, len(cols))
		dest := make([]interface{}, len(cols))
		for i := range vals {
			dest[i] = &vals[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return &ExecutionError{Dialect: a.dialect.GetName(), Err: err}
		}
		res.rows = append(res.rows, vals)
	}
	if err := rows.Err(); err != nil {
		return &ExecutionError{Dialect: a.dialect.GetName(), Err: err}
	}
	res.rowsAffected = int64(len(res.rows))
	ec.RowsAffected = res.rowsAffected
	return nil
}
