package akita

import (
	"fmt"
	"sync"
)

// Dialect is the interface for one target database's SQL rendering rules,
// selected once at config time and threaded through the renderer.
type Dialect interface {
	// GetName returns the dialect name
	GetName() string
	// DriverName returns the database/sql driver registered for this dialect
	DriverName() string
	// BindVar returns the placeholder for the i-th bound parameter (1-based)
	BindVar(i int) string
	// Quote quotes one plain identifier
	Quote(key string) string
	// LimitAndOffsetSQL renders the pagination tail for this dialect
	LimitAndOffsetSQL(limit, offset *int64, hasOrderBy bool) string
	// SupportsLastInsertID reports whether the driver reports generated keys
	SupportsLastInsertID() bool
	// SupportsReturning reports whether INSERT ... RETURNING is available
	SupportsReturning() bool
	// BeginSQL renders the statement opening a transaction, empty when the
	// dialect has no explicit begin statement
	BeginSQL() string
	// SavePointSQL renders the statement creating a savepoint
	SavePointSQL(name string) string
	// RollbackToSQL renders the statement rolling back to a savepoint
	RollbackToSQL(name string) string
	// ReleaseSavePointSQL renders the statement releasing a savepoint, empty
	// when the dialect releases implicitly
	ReleaseSavePointSQL(name string) string
	// Explain inlines vars into sql for trace output
	Explain(sql string, vars ...interface{}) string
}

var (
	dialectsMu sync.RWMutex
	dialects   = map[string]Dialect{}
)

// RegisterDialect register new dialect
func RegisterDialect(name string, dialect Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	dialects[name] = dialect
}

// GetDialect gets the dialect for the specified dialect name
func GetDialect(name string) (dialect Dialect, ok bool) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	dialect, ok = dialects[name]
	return
}

func newDialect(name string) (Dialect, error) {
	if dialect, ok := GetDialect(name); ok {
		return dialect, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedDialect, name)
}
