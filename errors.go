package akita

import (
	"errors"
	"fmt"

	"github.com/akita-go/akita/logger"
	"github.com/akita-go/akita/value"
)

// Error categories. Concrete errors wrap one of these so callers can match a
// whole class with errors.Is.
var (
	// ErrSQLBuild statement could not be built; nothing was sent to the database
	ErrSQLBuild = errors.New("sql build error")
	// ErrConnection pool or connect failure, retryable by the caller
	ErrConnection = errors.New("connection error")
	// ErrTransaction commit/rollback failure or misuse of a finished handle
	ErrTransaction = errors.New("transaction error")
)

var (
	// ErrRecordNotFound record not found error
	ErrRecordNotFound = logger.ErrRecordNotFound
	// ErrEmptyInList IN / NOT IN was given zero values
	ErrEmptyInList = fmt.Errorf("%w: empty IN list", ErrSQLBuild)
	// ErrMissingTable no table name available for the statement
	ErrMissingTable = fmt.Errorf("%w: missing table name", ErrSQLBuild)
	// ErrMalformedRaw raw fragment placeholder count does not match its params
	ErrMalformedRaw = fmt.Errorf("%w: malformed raw fragment", ErrSQLBuild)
	// ErrMissingParam a :name token had no entry in the parameter map
	ErrMissingParam = fmt.Errorf("%w: missing named parameter", ErrSQLBuild)
	// ErrPoolTimeout no connection became available within ConnectionTimeout
	ErrPoolTimeout = fmt.Errorf("%w: checkout timed out", ErrConnection)
	// ErrPoolClosed the pool has been shut down
	ErrPoolClosed = fmt.Errorf("%w: pool is closed", ErrConnection)
	// ErrInvalidTransaction commit or rollback on a finished handle
	ErrInvalidTransaction = fmt.Errorf("%w: no valid transaction", ErrTransaction)
	// ErrUnsupportedDialect the configured url scheme has no registered dialect
	ErrUnsupportedDialect = errors.New("unsupported dialect")
	// ErrMissingWhereClause missing where clause
	ErrMissingWhereClause = errors.New("WHERE conditions required")
	// ErrPrimaryKeyRequired primary key required
	ErrPrimaryKeyRequired = errors.New("primary key required")
)

// ConversionError value/type mismatch during row mapping or parameter binding.
type ConversionError = value.ConversionError

// ExecutionError wraps a driver-reported failure, tagged with the dialect it
// came from. The underlying error is surfaced verbatim via Unwrap.
type ExecutionError struct {
	Dialect string
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("akita: execution failed (%s): %v", e.Dialect, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// InterceptorError marks an abort raised by a before-hook, distinguishable
// from a driver-reported ExecutionError.
type InterceptorError struct {
	Interceptor string
	Err         error
}

func (e *InterceptorError) Error() string {
	return fmt.Sprintf("akita: interceptor %s aborted execution: %v", e.Interceptor, e.Err)
}

func (e *InterceptorError) Unwrap() error { return e.Err }
