package akita

import (
	"fmt"
	"regexp"

	// registers the "sqlserver" database/sql driver
	_ "github.com/microsoft/go-mssqldb"

	"github.com/akita-go/akita/logger"
)

type mssql struct {
	commonDialect
}

var mssqlPlaceholder = regexp.MustCompile(`@p(\d+)`)

func init() {
	RegisterDialect("mssql", &mssql{})
	RegisterDialect("sqlserver", &mssql{})
}

func (mssql) GetName() string {
	return "mssql"
}

func (mssql) DriverName() string {
	return "sqlserver"
}

func (mssql) BindVar(i int) string {
	return fmt.Sprintf("@p%d", i)
}

func (mssql) Quote(key string) string {
	return fmt.Sprintf("[%s]", key)
}

// LimitAndOffsetSQL uses OFFSET ... FETCH, which SQL Server only accepts after
// an ORDER BY, so one is synthesized when the query has none.
func (mssql) LimitAndOffsetSQL(limit, offset *int64, hasOrderBy bool) (sql string) {
	if limit == nil && offset == nil {
		return ""
	}
	if !hasOrderBy {
		sql += " ORDER BY (SELECT NULL)"
	}
	if offset != nil && *offset >= 0 {
		sql += fmt.Sprintf(" OFFSET %d ROWS", *offset)
	} else {
		sql += " OFFSET 0 ROWS"
	}
	if limit != nil && *limit >= 0 {
		sql += fmt.Sprintf(" FETCH NEXT %d ROWS ONLY", *limit)
	}
	return
}

// BeginSQL is BEGIN TRANSACTION, a bare BEGIN opens a statement block in
// T-SQL.
func (mssql) BeginSQL() string {
	return "BEGIN TRANSACTION"
}

func (mssql) SavePointSQL(name string) string {
	return "SAVE TRANSACTION " + name
}

func (mssql) RollbackToSQL(name string) string {
	return "ROLLBACK TRANSACTION " + name
}

// ReleaseSavePointSQL is empty, SQL Server releases savepoints implicitly.
func (mssql) ReleaseSavePointSQL(name string) string {
	return ""
}

func (mssql) Explain(sql string, vars ...interface{}) string {
	return logger.ExplainSQL(sql, mssqlPlaceholder, `'`, vars...)
}
