package akita

import (
	"fmt"

	"github.com/akita-go/akita/logger"
)

// commonDialect renders ANSI-ish SQL: double-quoted identifiers, `?`
// placeholders and native LIMIT/OFFSET. Concrete dialects embed it and
// override what differs.
type commonDialect struct{}

func init() {
	RegisterDialect("common", &commonDialect{})
}

func (commonDialect) GetName() string {
	return "common"
}

func (commonDialect) DriverName() string {
	return ""
}

func (commonDialect) BindVar(i int) string {
	return "?"
}

func (commonDialect) Quote(key string) string {
	return fmt.Sprintf(`"%s"`, key)
}

func (commonDialect) LimitAndOffsetSQL(limit, offset *int64, hasOrderBy bool) (sql string) {
	if limit != nil && *limit >= 0 {
		sql += fmt.Sprintf(" LIMIT %d", *limit)
	}
	if offset != nil && *offset > 0 {
		sql += fmt.Sprintf(" OFFSET %d", *offset)
	}
	return
}

func (commonDialect) SupportsLastInsertID() bool {
	return true
}

func (commonDialect) SupportsReturning() bool {
	return false
}

func (commonDialect) BeginSQL() string {
	return "BEGIN"
}

func (commonDialect) SavePointSQL(name string) string {
	return "SAVEPOINT " + name
}

func (commonDialect) RollbackToSQL(name string) string {
	return "ROLLBACK TO SAVEPOINT " + name
}

func (commonDialect) ReleaseSavePointSQL(name string) string {
	return "RELEASE SAVEPOINT " + name
}

func (commonDialect) Explain(sql string, vars ...interface{}) string {
	return logger.ExplainSQL(sql, nil, `'`, vars...)
}
