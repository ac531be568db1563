package akita

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/akita-go/akita/logger"
)

// oracle ships rendering rules only. No driver is bundled; register one under
// the name "oracle" (for example github.com/sijms/go-ora) before opening.
type oracle struct {
	commonDialect
}

var oraclePlaceholder = regexp.MustCompile(`:(\d+)`)

func init() {
	RegisterDialect("oracle", &oracle{})
}

func (oracle) GetName() string {
	return "oracle"
}

func (oracle) DriverName() string {
	return "oracle"
}

func (oracle) BindVar(i int) string {
	return fmt.Sprintf(":%d", i)
}

func (oracle) Quote(key string) string {
	return fmt.Sprintf(`"%s"`, strings.ToUpper(key))
}

func (oracle) LimitAndOffsetSQL(limit, offset *int64, hasOrderBy bool) (sql string) {
	if offset != nil && *offset >= 0 {
		sql += fmt.Sprintf(" OFFSET %d ROWS", *offset)
	} else if limit != nil {
		sql += " OFFSET 0 ROWS"
	}
	if limit != nil && *limit >= 0 {
		sql += fmt.Sprintf(" FETCH NEXT %d ROWS ONLY", *limit)
	}
	return
}

func (oracle) SupportsLastInsertID() bool {
	return false
}

// BeginSQL is empty, Oracle starts a transaction implicitly with the first
// statement.
func (oracle) BeginSQL() string {
	return ""
}

func (oracle) Explain(sql string, vars ...interface{}) string {
	return logger.ExplainSQL(sql, oraclePlaceholder, `'`, vars...)
}
