package akita

import (
	"fmt"
	"regexp"

	// registers the "postgres" database/sql driver
	_ "github.com/lib/pq"

	"github.com/akita-go/akita/logger"
)

type postgres struct {
	commonDialect
}

var postgresPlaceholder = regexp.MustCompile(`\$(\d+)`)

func init() {
	RegisterDialect("postgres", &postgres{})
}

func (postgres) GetName() string {
	return "postgres"
}

func (postgres) DriverName() string {
	return "postgres"
}

func (postgres) BindVar(i int) string {
	return fmt.Sprintf("$%d", i)
}

func (postgres) SupportsLastInsertID() bool {
	return false
}

func (postgres) SupportsReturning() bool {
	return true
}

func (postgres) Explain(sql string, vars ...interface{}) string {
	return logger.ExplainSQL(sql, postgresPlaceholder, `'`, vars...)
}
