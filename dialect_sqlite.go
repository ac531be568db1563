package akita

import (
	// registers the "sqlite" database/sql driver
	_ "modernc.org/sqlite"
)

type sqlite struct {
	commonDialect
}

func init() {
	RegisterDialect("sqlite", &sqlite{})
	RegisterDialect("sqlite3", &sqlite{})
}

func (sqlite) GetName() string {
	return "sqlite"
}

func (sqlite) DriverName() string {
	return "sqlite"
}
