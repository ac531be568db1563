package akita

import (
	// registers the "pgx" database/sql driver
	_ "github.com/jackc/pgx/v5/stdlib"
)

// pgx renders exactly like postgres but dials through the pgx stdlib driver.
type pgx struct {
	postgres
}

func init() {
	RegisterDialect("pgx", &pgx{})
}

func (pgx) GetName() string {
	return "pgx"
}

func (pgx) DriverName() string {
	return "pgx"
}
