package database

import (
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PgxDialect is PostgreSQL through the pgx stdlib driver. It shares SQL and
// migrations with PostgresDialect and differs in driver and pool settings.
type PgxDialect struct {
	PostgresDialect
}

// NewPgxDialect creates a new pgx-backed PostgreSQL dialect
func NewPgxDialect() *PgxDialect {
	return &PgxDialect{}
}

func (d *PgxDialect) DriverName() string {
	return "pgx"
}

// ConfigureConnection keeps fewer idle connections; hosted Postgres poolers
// such as PgBouncer already multiplex them.
func (d *PgxDialect) ConfigureConnection(db *sql.DB) error {
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return nil
}
