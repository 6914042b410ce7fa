package database

import (
	"database/sql"
	"regexp"
	"strconv"
	"strings"
)

// Dialect defines the interface for database-specific operations
type Dialect interface {
	// DriverName returns the driver name for sql.Open
	DriverName() string

	// DSN returns the data source name for the connection
	DSN(config DialectConfig) string

	// RewriteQuery converts placeholder syntax if needed (e.g., ? to $1 for postgres)
	RewriteQuery(query string) string

	// ConfigureConnection applies any database-specific connection settings
	ConfigureConnection(db *sql.DB) error

	// MigrationsSubdir returns the subdirectory name for migrations (e.g., "sqlite", "postgres")
	MigrationsSubdir() string

	// CreateMigrationsTableQuery returns the SQL to create the migrations tracking table
	CreateMigrationsTableQuery() string

	// Upsert returns an INSERT that, on a key conflict, adds the inserted
	// values of addCols to the stored ones and overwrites setCols.
	Upsert(table string, keyCols, addCols, setCols []string) string
}

// DialectConfig holds configuration for database connection
type DialectConfig struct {
	// For SQLite
	Path string

	// For PostgreSQL/MySQL
	URL string
}

// placeholderRegexp matches ? placeholders
var placeholderRegexp = regexp.MustCompile(`\?`)

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, etc.
func rewritePlaceholdersToNumbered(query string) string {
	counter := 0
	return placeholderRegexp.ReplaceAllStringFunc(query, func(match string) string {
		counter++
		return "$" + strconv.Itoa(counter)
	})
}

// insertPrefix builds "INSERT INTO t (a, b) VALUES (?, ?)" for all columns.
func insertPrefix(table string, cols []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return "INSERT INTO " + table + " (" + strings.Join(cols, ", ") + ") VALUES (" + placeholders + ")"
}

func concatCols(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// onConflictUpsert is shared by SQLite and PostgreSQL, which both accept
// ON CONFLICT ... DO UPDATE with an "excluded" pseudo-table.
func onConflictUpsert(table string, keyCols, addCols, setCols []string, qualify bool) string {
	target := func(col string) string {
		if qualify {
			return table + "." + col
		}
		return col
	}
	assignments := make([]string, 0, len(addCols)+len(setCols))
	for _, c := range addCols {
		assignments = append(assignments, c+" = "+target(c)+" + excluded."+c)
	}
	for _, c := range setCols {
		assignments = append(assignments, c+" = excluded."+c)
	}
	return insertPrefix(table, concatCols(keyCols, addCols, setCols)) +
		" ON CONFLICT (" + strings.Join(keyCols, ", ") + ") DO UPDATE SET " + strings.Join(assignments, ", ")
}
