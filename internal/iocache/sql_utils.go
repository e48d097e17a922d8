package iocache

import (
	"database/sql"
	"fmt"
	"regexp"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/huangsam/propensity/schema"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// connHints is the DSN shape each networked backend expects.
var connHints = map[schema.DatabaseBackend]string{
	schema.MySQLBackend:      "user:password@tcp(host:port)/dbname",
	schema.PostgreSQLBackend: "host=localhost port=5432 user=postgres dbname=mydb",
}

// openSQL opens and pings a SQL backend, then runs each DDL statement.
// For SQLite the dsn is a file path.
func openSQL(backend schema.DatabaseBackend, dsn string, ddl ...string) (*sql.DB, error) {
	driver := driverFor(backend)
	if driver == "" {
		return nil, fmt.Errorf("unsupported SQL backend: %s", backend)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		if hint, ok := connHints[backend]; ok {
			return nil, fmt.Errorf("failed to open %s database: %w. Expected format: %s", backend, err, hint)
		}
		return nil, fmt.Errorf("failed to open %s database at %q: %w. Check that the directory is writable", backend, dsn, err)
	}
	if backend == schema.SQLiteBackend {
		// A single connection keeps SQLite from returning "database is locked"
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database. Check that the server is running and connection parameters are valid: %w", backend, err)
	}
	for _, stmt := range ddl {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to bootstrap %s schema: %w", backend, err)
		}
	}
	return db, nil
}

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// validateTableName validates that the table name is a safe SQL identifier.
func validateTableName(name string) error {
	if name == "" {
		return fmt.Errorf("table name cannot be empty")
	}
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("invalid table name: %s (must match pattern ^[a-zA-Z_][a-zA-Z0-9_]*$)", name)
	}
	return nil
}

// quoteTableName returns the properly quoted table name for the given backend.
func quoteTableName(name string, backend schema.DatabaseBackend) string {
	if backend == schema.MySQLBackend {
		return fmt.Sprintf("`%s`", name)
	}
	return fmt.Sprintf("%q", name)
}

// driverFor maps a SQL backend to its database/sql driver name.
func driverFor(backend schema.DatabaseBackend) string {
	switch backend {
	case schema.SQLiteBackend:
		return "sqlite"
	case schema.MySQLBackend:
		return "mysql"
	case schema.PostgreSQLBackend:
		return "pgx"
	default:
		return ""
	}
}

// placeholders returns n bind parameters for the backend, e.g. "$1, $2" or "?, ?".
func placeholders(backend schema.DatabaseBackend, n int) string {
	out := ""
	for i := 1; i <= n; i++ {
		if i > 1 {
			out += ", "
		}
		if backend == schema.PostgreSQLBackend {
			out += fmt.Sprintf("$%d", i)
		} else {
			out += "?"
		}
	}
	return out
}

// formatTime converts a time.Time to the appropriate format for the backend.
// SQLite stores timestamps as RFC 3339 text.
func formatTime(t time.Time, backend schema.DatabaseBackend) any {
	if backend == schema.SQLiteBackend {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return t
}

// parseTime is the inverse of formatTime for SQLite text columns.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}
