package database

import "strings"

// Driver identifies the database backend and client library.
type Driver string

const (
	// DriverPostgres is PostgreSQL through a pgx connection pool.
	DriverPostgres Driver = "postgres"
	// DriverPQ is PostgreSQL through database/sql and lib/pq.
	DriverPQ Driver = "pq"
	// DriverSQLite is an embedded SQLite file.
	DriverSQLite Driver = "sqlite"
)

// String returns the string representation of the driver.
func (d Driver) String() string {
	return string(d)
}

// IsValid returns true if the driver is a known type.
func (d Driver) IsValid() bool {
	switch d {
	case DriverPostgres, DriverPQ, DriverSQLite:
		return true
	default:
		return false
	}
}

// Dialect reports the SQL dialect spoken by the driver. DriverPQ speaks the
// PostgreSQL dialect.
func (d Driver) Dialect() Driver {
	if d == DriverPQ {
		return DriverPostgres
	}
	return d
}

// DetectDriver guesses the driver from a connection string. An empty URL
// selects SQLite so the CLI works without any setup.
func DetectDriver(url string) Driver {
	switch {
	case url == "":
		return DriverSQLite
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return DriverPostgres
	case strings.HasPrefix(url, "sqlite://"),
		strings.HasPrefix(url, "file:"),
		strings.HasSuffix(url, ".db"),
		strings.HasSuffix(url, ".sqlite"),
		strings.HasSuffix(url, ".sqlite3"):
		return DriverSQLite
	default:
		return DriverPostgres
	}
}
