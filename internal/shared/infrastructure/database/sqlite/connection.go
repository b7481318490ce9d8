package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/felixgeelhaar/billcycle/internal/shared/infrastructure/database"
)

const defaultBusyTimeout = 5 * time.Second

func init() {
	database.Register(database.DriverSQLite, func(ctx context.Context, cfg database.Config) (database.Connection, error) {
		return NewConnection(ctx, cfg)
	})
}

// NewConnection opens a SQLite database. The pool is limited to a single
// connection so every transaction is serialized by the one writer.
func NewConnection(ctx context.Context, cfg database.Config) (*database.SQLConnection, error) {
	path := cfg.SQLitePath
	if path == "" {
		path = database.DefaultSQLitePath()
	}

	memory := path == ":memory:" || strings.Contains(path, "mode=memory")
	if !memory {
		if err := database.EnsureDirectory(path); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	busy := cfg.StatementTimeout
	if busy <= 0 {
		busy = defaultBusyTimeout
	}

	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&"
	} else {
		dsn += "?"
	}
	pragmas := []string{
		"foreign_keys(1)",
		fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()),
		"synchronous(NORMAL)",
	}
	if !memory {
		pragmas = append(pragmas, "journal_mode(WAL)")
	}
	dsn += "_pragma=" + strings.Join(pragmas, "&_pragma=")

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	// An in-memory database lives as long as its connection.
	if memory {
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	return database.NewSQLConnection(db, database.DriverSQLite), nil
}
