// Package store aggregates transaction counts from a SQL database.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fluxorio/mtp/pkg/transactions"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPGX      = "pgx"
	DriverPostgres = "postgres"
)

//go:embed schema.sql
var schema string

// SQLStore reads transaction counts from the transactions table
type SQLStore struct {
	db     *sql.DB
	driver string
}

// Open opens and pings a database with one of the supported drivers
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	switch driver {
	case DriverSQLite, DriverPGX, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", driver, err)
	}
	if driver == DriverSQLite {
		// one connection keeps ":memory:" databases alive and shared
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s db: %w", driver, err)
	}
	return &SQLStore{db: db, driver: driver}, nil
}

// New wraps an open database handle
func New(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

// DB returns the underlying handle
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Close closes the database handle
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the connection
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the transactions table when missing
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// CountByStatus returns the number of transactions per status
func (s *SQLStore) CountByStatus(ctx context.Context) (map[transactions.Status]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM transactions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[transactions.Status]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[transactions.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	return counts, nil
}

// Apply records the status carried by ev, inserting the transaction when new
func (s *SQLStore) Apply(ctx context.Context, ev transactions.Event) error {
	if strings.TrimSpace(ev.ID) == "" {
		return fmt.Errorf("transaction id is required")
	}
	if !ev.Status.Valid() {
		return fmt.Errorf("unknown status %q", ev.Status)
	}
	at := ev.Time.UTC()
	if at.IsZero() {
		at = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO transactions (id, status, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at`),
		ev.ID, string(ev.Status), at,
	)
	if err != nil {
		return fmt.Errorf("apply %s: %w", ev.ID, err)
	}
	return nil
}

// rebind rewrites ? placeholders to $n for the postgres drivers
func (s *SQLStore) rebind(query string) string {
	if s.driver == DriverSQLite {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
