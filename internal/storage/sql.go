package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/aatumaykin/ipubot/internal/events"
	"github.com/aatumaykin/ipubot/internal/ledger"
	"github.com/aatumaykin/ipubot/internal/logger"
	"github.com/aatumaykin/ipubot/internal/retry"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

const (
	queryListEvents  = `SELECT event, cron FROM events ORDER BY event`
	queryInsertEvent = `INSERT INTO events (event, cron) VALUES (?, ?) ON CONFLICT (event) DO NOTHING`
	queryUpdateEvent = `UPDATE events SET cron = ? WHERE event = ?`
	queryDeleteEvent = `DELETE FROM events WHERE event = ?`
	queryListUsers   = `SELECT id, name, count FROM users ORDER BY name, id`
	queryResetUsers  = `DELETE FROM users`
	queryAddPoints   = `INSERT INTO users (id, name, count) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, count = users.count + excluded.count
		RETURNING id, name, count`
)

// SQLStore is the database/sql backend shared by sqlite and postgres.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	log     *logger.Logger
}

// OpenSQLite opens (creating if needed) the database file at path and migrates it.
func OpenSQLite(ctx context.Context, path string, log *logger.Logger) (*SQLStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single connection serializes writes.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			log.Warn("sqlite pragma failed", logger.Field{Key: "pragma", Value: pragma}, logger.Field{Key: "error", Value: err})
		}
	}

	return newSQLStore(ctx, db, dialectSQLite, log)
}

// postgresConnectAttempts covers a database container that is still starting.
const postgresConnectAttempts = 5

// OpenPostgres connects to dsn and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string, log *logger.Logger) (*SQLStore, error) {
	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}
	db := sql.OpenDB(connector)
	_, err = retry.Do(ctx, retry.Config{MaxAttempts: postgresConnectAttempts}, log, "postgres connect",
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, db.PingContext(ctx)
		})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return newSQLStore(ctx, db, dialectPostgres, log)
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect, log *logger.Logger) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: d, log: log}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	files, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, name := range files {
		body, err := migrationsFS.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("migration %s failed: %w", name, err)
		}
		s.log.Debug("migration applied", logger.Field{Key: "file", Value: name})
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != dialectPostgres {
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

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// ListAll returns every event definition ordered by name.
func (s *SQLStore) ListAll(ctx context.Context) ([]events.Definition, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(queryListEvents))
	if err != nil {
		return nil, events.NewStoreError("list", err)
	}
	defer rows.Close()

	var defs []events.Definition
	for rows.Next() {
		var def events.Definition
		if err := rows.Scan(&def.Name, &def.Schedule); err != nil {
			return nil, events.NewStoreError("list", err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, events.NewStoreError("list", err)
	}
	return defs, nil
}

// Insert stores a new definition.
func (s *SQLStore) Insert(ctx context.Context, def events.Definition) error {
	res, err := s.db.ExecContext(ctx, s.rebind(queryInsertEvent), def.Name, def.Schedule)
	if err != nil {
		return events.NewStoreError("insert", err)
	}
	return expectRow(res, "insert", events.ErrDuplicateName)
}

// Update replaces the schedule of an existing definition.
func (s *SQLStore) Update(ctx context.Context, def events.Definition) error {
	res, err := s.db.ExecContext(ctx, s.rebind(queryUpdateEvent), def.Schedule, def.Name)
	if err != nil {
		return events.NewStoreError("update", err)
	}
	return expectRow(res, "update", events.ErrNotFound)
}

// Delete removes a definition.
func (s *SQLStore) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(queryDeleteEvent), name)
	if err != nil {
		return events.NewStoreError("delete", err)
	}
	return expectRow(res, "delete", events.ErrNotFound)
}

func expectRow(res sql.Result, op string, none error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return events.NewStoreError(op, err)
	}
	if n == 0 {
		return none
	}
	return nil
}

// ListUsers returns every ledger user ordered by name.
func (s *SQLStore) ListUsers(ctx context.Context) ([]ledger.User, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(queryListUsers))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []ledger.User
	for rows.Next() {
		var u ledger.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Count); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// ResetUsers deletes every ledger user.
func (s *SQLStore) ResetUsers(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.rebind(queryResetUsers)); err != nil {
		return fmt.Errorf("reset users: %w", err)
	}
	return nil
}

// AddPoints upserts the user and adds amount to its count.
func (s *SQLStore) AddPoints(ctx context.Context, id, name string, amount int64) (ledger.User, error) {
	var u ledger.User
	err := s.db.QueryRowContext(ctx, s.rebind(queryAddPoints), id, name, amount).Scan(&u.ID, &u.Name, &u.Count)
	if err != nil {
		return ledger.User{}, fmt.Errorf("add points: %w", err)
	}
	return u, nil
}
