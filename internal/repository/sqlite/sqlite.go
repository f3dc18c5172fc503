// Package sqlite implements the repository interfaces on an embedded SQLite
// database (modernc.org/sqlite, pure Go, no cgo).
//
// It mirrors the document layout of the mongo backend: set-valued document
// fields (favorites, likes/dislikes, flags) live in child tables keyed by the
// parent id, and the faculty course list is a JSON column. Ids are xids.
//
// The pool is limited to one connection. SQLite allows a single writer
// anyway, PRAGMAs are per connection, and ":memory:" databases are per
// connection too. The consequence is that no statement may run while a
// *sql.Rows is still open; every reader here drains and closes its rows
// before issuing the next query.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sakif/faculty-review/internal/repository"
)

var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and implements repository.Store.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// New opens (creating if needed) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/faculty-review.db" → file-based database
//   - ":memory:"               → in-memory database, used by tests
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{
		conn: conn,
		now:  func() time.Time { return time.Now().UTC() },
	}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates every table. CREATE ... IF NOT EXISTS keeps it idempotent.
func (db *DB) migrate() error {
	steps := []struct {
		name string
		sql  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id            TEXT PRIMARY KEY,
				name          TEXT NOT NULL,
				email         TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				role          TEXT NOT NULL DEFAULT 'user',
				created_at    DATETIME NOT NULL,
				updated_at    DATETIME NOT NULL,
				last_login    DATETIME
			);
			CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);`},
		{"user_favorites", `
			CREATE TABLE IF NOT EXISTS user_favorites (
				user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				faculty_id TEXT NOT NULL,
				PRIMARY KEY (user_id, faculty_id)
			);
			CREATE INDEX IF NOT EXISTS idx_user_favorites_faculty ON user_favorites(faculty_id);`},
		{"faculties", `
			CREATE TABLE IF NOT EXISTS faculties (
				id             TEXT PRIMARY KEY,
				initial        TEXT NOT NULL UNIQUE,
				department     TEXT NOT NULL DEFAULT '',
				courses        TEXT NOT NULL DEFAULT '[]',
				average_rating REAL NOT NULL DEFAULT 0,
				total_reviews  INTEGER NOT NULL DEFAULT 0
			);`},
		{"reviews", `
			CREATE TABLE IF NOT EXISTS reviews (
				id         TEXT PRIMARY KEY,
				user_id    TEXT,
				faculty_id TEXT NOT NULL,
				rating     INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
				text       TEXT NOT NULL DEFAULT '',
				is_admin   INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_reviews_faculty ON reviews(faculty_id);
			CREATE INDEX IF NOT EXISTS idx_reviews_user ON reviews(user_id);`},
		{"review_reactions", `
			CREATE TABLE IF NOT EXISTS review_reactions (
				review_id TEXT NOT NULL REFERENCES reviews(id) ON DELETE CASCADE,
				user_id   TEXT NOT NULL,
				kind      TEXT NOT NULL CHECK (kind IN ('like', 'dislike')),
				PRIMARY KEY (review_id, user_id)
			);`},
		{"review_flags", `
			CREATE TABLE IF NOT EXISTS review_flags (
				review_id  TEXT NOT NULL REFERENCES reviews(id) ON DELETE CASCADE,
				user_id    TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				PRIMARY KEY (review_id, user_id)
			);`},
		{"notifications", `
			CREATE TABLE IF NOT EXISTS notifications (
				id         TEXT PRIMARY KEY,
				type       TEXT NOT NULL,
				message    TEXT NOT NULL,
				review_id  TEXT NOT NULL DEFAULT '',
				user_id    TEXT NOT NULL,
				is_read    INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at);`},
		{"activities", `
			CREATE TABLE IF NOT EXISTS activities (
				id             TEXT PRIMARY KEY,
				type           TEXT NOT NULL,
				user_id        TEXT NOT NULL,
				description    TEXT NOT NULL,
				related_entity TEXT NOT NULL DEFAULT '',
				entity_model   TEXT NOT NULL DEFAULT '',
				created_at     DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_activities_created_at ON activities(created_at);`},
		{"visitors", `
			CREATE TABLE IF NOT EXISTS visitors (
				visitor_id TEXT PRIMARY KEY,
				last_visit DATETIME NOT NULL
			);`},
	}

	for _, step := range steps {
		if _, err := db.conn.Exec(step.sql); err != nil {
			return fmt.Errorf("creating %s table: %w", step.name, err)
		}
	}
	return nil
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// isUniqueViolation reports whether err came from a UNIQUE or PRIMARY KEY
// constraint. The driver only exposes this through the message text.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}

func rowsAffected(result sql.Result) (int64, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n, nil
}
