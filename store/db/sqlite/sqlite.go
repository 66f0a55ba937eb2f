package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	// SQLite driver.
	_ "modernc.org/sqlite"
)

// DB implements store.Driver on SQLite.
type DB struct {
	db *sql.DB
}

func NewDB(dsn string) (*DB, error) {
	// foreign_keys is off by default and per-connection; the DSN form applies
	// it to every connection the pool opens, so a message insert racing a
	// session delete fails instead of leaving an orphan row.
	if !strings.Contains(dsn, "_pragma=foreign_keys") {
		if strings.Contains(dsn, "?") {
			dsn += "&_pragma=foreign_keys(1)"
		} else {
			dsn += "?_pragma=foreign_keys(1)"
		}
	}
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite database")
	}
	// SQLite allows only one writer; a single pooled connection avoids
	// SQLITE_BUSY under concurrent requests.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	return &DB{db: conn}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chat_session (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			uid         TEXT    NOT NULL UNIQUE,
			user_id     TEXT    NOT NULL,
			title       TEXT    NOT NULL,
			is_favorite INTEGER NOT NULL DEFAULT 0,
			created_ts  BIGINT  NOT NULL DEFAULT (strftime('%s', 'now')),
			updated_ts  BIGINT  NOT NULL DEFAULT (strftime('%s', 'now'))
		)`,
		`CREATE TABLE IF NOT EXISTS chat_message (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id INTEGER NOT NULL REFERENCES chat_session(id) ON DELETE CASCADE,
			sender     TEXT    NOT NULL,
			content    TEXT    NOT NULL,
			context    TEXT    NOT NULL DEFAULT '',
			created_ts BIGINT  NOT NULL DEFAULT (strftime('%s', 'now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_message_session ON chat_message(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_session_user ON chat_session(user_id)`,
	}
	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "migrate sqlite schema")
		}
	}
	return nil
}
