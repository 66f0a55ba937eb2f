package postgres

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/pkg/errors"

	// PostgreSQL driver.
	_ "github.com/lib/pq"
)

// DB implements store.Driver on PostgreSQL.
type DB struct {
	db *sql.DB
}

func NewDB(dsn string) (*DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres database")
	}
	if err := conn.Ping(); err != nil {
		return nil, errors.Wrap(err, "ping postgres database")
	}
	return &DB{db: conn}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chat_session (
			id          SERIAL PRIMARY KEY,
			uid         TEXT    NOT NULL UNIQUE,
			user_id     TEXT    NOT NULL,
			title       TEXT    NOT NULL,
			is_favorite BOOLEAN NOT NULL DEFAULT FALSE,
			created_ts  BIGINT  NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW()),
			updated_ts  BIGINT  NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())
		)`,
		`CREATE TABLE IF NOT EXISTS chat_message (
			id         SERIAL PRIMARY KEY,
			session_id INTEGER NOT NULL REFERENCES chat_session(id) ON DELETE CASCADE,
			sender     TEXT    NOT NULL,
			content    TEXT    NOT NULL,
			context    TEXT    NOT NULL DEFAULT '',
			created_ts BIGINT  NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_message_session ON chat_message(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_session_user ON chat_session(user_id)`,
	}
	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "migrate postgres schema")
		}
	}
	return nil
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
