package mysql

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	// MySQL driver.
	_ "github.com/go-sql-driver/mysql"
)

// DB implements store.Driver on MySQL.
type DB struct {
	db *sql.DB
}

func NewDB(dsn string) (*DB, error) {
	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open mysql database")
	}
	if err := conn.Ping(); err != nil {
		return nil, errors.Wrap(err, "ping mysql database")
	}
	return &DB{db: conn}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		"CREATE TABLE IF NOT EXISTS `chat_session` (" +
			"`id` INT NOT NULL AUTO_INCREMENT PRIMARY KEY, " +
			"`uid` VARCHAR(256) NOT NULL UNIQUE, " +
			"`user_id` VARCHAR(256) NOT NULL, " +
			"`title` TEXT NOT NULL, " +
			"`is_favorite` BOOLEAN NOT NULL DEFAULT FALSE, " +
			"`created_ts` BIGINT NOT NULL DEFAULT (UNIX_TIMESTAMP()), " +
			"`updated_ts` BIGINT NOT NULL DEFAULT (UNIX_TIMESTAMP()), " +
			"INDEX `idx_chat_session_user` (`user_id`))",
		"CREATE TABLE IF NOT EXISTS `chat_message` (" +
			"`id` INT NOT NULL AUTO_INCREMENT PRIMARY KEY, " +
			"`session_id` INT NOT NULL, " +
			"`sender` VARCHAR(32) NOT NULL, " +
			"`content` TEXT NOT NULL, " +
			"`context` TEXT NOT NULL, " +
			"`created_ts` BIGINT NOT NULL DEFAULT (UNIX_TIMESTAMP()), " +
			"INDEX `idx_chat_message_session` (`session_id`), " +
			"CONSTRAINT `fk_chat_message_session` FOREIGN KEY (`session_id`) REFERENCES `chat_session`(`id`) ON DELETE CASCADE)",
	}
	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "migrate mysql schema")
		}
	}
	return nil
}
