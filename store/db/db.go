// Package db selects the concrete database driver for the configured backend.
package db

import (
	"github.com/pkg/errors"

	"github.com/ragchat/ragchat/server/profile"
	"github.com/ragchat/ragchat/store"
	"github.com/ragchat/ragchat/store/db/mysql"
	"github.com/ragchat/ragchat/store/db/postgres"
	"github.com/ragchat/ragchat/store/db/sqlite"
)

// NewDriver opens the database driver named by profile.Driver.
func NewDriver(profile *profile.Profile) (store.Driver, error) {
	switch profile.Driver {
	case "sqlite":
		return sqlite.NewDB(profile.DSN)
	case "mysql":
		return mysql.NewDB(profile.DSN)
	case "postgres":
		return postgres.NewDB(profile.DSN)
	default:
		return nil, errors.Errorf("unsupported database driver %q", profile.Driver)
	}
}
