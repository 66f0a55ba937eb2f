package store

import "context"

// Store is the domain-facing persistence API. All methods delegate to the
// configured database driver.
type Store struct {
	driver Driver
}

func New(driver Driver) *Store {
	return &Store{driver: driver}
}

// Migrate creates the chat tables if they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}
