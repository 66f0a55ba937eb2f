// Package profile holds the process-wide configuration.
package profile

import (
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// Profile is the resolved configuration for one server process.
type Profile struct {
	// Addr is the bind address, empty for all interfaces.
	Addr string
	// Port is the HTTP listen port.
	Port int
	// Data is the directory for local state (sqlite database, vector store).
	Data string
	// Driver is the database backend: sqlite, mysql or postgres.
	Driver string
	// DSN is the database connection string.
	DSN string

	// APIKey is the secret every non-exempt request must present in X-API-Key.
	APIKey string

	// RateLimitCapacity is the maximum token count per client bucket.
	RateLimitCapacity int64
	// RateLimitRefillTokens tokens are added every RateLimitRefillInterval.
	RateLimitRefillTokens   int64
	RateLimitRefillInterval time.Duration

	// AIEnabled administratively switches the assistant on or off.
	AIEnabled bool
	// AIAPIKey is the credential for the generation endpoint.
	AIAPIKey string
	// AIBaseURL is the OpenAI-compatible endpoint base, e.g. ".../v1".
	AIBaseURL string
	// AIModel is the chat model identifier.
	AIModel string
	// AITimeout bounds a single generation request.
	AITimeout time.Duration
	// AIEmbeddingsModel enables semantic message memory when non-empty.
	AIEmbeddingsModel string
}

func (p *Profile) Validate() error {
	switch p.Driver {
	case "sqlite", "mysql", "postgres":
	default:
		return errors.Errorf("unsupported database driver %q", p.Driver)
	}
	if p.Driver == "sqlite" && p.DSN == "" {
		p.DSN = filepath.Join(p.Data, "ragchat.db")
	}
	if p.DSN == "" {
		return errors.Errorf("dsn is required for driver %q", p.Driver)
	}
	if p.APIKey == "" {
		return errors.New("api key must be configured")
	}
	if p.RateLimitCapacity <= 0 || p.RateLimitRefillTokens <= 0 || p.RateLimitRefillInterval <= 0 {
		return errors.New("rate limit capacity, refill tokens and refill interval must be positive")
	}
	if p.AITimeout <= 0 {
		return errors.New("ai timeout must be positive")
	}
	return nil
}
