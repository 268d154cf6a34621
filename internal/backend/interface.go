package backend

import (
	"context"

	"rateio/internal/amqp"
	"rateio/internal/storage"
)

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Result holds the store and, when a broker is configured, the AMQP client
// used to publish and consume ledger changes.
type Result struct {
	Store   storage.Store
	AMQP    *amqp.Client
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Empty AMQPURL disables change messages.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// RequireAMQP fails creation when the broker is unreachable instead of
	// continuing without it.
	RequireAMQP bool
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
