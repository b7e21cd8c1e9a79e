package backend

import (
	"context"
	"time"

	"asrama/internal/store"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend store.Backend
	Cleanup CleanupFunc
}

// Pinger is implemented by backends that can report their own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type BackendType

	// REST specific
	APIBaseURL string
	APITimeout time.Duration

	// SQLite specific
	SQLiteDBPath string

	// Memory specific
	SeedFile string

	// Bootstrap admin for sqlite and memory
	AdminEmail    string
	AdminPassword string
}

type BackendType string

const (
	RestBackend   BackendType = "rest"
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case RestBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
