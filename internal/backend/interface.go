package backend

import (
	"context"
	"time"

	"forestgrant/internal/amqp"
	"forestgrant/internal/cache"
	"forestgrant/internal/ports"
	"forestgrant/internal/services"
)

// Pinger is implemented by backends that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CleanupFunc releases everything a Result holds.
type CleanupFunc func() error

// Result is a wired data backend.
type Result struct {
	Store ports.Store
	// Categories is Store's category list behind the TTL cache.
	Categories *cache.CachedCategories
	// Publisher is nil when AMQP is not configured or unreachable.
	Publisher services.Publisher
	// AMQP is the underlying client, nil under the same conditions.
	AMQP  *amqp.Client
	Ready Pinger
	Cache *cache.Manager

	Cleanup CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

type Config struct {
	Type BackendType

	SQLiteDBPath  string
	DataDirectory string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	CategoryCacheTTL time.Duration
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
