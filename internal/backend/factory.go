package backend

import (
	"context"
	"errors"
	"fmt"

	"forestgrant/internal/amqp"
	"forestgrant/internal/cache"
	applog "forestgrant/internal/log"
	"forestgrant/internal/ports"
	"forestgrant/internal/storage"
	"forestgrant/internal/storage/memory"
)

type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

// CreateBackend opens the store, puts the category cache in front of it
// and connects to AMQP when configured. An unreachable broker is logged
// and the backend runs without publishing.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	res := &Result{}
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		res.Store = repo
		res.Ready = repo
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		dataDir := config.DataDirectory
		if dataDir == "" {
			dataDir = "data"
		}
		res.Store = memory.NewFromDir(dataDir)
		f.logger.InfoContext(ctx, "Initialized memory backend", "data_directory", dataDir)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	ttl := config.CategoryCacheTTL
	if ttl <= 0 {
		ttl = defaultCategoryCacheTTL
	}
	res.Categories = cache.NewCachedCategories(res.Store, ttl)
	res.Cache = cache.NewManager()
	res.Cache.Register(res.Categories.Cleaner())
	res.Cache.StartCleanup(ttl)

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without publishing", applog.FieldError, err)
		} else {
			res.AMQP = client
			res.Publisher = client
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	res.Cleanup = cleanup(res.Store, res.Cache, res.AMQP)
	return res, nil
}

func cleanup(store ports.Store, mgr *cache.Manager, client *amqp.Client) CleanupFunc {
	return func() error {
		mgr.Stop()
		var errs []error
		if client != nil {
			if err := client.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close amqp: %w", err))
			}
		}
		if err := store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
		return errors.Join(errs...)
	}
}
