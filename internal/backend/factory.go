package backend

import (
	"context"
	"errors"
	"fmt"

	"rateio/internal/amqp"
	applog "rateio/internal/log"
	"rateio/internal/storage"
	"rateio/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) *DefaultFactory {
	if logger == nil {
		logger = applog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// Create opens the store and, if configured, connects to the broker.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store storage.Store
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		store, err = storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		store = memory.NewStore()
		f.logger.InfoContext(ctx, "Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	res := &Result{Store: store}
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		switch {
		case err != nil && config.RequireAMQP:
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
		case err != nil:
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change messages", applog.FieldError, err)
		default:
			res.AMQP = client
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	res.Cleanup = func() error {
		var errs []error
		if res.AMQP != nil {
			errs = append(errs, res.AMQP.Close())
		}
		errs = append(errs, store.Close())
		return errors.Join(errs...)
	}
	return res, nil
}
