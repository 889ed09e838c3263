package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"lottoledger/internal/amqp"
	"lottoledger/internal/record"
	"lottoledger/internal/remote"
	remotemem "lottoledger/internal/remote/memory"
	remoteredis "lottoledger/internal/remote/redis"
	remotes3 "lottoledger/internal/remote/s3"
	"lottoledger/internal/remote/sheets"
	"lottoledger/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger

	// Overridable in tests
	newSheets func(ctx context.Context, cfg sheets.Config) (remote.Syncer, error)
	newRedis  func(ctx context.Context, cfg remoteredis.Config, codec record.Codec) (remote.Syncer, error)
	newS3     func(ctx context.Context, cfg remotes3.Config, codec record.Codec) (remote.Syncer, error)
	newAMQP   func(url, exchange, queue string) (*amqp.Client, error)
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
		newSheets: func(ctx context.Context, cfg sheets.Config) (remote.Syncer, error) {
			return sheets.New(ctx, cfg)
		},
		newRedis: func(ctx context.Context, cfg remoteredis.Config, codec record.Codec) (remote.Syncer, error) {
			return remoteredis.New(ctx, cfg, codec)
		},
		newS3: func(ctx context.Context, cfg remotes3.Config, codec record.Codec) (remote.Syncer, error) {
			return remotes3.New(ctx, cfg, codec)
		},
		newAMQP: amqp.NewClient,
	}
}

var _ Factory = (*DefaultFactory)(nil)

// Create builds the local repository, the remote syncer and the AMQP client.
// Only a local repository failure is an error; the others degrade.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	codec, err := record.NewCodec(config.Codec)
	if err != nil {
		return nil, err
	}

	repo, err := f.createRepository(config, codec)
	if err != nil {
		return nil, err
	}
	res := &Result{Repository: repo}
	closers := []func() error{repo.Close}

	res.Remote, res.RemoteNotice = f.createRemote(ctx, config, codec)
	if c, ok := res.Remote.(interface{ Close() error }); ok {
		closers = append(closers, c.Close)
	}

	if config.AMQPURL != "" {
		client, err := f.newAMQP(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without queued sync", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			res.AMQP = client
			closers = append(closers, client.Close)
		}
	}

	res.Cleanup = func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	return res, nil
}

func (f *DefaultFactory) createRepository(config Config, codec record.Codec) (storage.Repository, error) {
	switch config.Local {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, config.StorageKey, codec)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend",
			"db_path", config.SQLiteDBPath,
			"key", config.StorageKey,
			"codec", codec.Name())
		return repo, nil
	case MemoryBackend:
		f.logger.Info("Initialized memory backend", "codec", codec.Name())
		return storage.NewMemoryRepository(codec), nil
	default:
		return nil, fmt.Errorf("unsupported local backend: %s", config.Local)
	}
}

// createRemote returns the syncer, or nil and a notice for the user.
func (f *DefaultFactory) createRemote(ctx context.Context, config Config, codec record.Codec) (remote.Syncer, string) {
	var (
		syncer remote.Syncer
		err    error
	)
	switch config.Remote {
	case RemoteNone, "":
		return nil, "remote sync is not configured; data is kept locally"
	case RemoteMemory:
		syncer = remotemem.New()
	case RemoteSheets:
		syncer, err = f.newSheets(ctx, config.Sheets)
	case RemoteRedis:
		syncer, err = f.newRedis(ctx, config.Redis, codec)
	case RemoteS3:
		syncer, err = f.newS3(ctx, config.S3, codec)
	default:
		err = fmt.Errorf("unsupported remote backend: %s", config.Remote)
	}
	if err != nil {
		f.logger.Warn("Remote backend unavailable, continuing local-only",
			"remote", config.Remote.String(), "error", err)
		return nil, fmt.Sprintf("%s sync unavailable (%v); data is kept locally", config.Remote, err)
	}

	f.logger.Info("Initialized remote backend", "remote", syncer.Name())
	return syncer, ""
}
