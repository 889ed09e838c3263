package backend

import (
	"context"

	"lottoledger/internal/amqp"
	"lottoledger/internal/remote"
	remoteredis "lottoledger/internal/remote/redis"
	remotes3 "lottoledger/internal/remote/s3"
	"lottoledger/internal/remote/sheets"
	"lottoledger/internal/storage"
)

// CleanupFunc releases the resources of a built backend.
type CleanupFunc func() error

// Result holds everything the ledger needs to persist and sync.
type Result struct {
	Repository storage.Repository
	// Remote is nil when no remote store is configured or it failed to start.
	Remote remote.Syncer
	// RemoteNotice explains a nil Remote.
	RemoteNotice string
	// AMQP is nil when no broker is configured or it is unreachable.
	AMQP    *amqp.Client
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation.
type Config struct {
	Local        LocalType
	SQLiteDBPath string
	StorageKey   string
	Codec        string

	Remote RemoteType
	Sheets sheets.Config
	Redis  remoteredis.Config
	S3     remotes3.Config

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// LocalType selects the local repository.
type LocalType string

const (
	SQLiteBackend LocalType = "sqlite"
	MemoryBackend LocalType = "memory"
)

func (t LocalType) String() string { return string(t) }

func (t LocalType) IsValid() bool {
	switch t {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// RemoteType selects the remote document store.
type RemoteType string

const (
	RemoteNone   RemoteType = "none"
	RemoteMemory RemoteType = "memory"
	RemoteSheets RemoteType = "sheets"
	RemoteRedis  RemoteType = "redis"
	RemoteS3     RemoteType = "s3"
)

func (t RemoteType) String() string { return string(t) }

func (t RemoteType) IsValid() bool {
	switch t {
	case RemoteNone, RemoteMemory, RemoteSheets, RemoteRedis, RemoteS3:
		return true
	default:
		return false
	}
}
