package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lottoledger/internal/amqp"
	"lottoledger/internal/config"
	"lottoledger/internal/core"
	"lottoledger/internal/record"
	"lottoledger/internal/remote"
	remotemem "lottoledger/internal/remote/memory"
	remoteredis "lottoledger/internal/remote/redis"
	"lottoledger/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	app := &config.Config{
		LocalBackend:  "sqlite",
		SQLiteDBPath:  "./data/ledger.db",
		StorageKey:    "transactions",
		StorageCodec:  "msgpack",
		RemoteBackend: "redis",
		RedisAddr:     "cache:6379",
		RedisDB:       2,
		S3Bucket:      "ledger",
		AMQPURL:       "amqp://broker",
	}

	cfg, err := FromAppConfig(app)
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, cfg.Local)
	assert.Equal(t, RemoteRedis, cfg.Remote)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "ledger", cfg.S3.Bucket)
	assert.Equal(t, "amqp://broker", cfg.AMQPURL)

	_, err = FromAppConfig(nil)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory local", Config{Local: MemoryBackend, Remote: RemoteNone}, false},
		{"sqlite without path", Config{Local: SQLiteBackend, Remote: RemoteNone}, true},
		{"unknown local", Config{Local: "csv", Remote: RemoteNone}, true},
		{"unknown remote", Config{Local: MemoryBackend, Remote: "ftp"}, true},
		{"unknown codec", Config{Local: MemoryBackend, Remote: RemoteNone, Codec: "gob"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFactory_SQLiteLocalOnly(t *testing.T) {
	f := NewFactory(nil)
	res, err := f.Create(context.Background(), Config{
		Local:        SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "ledger.db"),
		Remote:       RemoteNone,
	})
	require.NoError(t, err)
	t.Cleanup(func() { res.Cleanup() })

	assert.IsType(t, &storage.SQLiteRepository{}, res.Repository)
	assert.Nil(t, res.Remote)
	assert.Contains(t, res.RemoteNotice, "not configured")
	assert.Nil(t, res.AMQP)
}

func TestFactory_MemoryRemote(t *testing.T) {
	res, err := NewFactory(nil).Create(context.Background(), Config{Local: MemoryBackend, Remote: RemoteMemory})
	require.NoError(t, err)

	require.NotNil(t, res.Remote)
	assert.Equal(t, "memory", res.Remote.Name())
	assert.Empty(t, res.RemoteNotice)
	assert.NoError(t, res.Cleanup())
}

func TestFactory_RemoteFailureDegrades(t *testing.T) {
	f := NewFactory(nil)
	f.newRedis = func(context.Context, remoteredis.Config, record.Codec) (remote.Syncer, error) {
		return nil, errors.New("redis ping failed: connection refused")
	}

	res, err := f.Create(context.Background(), Config{Local: MemoryBackend, Remote: RemoteRedis})
	require.NoError(t, err)
	assert.Nil(t, res.Remote)
	assert.Contains(t, res.RemoteNotice, "redis sync unavailable")
	assert.Contains(t, res.RemoteNotice, "connection refused")
}

func TestFactory_SheetsWithoutCredentialsDegrades(t *testing.T) {
	res, err := NewFactory(nil).Create(context.Background(), Config{Local: MemoryBackend, Remote: RemoteSheets})
	require.NoError(t, err)
	assert.Nil(t, res.Remote)
	assert.Contains(t, res.RemoteNotice, "GOOGLE_SPREADSHEET_ID")
}

func TestFactory_AMQPFailureDegrades(t *testing.T) {
	f := NewFactory(nil)
	f.newAMQP = func(string, string, string) (*amqp.Client, error) {
		return nil, errors.New("dial AMQP: connection refused")
	}

	res, err := f.Create(context.Background(), Config{Local: MemoryBackend, Remote: RemoteNone, AMQPURL: "amqp://broker"})
	require.NoError(t, err)
	assert.Nil(t, res.AMQP)
}

func TestFactory_CodecReachesRepository(t *testing.T) {
	f := NewFactory(nil)
	var got record.Codec
	f.newRedis = func(_ context.Context, _ remoteredis.Config, codec record.Codec) (remote.Syncer, error) {
		got = codec
		return remotemem.New(), nil
	}

	res, err := f.Create(context.Background(), Config{Local: MemoryBackend, Remote: RemoteRedis, Codec: "msgpack"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, record.CodecMsgpack, got.Name())

	ctx := context.Background()
	require.NoError(t, res.Repository.Save(ctx, []core.Transaction{{ID: "a", Date: "2024-03-10"}}))
	txs, err := res.Repository.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}
