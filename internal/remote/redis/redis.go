// Package redis mirrors the ledger to a Redis hash: one field per
// transaction id, the value an encoded record.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"lottoledger/internal/core"
	"lottoledger/internal/record"
	"lottoledger/internal/remote"
)

// DefaultKey is the hash that holds the ledger.
const DefaultKey = "lottoledger:transactions"

// Config holds the connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

type Client struct {
	rdb   *goredis.Client
	key   string
	codec record.Codec
}

var _ remote.Syncer = (*Client)(nil)

// New connects to Redis and checks the connection.
func New(ctx context.Context, cfg Config, codec record.Codec) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:            cfg.Addr,
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        4,
		ConnMaxIdleTime: 5 * time.Minute,
		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewWithClient(rdb, cfg.Key, codec), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(rdb *goredis.Client, key string, codec record.Codec) *Client {
	if key == "" {
		key = DefaultKey
	}
	if codec == nil {
		codec = record.JSON{}
	}
	return &Client{rdb: rdb, key: key, codec: codec}
}

func (c *Client) Name() string { return "redis" }

func (c *Client) Close() error { return c.rdb.Close() }

// SaveAll writes every transaction with a single HSET.
func (c *Client) SaveAll(ctx context.Context, txs []core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	fields, err := encodeFields(c.codec, txs)
	if err != nil {
		return err
	}
	if err := c.rdb.HSet(ctx, c.key, fields).Err(); err != nil {
		return fmt.Errorf("hset %s: %w", c.key, err)
	}
	slog.InfoContext(ctx, "Ledger written to Redis", "key", c.key, "count", len(txs))
	return nil
}

// LoadAll reads the whole hash. Values that fail to decode are skipped.
func (c *Client) LoadAll(ctx context.Context) ([]core.Transaction, error) {
	values, err := c.rdb.HGetAll(ctx, c.key).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", c.key, err)
	}
	return decodeFields(ctx, c.codec, values), nil
}

func encodeFields(codec record.Codec, txs []core.Transaction) (map[string]any, error) {
	fields := make(map[string]any, len(txs))
	for _, t := range txs {
		b, err := codec.Encode(t)
		if err != nil {
			return nil, fmt.Errorf("encode transaction %s: %w", t.ID, err)
		}
		fields[t.ID] = b
	}
	return fields, nil
}

func decodeFields(ctx context.Context, codec record.Codec, values map[string]string) []core.Transaction {
	out := make([]core.Transaction, 0, len(values))
	for id, v := range values {
		t, err := codec.Decode([]byte(v))
		if err != nil {
			slog.WarnContext(ctx, "Skipping undecodable Redis value", "field", id, "error", err)
			continue
		}
		if t.ID == "" {
			t.ID = id
		}
		out = append(out, t)
	}
	return remote.NewestFirst(out)
}
