// Package s3 mirrors the ledger to an S3-compatible bucket, one object per
// transaction under a common prefix.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"

	"lottoledger/internal/core"
	"lottoledger/internal/record"
	"lottoledger/internal/remote"
)

// DefaultPrefix is prepended to every object key.
const DefaultPrefix = "transactions/"

// maxInFlight bounds concurrent object requests.
const maxInFlight = 8

// Config selects the bucket and, for non-AWS stores, the endpoint.
type Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// api is the subset of the S3 client used here.
type api interface {
	s3.ListObjectsV2APIClient
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type Client struct {
	api    api
	bucket string
	prefix string
	codec  record.Codec
}

var _ remote.Syncer = (*Client)(nil)

// New builds a client from the default AWS credential chain, or from static
// keys when both are set.
func New(ctx context.Context, cfg Config, codec record.Codec) (*Client, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("missing S3_BUCKET")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newClient(client, cfg.Bucket, cfg.Prefix, codec), nil
}

func newClient(api api, bucket, prefix string, codec record.Codec) *Client {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if codec == nil {
		codec = record.JSON{}
	}
	return &Client{api: api, bucket: bucket, prefix: prefix, codec: codec}
}

func (c *Client) Name() string { return "s3" }

// objectKey is the key of the object holding transaction id.
func (c *Client) objectKey(id string) string {
	return c.prefix + id + "." + c.codec.Name()
}

// ownsKey reports whether key was written by this client's codec.
func (c *Client) ownsKey(key string) bool {
	return strings.HasPrefix(key, c.prefix) && strings.HasSuffix(key, "."+c.codec.Name())
}

func contentType(codec record.Codec) string {
	if codec.Name() == record.CodecMsgpack {
		return "application/msgpack"
	}
	return "application/json"
}

// SaveAll puts one object per transaction, a bounded number at a time.
func (c *Client) SaveAll(ctx context.Context, txs []core.Transaction) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInFlight)

	for _, t := range txs {
		body, err := c.codec.Encode(t)
		if err != nil {
			return fmt.Errorf("encode transaction %s: %w", t.ID, err)
		}
		key := c.objectKey(t.ID)
		g.Go(func() error {
			_, err := c.api.PutObject(gctx, &s3.PutObjectInput{
				Bucket:      aws.String(c.bucket),
				Key:         aws.String(key),
				Body:        bytes.NewReader(body),
				ContentType: aws.String(contentType(c.codec)),
			})
			if err != nil {
				return fmt.Errorf("put %s: %w", key, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Ledger written to S3", "bucket", c.bucket, "prefix", c.prefix, "count", len(txs))
	return nil
}

// LoadAll lists the prefix and fetches every object. Objects that fail to
// decode are skipped.
func (c *Client) LoadAll(ctx context.Context) ([]core.Transaction, error) {
	keys, err := c.listKeys(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*core.Transaction, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInFlight)
	for i, key := range keys {
		g.Go(func() error {
			t, err := c.fetch(gctx, key)
			if err != nil {
				return err
			}
			results[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]core.Transaction, 0, len(results))
	for _, t := range results {
		if t != nil {
			out = append(out, *t)
		}
	}
	return remote.NewestFirst(out), nil
}

func (c *Client) listKeys(ctx context.Context) ([]string, error) {
	var keys []string
	p := s3.NewListObjectsV2Paginator(c.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(c.prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s/%s: %w", c.bucket, c.prefix, err)
		}
		for _, obj := range page.Contents {
			if key := aws.ToString(obj.Key); c.ownsKey(key) {
				keys = append(keys, key)
			}
		}
	}
	return keys, nil
}

func (c *Client) fetch(ctx context.Context, key string) (*core.Transaction, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	t, err := c.codec.Decode(body)
	if err != nil || t.ID == "" {
		slog.WarnContext(ctx, "Skipping undecodable S3 object", "key", key, "error", err)
		return nil, nil
	}
	return &t, nil
}
