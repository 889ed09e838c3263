package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lottoledger/internal/core"
	"lottoledger/internal/record"
)

// fakeBucket serves one bucket from memory, two keys per list page.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string][]byte{}}
}

func (f *fakeBucket) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.objects[aws.ToString(in.Key)] = body
	f.mu.Unlock()
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeBucket) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	body, ok := f.objects[aws.ToString(in.Key)]
	f.mu.Unlock()
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeBucket) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	f.mu.Unlock()
	sort.Strings(keys)

	start := 0
	if in.ContinuationToken != nil {
		start = sort.SearchStrings(keys, aws.ToString(in.ContinuationToken))
	}
	end := min(start+2, len(keys))

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(keys[end])
	}
	return out, nil
}

func bucketTxs() []core.Transaction {
	base := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	var txs []core.Transaction
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		t := core.Transaction{ID: id, Date: "2024-03-10", CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		t.SetSales(decimal.NewFromInt(int64(100 * (i + 1))))
		txs = append(txs, t)
	}
	return txs
}

func TestClient_SaveAndLoad(t *testing.T) {
	for _, codec := range []record.Codec{record.JSON{}, record.Msgpack{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			bucket := newFakeBucket()
			c := newClient(bucket, "ledger", "", codec)
			ctx := context.Background()

			require.NoError(t, c.SaveAll(ctx, bucketTxs()))
			assert.Len(t, bucket.objects, 5)
			assert.Contains(t, bucket.objects, "transactions/a."+codec.Name())

			got, err := c.LoadAll(ctx)
			require.NoError(t, err)
			require.Len(t, got, 5)
			assert.Equal(t, "e", got[0].ID, "newest created first")
			assert.Equal(t, "a", got[4].ID)
			assert.True(t, got[0].Sales.Equal(decimal.NewFromInt(500)))
			assert.True(t, got[0].Profit13.Equal(decimal.NewFromInt(65)))
		})
	}
}

func TestClient_SaveOverwrites(t *testing.T) {
	bucket := newFakeBucket()
	c := newClient(bucket, "ledger", "p/", nil)
	ctx := context.Background()

	txs := bucketTxs()
	require.NoError(t, c.SaveAll(ctx, txs))
	txs[0].Notes = "edited"
	require.NoError(t, c.SaveAll(ctx, txs[:1]))

	got, err := c.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, "edited", got[4].Notes)
}

func TestClient_LoadSkipsForeignAndBrokenObjects(t *testing.T) {
	bucket := newFakeBucket()
	bucket.objects["transactions/readme.txt"] = []byte("hello")
	bucket.objects["transactions/bad.json"] = []byte("{")
	bucket.objects["other/x.json"] = []byte(`{"id":"x"}`)
	bucket.objects["transactions/ok.json"] = []byte(`{"id":"ok","date":"2024-03-10","sales":"12,5"}`)

	got, err := newClient(bucket, "ledger", "", nil).LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].ID)
	assert.True(t, got[0].Sales.IsZero(), "stored amounts are not reparsed as operator input")
}

func TestClient_SaveError(t *testing.T) {
	bucket := newFakeBucket()
	bucket.putErr = errors.New("access denied")

	err := newClient(bucket, "ledger", "", nil).SaveAll(context.Background(), bucketTxs())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	assert.Error(t, err)
}
