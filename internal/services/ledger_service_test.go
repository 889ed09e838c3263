package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lottoledger/internal/core"
	remotemem "lottoledger/internal/remote/memory"
	"lottoledger/internal/storage"
)

type recordingPublisher struct {
	mu      sync.Mutex
	reasons []string
	err     error
}

func (p *recordingPublisher) PublishLedgerSync(_ context.Context, reason string, _ int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reasons = append(p.reasons, reason)
	return p.err
}

func (p *recordingPublisher) Reasons() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.reasons...)
}

type failingRepo struct {
	storage.MemoryRepository
	loadErr error
	saveErr error
}

func (f *failingRepo) Load(ctx context.Context) ([]core.Transaction, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.MemoryRepository.Load(ctx)
}

func (f *failingRepo) Save(ctx context.Context, txs []core.Transaction) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.MemoryRepository.Save(ctx, txs)
}

// fixedClock returns 2024-03-10 (a Sunday) 12:00 UTC, one second later per call.
func fixedClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("tx-%d", n)
	}
}

func newTestService(t *testing.T, opts ...Option) (*LedgerService, *storage.MemoryRepository) {
	t.Helper()
	repo := storage.NewMemoryRepository(nil)
	base := []Option{WithClock(fixedClock()), WithLocation(time.UTC), WithIDGenerator(sequentialIDs())}
	svc := NewLedgerService(repo, append(base, opts...)...)
	require.NoError(t, svc.Open(context.Background()))
	return svc, repo
}

func TestLedgerService_CreatePersists(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	a := svc.Create(ctx)
	b := svc.Create(ctx)

	assert.Equal(t, "tx-1", a.ID)
	assert.Equal(t, "2024-03-10", a.Date)
	assert.True(t, a.Sales.IsZero())
	assert.Equal(t, 2, repo.Saves())

	stored, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, b.ID, stored[0].ID, "newest first")
}

func TestLedgerService_UpdateSalesAndGame(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	tx := svc.Create(ctx)

	require.NoError(t, svc.Update(ctx, tx.ID, "sales", "1000"))
	require.NoError(t, svc.Update(ctx, tx.ID, "gameId", "12"))

	got, ok := svc.Get(tx.ID)
	require.True(t, ok)
	assert.True(t, got.Profit13.Equal(decimal.NewFromInt(130)))
	assert.True(t, got.Expense.Equal(decimal.NewFromInt(870)))
	assert.Equal(t, "Final Draw", got.GameName)
	assert.Equal(t, "21:30", got.GameTime)
	assert.Equal(t, 3, repo.Saves())

	stored, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, stored[0].GameID)
}

func TestLedgerService_UpdateErrors(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	tx := svc.Create(ctx)

	tests := []struct {
		field, value string
		want         error
	}{
		{"profit13", "5", core.ErrDerivedField},
		{"color", "red", core.ErrUnknownField},
		{"date", "10/03/2024", core.ErrInvalidDate},
		{"gameId", "9", core.ErrUnknownGame}, // not drawn on Sundays
		{"gameId", "x", core.ErrInvalidGameID},
	}
	for _, tt := range tests {
		t.Run(tt.field+"="+tt.value, func(t *testing.T) {
			err := svc.Update(ctx, tx.ID, tt.field, tt.value)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	got, _ := svc.Get(tx.ID)
	assert.Equal(t, tx, got, "failed updates leave the transaction unchanged")
	assert.Equal(t, 1, repo.Saves(), "failed updates are not persisted")
}

func TestLedgerService_UnknownIDIsNoop(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	svc.Create(ctx)

	assert.NoError(t, svc.Update(ctx, "missing", "sales", "5"))
	assert.NoError(t, svc.Update(ctx, "missing", "colour", "red"))
	svc.Remove(ctx, "missing")

	assert.Len(t, svc.All(), 1)
	assert.Equal(t, 1, repo.Saves())
}

func TestLedgerService_Remove(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	a := svc.Create(ctx)
	b := svc.Create(ctx)

	svc.Remove(ctx, a.ID)

	all := svc.All()
	require.Len(t, all, 1)
	assert.Equal(t, b.ID, all[0].ID)
	stored, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestLedgerService_Summaries(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, c := range []struct{ date, sales string }{
		{"2024-03-10", "1000"},
		{"2024-03-10", "10.05"},
		{"2024-03-02", "200"},
		{"2024-02-28", "50"},
	} {
		tx := svc.Create(ctx)
		require.NoError(t, svc.Update(ctx, tx.ID, "date", c.date))
		require.NoError(t, svc.Update(ctx, tx.ID, "sales", c.sales))
	}

	day, err := svc.DailySummary("")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10", day.Period)
	assert.Equal(t, 2, day.Count)
	assert.Equal(t, "1010.05", day.Sales.String())
	assert.Equal(t, "131.31", day.Profit.String())
	assert.Equal(t, "878.74", day.Expense.String())

	month, err := svc.MonthlySummary("")
	require.NoError(t, err)
	assert.Equal(t, "2024-03", month.Period)
	assert.Equal(t, 3, month.Count)
	assert.Equal(t, "1210.05", month.Sales.String())

	feb, err := svc.MonthlySummary("2024-02")
	require.NoError(t, err)
	assert.Equal(t, 1, feb.Count)

	_, err = svc.DailySummary("2024-13-01")
	assert.ErrorIs(t, err, core.ErrInvalidDate)
	_, err = svc.MonthlySummary("March")
	assert.ErrorIs(t, err, core.ErrInvalidMonth)
}

func TestLedgerService_SortedAndGames(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	early := svc.Create(ctx)
	require.NoError(t, svc.Update(ctx, early.ID, "gameId", "1"))
	late := svc.Create(ctx)
	require.NoError(t, svc.Update(ctx, late.ID, "gameId", "12"))
	older := svc.Create(ctx)
	require.NoError(t, svc.Update(ctx, older.ID, "date", "2024-03-09"))

	sorted := svc.Sorted()
	require.Len(t, sorted, 3)
	assert.Equal(t, []string{late.ID, early.ID, older.ID}, []string{sorted[0].ID, sorted[1].ID, sorted[2].ID})

	games, err := svc.Games("")
	require.NoError(t, err)
	assert.Len(t, games, 8, "Sunday catalog")
	_, err = svc.Games("nope")
	assert.ErrorIs(t, err, core.ErrInvalidDate)
}

func TestLedgerService_OpenCorruptStartsEmpty(t *testing.T) {
	repo := &failingRepo{loadErr: fmt.Errorf("%w: bad bytes", storage.ErrCorruptPayload)}
	svc := NewLedgerService(repo)

	require.NoError(t, svc.Open(context.Background()))
	assert.Empty(t, svc.All())
}

func TestLedgerService_OpenPropagatesIOErrors(t *testing.T) {
	repo := &failingRepo{loadErr: errors.New("disk gone")}
	svc := NewLedgerService(repo)

	assert.Error(t, svc.Open(context.Background()))
}

func TestLedgerService_LocalSaveFailureKeepsMutation(t *testing.T) {
	repo := &failingRepo{saveErr: errors.New("read-only")}
	svc := NewLedgerService(repo)
	ctx := context.Background()

	tx := svc.Create(ctx)
	require.NoError(t, svc.Update(ctx, tx.ID, "notes", "kept"))

	got, ok := svc.Get(tx.ID)
	require.True(t, ok)
	assert.Equal(t, "kept", got.Notes)
}

func TestLedgerService_LocalOnly(t *testing.T) {
	svc, _ := newTestService(t)
	svc.Create(context.Background())

	res := svc.SaveRemote(context.Background())
	assert.False(t, res.OK)
	assert.NotEmpty(t, res.Notice)
	assert.Empty(t, svc.RemoteName())

	res = svc.LoadRemote(context.Background())
	assert.False(t, res.OK)
	assert.Len(t, svc.All(), 1)

	svc = NewLedgerService(storage.NewMemoryRepository(nil), WithRemoteNotice("sheets: missing credentials"))
	assert.Equal(t, "sheets: missing credentials", svc.SaveRemote(context.Background()).Notice)
}

func TestLedgerService_SaveAndLoadRemote(t *testing.T) {
	remote := remotemem.New()
	svc, _ := newTestService(t, WithRemote(remote))
	ctx := context.Background()
	a := svc.Create(ctx)
	require.NoError(t, svc.Update(ctx, a.ID, "sales", "500"))
	svc.Create(ctx)

	res := svc.SaveRemote(ctx)
	assert.True(t, res.OK)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, 2, remote.Len())

	// A second device loads the remote copy
	other, otherRepo := newTestService(t, WithRemote(remote))
	other.Create(ctx)
	res = other.LoadRemote(ctx)
	assert.True(t, res.OK)
	assert.Equal(t, 2, res.Count)

	got := other.All()
	require.Len(t, got, 2)
	assert.Equal(t, svc.All()[0].ID, got[0].ID, "newest created first")
	assert.True(t, got[1].Sales.Equal(decimal.NewFromInt(500)))

	stored, err := otherRepo.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 2, "loaded data is persisted locally")
}

func TestLedgerService_LoadEmptyRemoteKeepsLocal(t *testing.T) {
	svc, _ := newTestService(t, WithRemote(remotemem.New()))
	svc.Create(context.Background())

	res := svc.LoadRemote(context.Background())
	assert.True(t, res.OK)
	assert.Zero(t, res.Count)
	assert.Len(t, svc.All(), 1)
}

func TestLedgerService_RemoteFailureKeepsLocal(t *testing.T) {
	remote := remotemem.New()
	remote.Fail(errors.New("503 from upstream"))
	svc, _ := newTestService(t, WithRemote(remote))
	svc.Create(context.Background())

	res := svc.SaveRemote(context.Background())
	assert.False(t, res.OK)
	assert.Contains(t, res.Notice, "503 from upstream")

	res = svc.LoadRemote(context.Background())
	assert.False(t, res.OK)
	assert.Len(t, svc.All(), 1)
}

func TestLedgerService_AutoSyncInProcess(t *testing.T) {
	remote := remotemem.New()
	svc, _ := newTestService(t, WithRemote(remote), WithAutoSync(true))
	ctx := context.Background()

	tx := svc.Create(ctx)
	require.NoError(t, svc.Update(ctx, tx.ID, "sales", "20"))
	svc.Wait()

	docs, err := remote.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.True(t, docs[0].Sales.Equal(decimal.NewFromInt(20)))
}

// gatedRemote blocks its first SaveAll until release is closed.
type gatedRemote struct {
	*remotemem.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedRemote() *gatedRemote {
	return &gatedRemote{Store: remotemem.New(), entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedRemote) SaveAll(ctx context.Context, txs []core.Transaction) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.Store.SaveAll(ctx, txs)
}

func TestLedgerService_AutoSyncCatchesUpWithSaveInFlight(t *testing.T) {
	remote := newGatedRemote()
	svc, _ := newTestService(t, WithRemote(remote), WithAutoSync(true))
	ctx := context.Background()

	tx := svc.Create(ctx)
	<-remote.entered
	require.NoError(t, svc.Update(ctx, tx.ID, "sales", "1000"))
	close(remote.release)
	svc.Wait()

	docs, err := remote.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.True(t, docs[0].Sales.Equal(decimal.NewFromInt(1000)), "remote sales %s", docs[0].Sales)

	res := svc.LoadRemote(ctx)
	require.True(t, res.OK)
	got, ok := svc.Get(tx.ID)
	require.True(t, ok)
	assert.True(t, got.Sales.Equal(decimal.NewFromInt(1000)))
}

func TestLedgerService_ManualSaveJoinsAndRepeats(t *testing.T) {
	remote := newGatedRemote()
	svc, _ := newTestService(t, WithRemote(remote))
	ctx := context.Background()
	tx := svc.Create(ctx)

	first := make(chan SyncResult, 1)
	go func() { first <- svc.SaveRemote(ctx) }()
	<-remote.entered

	require.NoError(t, svc.Update(ctx, tx.ID, "notes", "late edit"))
	second := make(chan SyncResult, 1)
	go func() { second <- svc.SaveRemote(ctx) }()
	// Give the second caller time to register before the first save ends
	time.Sleep(20 * time.Millisecond)
	close(remote.release)

	assert.True(t, (<-first).OK)
	assert.True(t, (<-second).OK)
	docs, err := remote.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "late edit", docs[0].Notes)
}

func TestLedgerService_AutoSyncPublishes(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	remote := remotemem.New()
	svc, _ := newTestService(t, WithRemote(remote), WithPublisher(pub), WithAutoSync(true))
	ctx := context.Background()

	tx := svc.Create(ctx)
	require.NoError(t, svc.Update(ctx, tx.ID, "notes", "x"))
	svc.Remove(ctx, tx.ID)
	require.NoError(t, svc.Close())

	assert.ElementsMatch(t, []string{ReasonCreate, ReasonUpdate, ReasonDelete}, pub.Reasons())
	assert.Zero(t, remote.Len(), "publisher replaces in-process sync")
}

func TestLedgerService_ConcurrentMutations(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx := svc.Create(ctx)
			_ = svc.Update(ctx, tx.ID, "sales", "10")
		}()
	}
	wg.Wait()

	month, err := svc.MonthlySummary("2024-03")
	require.NoError(t, err)
	assert.Equal(t, 20, month.Count)
	assert.Equal(t, "200", month.Sales.String())
	assert.Equal(t, 40, repo.Saves())
}
