package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"lottoledger/internal/core"
	"lottoledger/internal/ledger"
	"lottoledger/internal/remote"
	"lottoledger/internal/storage"
)

// Sync reasons carried by published sync requests.
const (
	ReasonCreate = "create"
	ReasonUpdate = "update"
	ReasonDelete = "delete"
	ReasonManual = "manual"
)

// SyncPublisher hands a sync request to another process.
type SyncPublisher interface {
	PublishLedgerSync(ctx context.Context, reason string, count int) error
}

// SyncResult reports the outcome of a remote save or load.
type SyncResult struct {
	OK     bool   `json:"ok"`
	Notice string `json:"notice,omitempty"`
	Count  int    `json:"count"`
}

// LedgerService is the single mutator of the ledger. Every call holds the
// service mutex; remote I/O runs outside it on a snapshot.
type LedgerService struct {
	mu       sync.Mutex
	store    *ledger.Store
	repo     storage.Repository
	location *time.Location
	now      func() time.Time
	newID    func() string

	remote       remote.Syncer
	remoteNotice string
	publisher    SyncPublisher
	autoSync     bool

	flight singleflight.Group
	bg     sync.WaitGroup

	// saveMu guards saving and saveDirty. A save requested while one is
	// running sets saveDirty, and the running save repeats with a fresh
	// snapshot before it returns.
	saveMu    sync.Mutex
	saving    bool
	saveDirty bool
}

type Option func(*LedgerService)

// WithRemote sets the remote store. A nil syncer keeps the service local-only.
func WithRemote(s remote.Syncer) Option {
	return func(l *LedgerService) { l.remote = s }
}

// WithRemoteNotice explains why no remote store is configured.
func WithRemoteNotice(notice string) Option {
	return func(l *LedgerService) { l.remoteNotice = notice }
}

// WithPublisher routes auto-sync through a queue instead of calling the
// remote store in-process.
func WithPublisher(p SyncPublisher) Option {
	return func(l *LedgerService) { l.publisher = p }
}

// WithAutoSync mirrors the ledger after every mutation.
func WithAutoSync(enabled bool) Option {
	return func(l *LedgerService) { l.autoSync = enabled }
}

func WithLocation(loc *time.Location) Option {
	return func(l *LedgerService) { l.location = loc }
}

func WithClock(now func() time.Time) Option {
	return func(l *LedgerService) { l.now = now }
}

// WithIDGenerator overrides transaction id generation.
func WithIDGenerator(gen func() string) Option {
	return func(l *LedgerService) { l.newID = gen }
}

func NewLedgerService(repo storage.Repository, opts ...Option) *LedgerService {
	s := &LedgerService{
		repo:     repo,
		location: time.Local,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	storeOpts := []ledger.Option{ledger.WithClock(s.now), ledger.WithLocation(s.location)}
	if s.newID != nil {
		storeOpts = append(storeOpts, ledger.WithIDGenerator(s.newID))
	}
	s.store = ledger.NewStore(storeOpts...)
	if s.remote == nil && s.remoteNotice == "" {
		s.remoteNotice = remote.ErrNotConfigured.Error() + "; data is kept locally"
	}
	return s
}

// Open loads the persisted collection. A missing or unreadable payload
// starts an empty ledger.
func (s *LedgerService) Open(ctx context.Context) error {
	txs, err := s.repo.Load(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrCorruptPayload) {
			return fmt.Errorf("load ledger: %w", err)
		}
		slog.WarnContext(ctx, "Stored ledger is unreadable, starting empty", "error", err)
		txs = nil
	}

	s.mu.Lock()
	s.store.Replace(txs)
	s.mu.Unlock()

	slog.InfoContext(ctx, "Ledger loaded", "count", len(txs))
	return nil
}

// Create adds a blank transaction dated today.
func (s *LedgerService) Create(ctx context.Context) core.Transaction {
	s.mu.Lock()
	tx := s.store.Create()
	snapshot := s.store.All()
	s.persistLocked(ctx)
	s.mu.Unlock()

	slog.InfoContext(ctx, "Transaction created", "id", tx.ID, "date", tx.Date)
	s.afterMutation(ctx, ReasonCreate, snapshot)
	return tx
}

// Update sets one field. An unknown id is a no-op and returns nil.
func (s *LedgerService) Update(ctx context.Context, id, field, value string) error {
	s.mu.Lock()
	if _, ok := s.store.Get(id); !ok {
		s.mu.Unlock()
		slog.DebugContext(ctx, "Update ignored, transaction not found", "id", id, "field", field)
		return nil
	}
	f, err := core.ParseField(field)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.store.Update(id, f, value); err != nil {
		s.mu.Unlock()
		return err
	}
	snapshot := s.store.All()
	s.persistLocked(ctx)
	s.mu.Unlock()

	slog.InfoContext(ctx, "Transaction updated", "id", id, "field", field)
	s.afterMutation(ctx, ReasonUpdate, snapshot)
	return nil
}

// Remove deletes a transaction. An unknown id is a no-op.
func (s *LedgerService) Remove(ctx context.Context, id string) {
	s.mu.Lock()
	if _, ok := s.store.Get(id); !ok {
		s.mu.Unlock()
		return
	}
	s.store.Remove(id)
	snapshot := s.store.All()
	s.persistLocked(ctx)
	s.mu.Unlock()

	slog.InfoContext(ctx, "Transaction removed", "id", id)
	s.afterMutation(ctx, ReasonDelete, snapshot)
}

// Get returns one transaction.
func (s *LedgerService) Get(id string) (core.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Get(id)
}

// All returns the collection in insertion order, newest created first.
func (s *LedgerService) All() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.All()
}

// Sorted returns the display order: date then game time, both descending.
func (s *LedgerService) Sorted() []core.Transaction {
	return core.SortForDisplay(s.All())
}

// DailySummary totals one date. An empty date means today.
func (s *LedgerService) DailySummary(date string) (core.Summary, error) {
	if date == "" {
		date = core.Today(s.now(), s.location)
	}
	if !core.ValidDate(date) {
		return core.Summary{}, core.ErrInvalidDate
	}
	return core.Summarize(date, core.FilterByDate(s.All(), date)), nil
}

// MonthlySummary totals one YYYY-MM month. An empty month means the current one.
func (s *LedgerService) MonthlySummary(month string) (core.Summary, error) {
	if month == "" {
		month = core.CurrentMonth(s.now(), s.location)
	}
	if !core.ValidYearMonth(month) {
		return core.Summary{}, core.ErrInvalidMonth
	}
	return core.Summarize(month, core.FilterByMonth(s.All(), month)), nil
}

// Games lists the catalog for a date. An empty date means today.
func (s *LedgerService) Games(date string) ([]core.Game, error) {
	if date == "" {
		date = core.Today(s.now(), s.location)
	}
	if !core.ValidDate(date) {
		return nil, core.ErrInvalidDate
	}
	return core.GamesForDate(date), nil
}

// RemoteName identifies the remote backend, or "" when local-only.
func (s *LedgerService) RemoteName() string {
	if s.remote == nil {
		return ""
	}
	return s.remote.Name()
}

// SaveRemote mirrors the current ledger to the remote store. Concurrent
// callers share one in-flight save, which repeats until it has written a
// snapshot taken after the last request. Failure never touches local data.
func (s *LedgerService) SaveRemote(ctx context.Context) SyncResult {
	if s.remote == nil {
		return SyncResult{Notice: s.remoteNotice}
	}
	s.requestSave()
	return s.runSave(ctx)
}

// requestSave marks the ledger as needing a save. If a save is already
// running it will pick the change up.
func (s *LedgerService) requestSave() {
	s.saveMu.Lock()
	if s.saving {
		s.saveDirty = true
	}
	s.saving = true
	s.saveMu.Unlock()
}

func (s *LedgerService) runSave(ctx context.Context) SyncResult {
	v, _, _ := s.flight.Do("save", func() (any, error) {
		for {
			snapshot := s.All()
			err := s.remote.SaveAll(ctx, snapshot)

			s.saveMu.Lock()
			if err == nil && s.saveDirty {
				s.saveDirty = false
				s.saveMu.Unlock()
				continue
			}
			// Later callers start a new flight instead of joining this one
			s.saving = false
			s.saveDirty = false
			s.flight.Forget("save")
			s.saveMu.Unlock()

			if err != nil {
				slog.ErrorContext(ctx, "Remote save failed",
					"backend", s.remote.Name(), "count", len(snapshot), "error", err)
				return SyncResult{Notice: fmt.Sprintf("remote save failed: %v", err)}, nil
			}
			slog.InfoContext(ctx, "Remote save completed", "backend", s.remote.Name(), "count", len(snapshot))
			return SyncResult{OK: true, Count: len(snapshot)}, nil
		}
	})
	return v.(SyncResult)
}

// LoadRemote replaces the local ledger with the remote one when the remote
// holds any transactions. An empty remote leaves local data untouched.
func (s *LedgerService) LoadRemote(ctx context.Context) SyncResult {
	if s.remote == nil {
		return SyncResult{Notice: s.remoteNotice}
	}
	v, _, _ := s.flight.Do("load", func() (any, error) {
		txs, err := s.remote.LoadAll(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "Remote load failed", "backend", s.remote.Name(), "error", err)
			return SyncResult{Notice: fmt.Sprintf("remote load failed: %v", err)}, nil
		}
		if len(txs) == 0 {
			return SyncResult{OK: true, Notice: "remote store is empty; local data kept"}, nil
		}

		s.mu.Lock()
		s.store.Replace(txs)
		s.persistLocked(ctx)
		s.mu.Unlock()

		slog.InfoContext(ctx, "Remote load completed", "backend", s.remote.Name(), "count", len(txs))
		return SyncResult{OK: true, Count: len(txs)}, nil
	})
	return v.(SyncResult)
}

// Wait blocks until background syncs started by mutations have finished.
func (s *LedgerService) Wait() {
	s.bg.Wait()
}

// Close waits for background syncs and closes the repository.
func (s *LedgerService) Close() error {
	s.Wait()
	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			return fmt.Errorf("close storage: %w", err)
		}
	}
	return nil
}

// persistLocked writes the collection. A failed write is logged and the
// in-memory change is kept. Callers hold s.mu.
func (s *LedgerService) persistLocked(ctx context.Context) {
	txs := s.store.All()
	if err := s.repo.Save(ctx, txs); err != nil {
		slog.ErrorContext(ctx, "Failed to save ledger locally", "count", len(txs), "error", err)
	}
}

// afterMutation starts the auto-sync, if enabled, without blocking the caller.
func (s *LedgerService) afterMutation(ctx context.Context, reason string, snapshot []core.Transaction) {
	if !s.autoSync {
		return
	}
	// Detached: the request context ends before the sync does
	bgCtx := context.WithoutCancel(ctx)

	if s.publisher != nil {
		s.bg.Add(1)
		go func() {
			defer s.bg.Done()
			if err := s.publisher.PublishLedgerSync(bgCtx, reason, len(snapshot)); err != nil {
				slog.ErrorContext(bgCtx, "Failed to publish sync request", "reason", reason, "error", err)
			}
		}()
		return
	}
	if s.remote == nil {
		return
	}
	// Marked before returning so a save already in flight sees this change
	s.requestSave()
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		s.runSave(bgCtx)
	}()
}
