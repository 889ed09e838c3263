package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"lottoledger/internal/amqp"
	"lottoledger/internal/remote"
	"lottoledger/internal/storage"
)

// SyncWorker mirrors the locally persisted ledger to the remote store.
type SyncWorker struct {
	storage storage.Repository
	remote  remote.Saver
	now     func() time.Time

	mu       sync.Mutex
	lastSync time.Time
}

func NewSyncWorker(storage storage.Repository, remote remote.Saver) *SyncWorker {
	return &SyncWorker{storage: storage, remote: remote, now: time.Now}
}

// HandleSyncMessage mirrors the current snapshot. Requests issued before the
// last completed mirror are already covered and are skipped.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.LedgerSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"reason", msg.Reason,
		"count", msg.Count,
		"timestamp", msg.Timestamp)

	if last := w.LastSync(); !msg.Timestamp.IsZero() && msg.Timestamp.Before(last) {
		slog.DebugContext(ctx, "Sync request already covered", "timestamp", msg.Timestamp, "last_sync", last)
		return nil
	}
	if _, err := w.mirror(ctx); err != nil {
		return fmt.Errorf("mirror ledger: %w", err)
	}
	return nil
}

// PeriodicSync is the scheduled backstop for lost sync messages.
func (w *SyncWorker) PeriodicSync(ctx context.Context) error {
	n, err := w.mirror(ctx)
	if err != nil {
		return fmt.Errorf("periodic mirror: %w", err)
	}
	slog.InfoContext(ctx, "Periodic sync completed", "count", n)
	return nil
}

// StartupSync mirrors once when the worker starts, to cover downtime.
func (w *SyncWorker) StartupSync(ctx context.Context) error {
	n, err := w.mirror(ctx)
	if err != nil {
		return fmt.Errorf("startup mirror: %w", err)
	}
	slog.InfoContext(ctx, "Startup sync completed", "count", n)
	return nil
}

// LastSync returns when the last successful mirror started.
func (w *SyncWorker) LastSync() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSync
}

func (w *SyncWorker) mirror(ctx context.Context) (int, error) {
	started := w.now()

	txs, err := w.storage.Load(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrCorruptPayload) {
			// Retrying cannot fix the payload; the server rewrites it on the next mutation
			slog.WarnContext(ctx, "Local ledger unreadable, nothing to mirror", "error", err)
			return 0, nil
		}
		return 0, fmt.Errorf("load local ledger: %w", err)
	}
	if len(txs) == 0 {
		slog.InfoContext(ctx, "Local ledger is empty, nothing to mirror")
		w.markSynced(started)
		return 0, nil
	}

	if err := w.remote.SaveAll(ctx, txs); err != nil {
		return 0, fmt.Errorf("save to remote: %w", err)
	}
	w.markSynced(started)
	return len(txs), nil
}

func (w *SyncWorker) markSynced(t time.Time) {
	w.mu.Lock()
	if t.After(w.lastSync) {
		w.lastSync = t
	}
	w.mu.Unlock()
}
