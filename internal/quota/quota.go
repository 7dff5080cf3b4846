// Package quota enforces per-folder storage capacity for asset ingestion.
package quota

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// MB is the accounting unit; declared byte sizes are rounded up to whole
// megabytes before admission.
const MB = 1 << 20

// MegabytesCeil converts a byte count to whole megabytes, rounding up.
func MegabytesCeil(bytes int64) int64 {
	if bytes <= 0 {
		return 0
	}
	return (bytes + MB - 1) / MB
}

// Store is the catalog surface the ledger mutates. TryReserve must be atomic:
// it adds mb to the folder's usage only if the result stays within capacity.
type Store interface {
	TryReserve(ctx context.Context, folderID string, mb int64) (ok bool, availableMB int64, err error)
	ReleaseSpace(ctx context.Context, folderID string, mb int64) error
}

// ExceededError reports a denied reservation with enough detail for an
// actionable client error.
type ExceededError struct {
	RequiredMB  int64
	AvailableMB int64
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("insufficient space: required %dMB, available %dMB", e.RequiredMB, e.AvailableMB)
}

// Ledger tracks per-folder storage allocation. Admission within the process is
// serialized per folder key; across processes the store's conditional update
// is the serialization point.
type Ledger struct {
	store  Store
	logger *slog.Logger

	mu      sync.Mutex
	folders map[string]*sync.Mutex
}

func NewLedger(log *slog.Logger, store Store) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	return &Ledger{
		store:   store,
		logger:  log.With(slog.String("service", "quota")),
		folders: make(map[string]*sync.Mutex),
	}
}

// Grant is a committed reservation. Release is the compensation used when
// ingestion fails after admission; it is idempotent.
type Grant struct {
	ledger   *Ledger
	folderID string
	MB       int64

	mu       sync.Mutex
	released bool
}

// Reserve admits sizeBytes (rounded up to megabytes) against the folder's
// remaining capacity. Denial returns *ExceededError with current availability.
func (l *Ledger) Reserve(ctx context.Context, folderID string, sizeBytes int64) (*Grant, error) {
	mb := MegabytesCeil(sizeBytes)

	lock := l.folderLock(folderID)
	lock.Lock()
	defer lock.Unlock()

	ok, available, err := l.store.TryReserve(ctx, folderID, mb)
	if err != nil {
		return nil, fmt.Errorf("reserve quota: %w", err)
	}
	if !ok {
		return nil, &ExceededError{RequiredMB: mb, AvailableMB: available}
	}
	return &Grant{ledger: l, folderID: folderID, MB: mb}, nil
}

// Release returns sizeBytes worth of megabytes to the folder, clamped at zero
// in the store. Used by the deletion flow.
func (l *Ledger) Release(ctx context.Context, folderID string, sizeBytes int64) error {
	mb := MegabytesCeil(sizeBytes)
	if mb == 0 {
		return nil
	}
	if err := l.store.ReleaseSpace(ctx, folderID, mb); err != nil {
		return fmt.Errorf("release quota: %w", err)
	}
	return nil
}

// Release returns the granted megabytes to the folder. Safe to call more than
// once; only the first call mutates the store.
func (g *Grant) Release(ctx context.Context) error {
	g.mu.Lock()
	if g.released {
		g.mu.Unlock()
		return nil
	}
	g.released = true
	g.mu.Unlock()

	if g.MB == 0 {
		return nil
	}
	if err := g.ledger.store.ReleaseSpace(ctx, g.folderID, g.MB); err != nil {
		g.ledger.logger.Error("quota release failed",
			slog.String("folder_id", g.folderID),
			slog.Int64("mb", g.MB),
			slog.Any("error", err),
		)
		return fmt.Errorf("release grant: %w", err)
	}
	return nil
}

func (l *Ledger) folderLock(folderID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.folders[folderID]
	if !ok {
		lock = &sync.Mutex{}
		l.folders[folderID] = lock
	}
	return lock
}
