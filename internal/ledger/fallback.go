package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/mtlprog/wealth/internal/domain"
)

// Store loads and saves the ledger.
type Store interface {
	Load(ctx context.Context) (domain.Ledger, LoadReport, error)
	Save(ctx context.Context, l domain.Ledger) error
}

// ErrReadOnly is returned by FallbackStore.Save while it is serving the empty default ledger.
var ErrReadOnly = errors.New("ledger is unreadable; import a backup or add assets to reconfigure")

// FallbackStore serves an empty default ledger while the underlying document cannot be
// loaded, so the dashboard keeps running until the owner reconfigures it.
// Saves are refused in that state so the unreadable document is never overwritten.
type FallbackStore struct {
	store        Store
	baseCurrency string
	degraded     atomic.Bool
}

// NewFallbackStore wraps store.
func NewFallbackStore(store Store, baseCurrency string) *FallbackStore {
	return &FallbackStore{store: store, baseCurrency: baseCurrency}
}

func (s *FallbackStore) Load(ctx context.Context) (domain.Ledger, LoadReport, error) {
	l, report, err := s.store.Load(ctx)
	if err == nil {
		if s.degraded.Swap(false) {
			slog.Info("ledger readable again")
		}
		return l, report, nil
	}
	if !errors.Is(err, ErrConfigLoad) {
		return domain.Ledger{}, LoadReport{}, err
	}

	if !s.degraded.Swap(true) {
		slog.Error("ledger could not be loaded, using an empty ledger until it is reconfigured", "error", err)
	}
	return domain.NewLedger(s.baseCurrency), LoadReport{}, nil
}

func (s *FallbackStore) Save(ctx context.Context, l domain.Ledger) error {
	if s.degraded.Load() {
		return ErrReadOnly
	}
	return s.store.Save(ctx, l)
}

// Replace writes l through to the underlying store even while degraded, and leaves the
// degraded state once it is written. It is how an imported backup repairs the ledger.
func (s *FallbackStore) Replace(ctx context.Context, l domain.Ledger) error {
	if err := s.store.Save(ctx, l); err != nil {
		return err
	}
	if s.degraded.Swap(false) {
		slog.Info("ledger replaced, leaving read-only mode")
	}
	return nil
}

// Degraded reports whether the last Load fell back to the empty ledger.
func (s *FallbackStore) Degraded() bool {
	return s.degraded.Load()
}
