package snapshot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mtlprog/wealth/internal/accrual"
	"github.com/mtlprog/wealth/internal/domain"
)

// Service keeps the in-memory history for the session and persists every change.
type Service struct {
	repo   Repository
	maxLen int

	mu      sync.RWMutex
	history History
}

// NewService creates a history recorder. maxLen bounds the log (DefaultMaxLength if non-positive).
func NewService(repo Repository, maxLen int) *Service {
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}
	return &Service{repo: repo, maxLen: maxLen, history: NewHistory()}
}

// Load replaces the in-memory history with the persisted one, trimmed to the configured length.
func (s *Service) Load(ctx context.Context) error {
	h, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	if over := len(h.Entries) - s.maxLen; over > 0 {
		h.Entries = h.Entries[over:]
	}

	s.mu.Lock()
	s.history = h
	s.mu.Unlock()
	return nil
}

// Record builds a snapshot, appends it and persists it. A persistence error is returned
// alongside the snapshot; the in-memory history keeps the entry either way.
func (s *Service) Record(ctx context.Context, totals domain.Totals, acc accrual.Result, now time.Time) (Snapshot, error) {
	snap := Build(totals, acc, now)

	s.mu.Lock()
	s.history.Append(snap, s.maxLen)
	s.mu.Unlock()

	if err := s.repo.Append(ctx, snap, s.maxLen); err != nil {
		return snap, fmt.Errorf("persisting snapshot: %w", err)
	}
	return snap, nil
}

// History returns a copy of the current history document.
func (s *Service) History() History {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.history
	h.Entries = append([]Snapshot(nil), s.history.Entries...)
	return h
}

// Latest returns the newest recorded snapshot.
func (s *Service) Latest() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest, ok := s.history.Latest()
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return latest, nil
}

// Period returns the entries inside the named chart window ending at now.
func (s *Service) Period(name string, now time.Time) ([]Snapshot, error) {
	days, err := ParsePeriod(name)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return FilterByPeriod(s.history.Entries, days, now), nil
}

// Replace swaps the whole history, e.g. when restoring a backup.
func (s *Service) Replace(ctx context.Context, h History) error {
	if over := len(h.Entries) - s.maxLen; over > 0 {
		h.Entries = h.Entries[over:]
	}
	h.SchemaVersion = HistorySchemaVersion
	if latest, ok := h.Latest(); ok {
		h.LastUpdateTimestamp = latest.Timestamp
	}

	s.mu.Lock()
	s.history = h
	s.mu.Unlock()

	if err := s.repo.Replace(ctx, h); err != nil {
		return fmt.Errorf("persisting history: %w", err)
	}
	return nil
}
