// Package refresh runs one serialized valuation cycle: rates, quotes, amortization,
// aggregation, accrual and the history snapshot.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mtlprog/wealth/internal/accrual"
	"github.com/mtlprog/wealth/internal/amortization"
	"github.com/mtlprog/wealth/internal/domain"
	"github.com/mtlprog/wealth/internal/ledger"
	"github.com/mtlprog/wealth/internal/portfolio"
	"github.com/mtlprog/wealth/internal/price"
	"github.com/mtlprog/wealth/internal/snapshot"
)

// ErrCycleInFlight is returned when Run is called while another cycle is still running.
var ErrCycleInFlight = errors.New("refresh cycle already in flight")

// LedgerStore loads and saves the asset ledger.
type LedgerStore interface {
	Load(ctx context.Context) (domain.Ledger, ledger.LoadReport, error)
	Save(ctx context.Context, l domain.Ledger) error
}

// Recorder appends a snapshot to the history log.
type Recorder interface {
	Record(ctx context.Context, totals domain.Totals, acc accrual.Result, now time.Time) (snapshot.Snapshot, error)
}

// Publisher receives the events of a cycle.
type Publisher interface {
	Publish(events ...domain.Event)
}

// Result is the output of one refresh cycle.
type Result struct {
	Ledger      domain.Ledger         `json:"-"`
	Rates       domain.RateTable      `json:"rates"`
	Quotes      domain.Quotes         `json:"quotes"`
	Totals      domain.Totals         `json:"totals"`
	Assessments []domain.Assessment   `json:"assessments"`
	Accrual     accrual.Result        `json:"accrual"`
	Snapshot    snapshot.Snapshot     `json:"snapshot"`
	Events      []domain.Event        `json:"events,omitempty"`
	Rejected    []domain.SkippedAsset `json:"rejected,omitempty"`
	Warnings    []string              `json:"warnings,omitempty"`
	CompletedAt time.Time             `json:"completedAt"`
}

// Service orchestrates the refresh pipeline.
type Service struct {
	store          LedgerStore
	provider       price.Provider
	payments       ledger.PaymentLog
	recorder       Recorder
	publisher      Publisher
	periodsPerYear int
	schedule       amortization.Schedule

	running sync.Mutex
	// pending holds the amortized ledger of a cycle whose save failed; guarded by running.
	pending *domain.Ledger

	mu   sync.RWMutex
	last *Result
}

// NewService creates a refresh Service. All dependencies are required.
func NewService(store LedgerStore, provider price.Provider, payments ledger.PaymentLog, recorder Recorder, publisher Publisher, periodsPerYear int) *Service {
	if store == nil {
		panic("refresh.NewService: store is nil")
	}
	if provider == nil {
		panic("refresh.NewService: provider is nil")
	}
	if payments == nil {
		panic("refresh.NewService: payments is nil")
	}
	if recorder == nil {
		panic("refresh.NewService: recorder is nil")
	}
	if publisher == nil {
		panic("refresh.NewService: publisher is nil")
	}
	return &Service{
		store:          store,
		provider:       provider,
		payments:       payments,
		recorder:       recorder,
		publisher:      publisher,
		periodsPerYear: periodsPerYear,
	}
}

// WithSchedule sets the payment schedule used by amortization.
func (s *Service) WithSchedule(schedule amortization.Schedule) *Service {
	s.schedule = schedule
	return s
}

// Run executes one cycle. Provider and persistence failures degrade the cycle and are
// reported in Result.Warnings; only a ledger that cannot be loaded or an invalid accrual
// setting aborts it.
func (s *Service) Run(ctx context.Context, now time.Time) (Result, error) {
	if !s.running.TryLock() {
		return Result{}, ErrCycleInFlight
	}
	defer s.running.Unlock()

	res, err := s.run(ctx, now, true)
	if err != nil {
		s.publisher.Publish(domain.Event{
			Type:      domain.EventRefreshFailed,
			Timestamp: now,
			Message:   err.Error(),
		})
		return Result{}, err
	}

	s.mu.Lock()
	s.last = &res
	s.mu.Unlock()
	return res, nil
}

// Preview values the ledger as a cycle would without changing anything: no payments are
// debited, nothing is saved or recorded and no events are published. It is for a process
// that does not own the ledger.
func (s *Service) Preview(ctx context.Context, now time.Time) (Result, error) {
	if !s.running.TryLock() {
		return Result{}, ErrCycleInFlight
	}
	defer s.running.Unlock()
	return s.run(ctx, now, false)
}

// run executes the pipeline. With commit unset it stops short of every side effect.
func (s *Service) run(ctx context.Context, now time.Time, commit bool) (Result, error) {
	l, report, err := s.store.Load(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("loading ledger: %w", err)
	}

	res := Result{CompletedAt: now}
	for _, r := range report.Rejected {
		res.Rejected = append(res.Rejected, domain.SkippedAsset{AssetID: r.AssetID, Symbol: r.Symbol, Reason: r.Error()})
	}
	warn := func(msg string, err error) {
		w := fmt.Sprintf("%s: %v", msg, err)
		slog.Warn(msg, "error", err)
		res.Warnings = append(res.Warnings, w)
	}

	rates, err := s.provider.Rates(ctx)
	if err != nil {
		warn("exchange rates degraded", err)
	}
	res.Rates = rates

	quotes := make(domain.Quotes)
	for _, c := range domain.Categories() {
		assets := l.ByCategory(c)
		if len(assets) == 0 {
			continue
		}
		q, err := s.provider.Quotes(ctx, c, assets, rates)
		if err != nil {
			warn(fmt.Sprintf("%s quotes degraded", c), err)
		}
		quotes.Merge(q)
	}
	res.Quotes = quotes

	updated := l.Clone()
	var events []domain.Event
	if commit {
		events = s.amortize(ctx, &updated, now, warn)
	}
	res.Ledger = updated
	res.Events = events

	res.Totals = portfolio.CalculateTotals(updated, quotes, rates)
	res.Assessments = portfolio.Valuations(updated, quotes, rates)
	for _, a := range res.Assessments {
		if a.Price.Source == domain.PriceSourceUnconverted {
			warn(fmt.Sprintf("%s valued without conversion", a.Symbol), fmt.Errorf("no %s rate", a.Price.QuoteCurrency))
		}
	}

	acc, err := accrual.Accrue(updated, quotes, rates, s.periodsPerYear)
	if err != nil {
		return Result{}, fmt.Errorf("accruing: %w", err)
	}
	res.Accrual = acc

	if !commit {
		res.Snapshot = snapshot.Build(res.Totals, acc, now)
		return res, nil
	}

	snap, err := s.recorder.Record(ctx, res.Totals, acc, now)
	if err != nil {
		warn("recording snapshot", err)
	}
	res.Snapshot = snap

	s.publisher.Publish(events...)
	for _, w := range res.Warnings {
		s.publisher.Publish(domain.Event{Type: domain.EventRefreshFailed, Timestamp: now, Message: w})
	}
	return res, nil
}

// amortize debits due liabilities of l and persists the result with its audit records.
// A ledger that could not be saved is kept and re-applied by the next cycle.
func (s *Service) amortize(ctx context.Context, l *domain.Ledger, now time.Time, warn func(string, error)) []domain.Event {
	if s.pending != nil {
		carryPayments(l, *s.pending)
	}
	events := s.schedule.Process(l, now)
	if len(events) > 0 || s.pending != nil {
		if err := s.store.Save(ctx, *l); err != nil {
			warn("saving ledger after amortization", err)
			kept := l.Clone()
			s.pending = &kept
		} else {
			s.pending = nil
		}
	}
	if len(events) > 0 {
		if err := s.payments.Append(ctx, ledger.PaymentRecords(*l, events)...); err != nil {
			warn("appending payment audit log", err)
		}
	}
	return events
}

// carryPayments copies the payment state of unsaved debits in from onto the freshly loaded
// liabilities of l, so a debit that could not be persisted is not applied a second time.
func carryPayments(l *domain.Ledger, from domain.Ledger) {
	for _, p := range from.Liabilities() {
		a, ok := l.Find(p.ID)
		if !ok || p.LastPaymentYearMonth <= a.LastPaymentYearMonth {
			continue
		}
		a.Amount = p.Amount
		a.AutoPayment = p.AutoPayment
		a.LastPaymentYearMonth = p.LastPaymentYearMonth
		a.LastPaymentDate = p.LastPaymentDate
	}
}

// Last returns the result of the most recent successful cycle.
func (s *Service) Last() (Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return Result{}, false
	}
	return *s.last, true
}
