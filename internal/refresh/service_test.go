package refresh

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/wealth/internal/accrual"
	"github.com/mtlprog/wealth/internal/domain"
	"github.com/mtlprog/wealth/internal/ledger"
	"github.com/mtlprog/wealth/internal/snapshot"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type mockStore struct {
	mu      sync.Mutex
	ledger  domain.Ledger
	loadErr error
	saveErr error
	saves   int
}

func (m *mockStore) Load(_ context.Context) (domain.Ledger, ledger.LoadReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return domain.Ledger{}, ledger.LoadReport{}, m.loadErr
	}
	return m.ledger.Clone(), ledger.Validate(m.ledger), nil
}

func (m *mockStore) Save(_ context.Context, l domain.Ledger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.ledger = l.Clone()
	return nil
}

type mockProvider struct {
	quotes  domain.Quotes
	rateErr error
	block   chan struct{}
	entered chan struct{}
}

func (m *mockProvider) Rates(_ context.Context) (domain.RateTable, error) {
	if m.entered != nil {
		m.entered <- struct{}{}
	}
	if m.block != nil {
		<-m.block
	}
	return domain.NewRateTable("TWD", "USD", map[string]decimal.Decimal{"USD": d("1"), "TWD": d("32")}, d("31.5")), m.rateErr
}

func (m *mockProvider) Quotes(_ context.Context, c domain.Category, _ []domain.Asset, _ domain.RateTable) (domain.Quotes, error) {
	if c == domain.CategoryStock {
		return m.quotes, nil
	}
	return domain.Quotes{}, nil
}

type mockPayments struct {
	records []ledger.PaymentRecord
}

func (m *mockPayments) Append(_ context.Context, records ...ledger.PaymentRecord) error {
	m.records = append(m.records, records...)
	return nil
}

func (m *mockPayments) List(_ context.Context) ([]ledger.PaymentRecord, error) {
	return m.records, nil
}

type mockRecorder struct {
	err   error
	calls int
}

func (m *mockRecorder) Record(_ context.Context, totals domain.Totals, acc accrual.Result, now time.Time) (snapshot.Snapshot, error) {
	m.calls++
	return snapshot.Build(totals, acc, now), m.err
}

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (m *mockPublisher) Publish(events ...domain.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
}

func testLedger() domain.Ledger {
	l := domain.NewLedger("TWD")
	l.Assets[domain.CategoryCash] = []domain.Asset{
		{ID: "c1", Category: domain.CategoryCash, Symbol: "TWD", Name: "Savings", Quantity: d("10000"), InterestRate: d("1.2")},
	}
	l.Assets[domain.CategoryStock] = []domain.Asset{
		{ID: "s1", Category: domain.CategoryStock, Symbol: "2330", Name: "TSMC", Quantity: d("10"), AverageCost: d("500")},
	}
	l.Assets[domain.CategoryLiability] = []domain.Asset{
		{ID: "l1", Category: domain.CategoryLiability, Symbol: "CAR", Name: "Car loan", Amount: d("1200"),
			AutoPayment: true, PaymentDay: 5, MonthlyPayment: d("500"), InterestRate: d("3")},
	}
	return l
}

type fixture struct {
	store     *mockStore
	provider  *mockProvider
	payments  *mockPayments
	recorder  *mockRecorder
	publisher *mockPublisher
	svc       *Service
}

func newFixture() *fixture {
	f := &fixture{
		store:     &mockStore{ledger: testLedger()},
		provider:  &mockProvider{quotes: domain.Quotes{"stock:2330": domain.ScalarQuote(d("600"))}},
		payments:  &mockPayments{},
		recorder:  &mockRecorder{},
		publisher: &mockPublisher{},
	}
	f.svc = NewService(f.store, f.provider, f.payments, f.recorder, f.publisher, accrual.PeriodsMonthly)
	return f
}

var paymentDay = time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)

func TestRunFullCycle(t *testing.T) {
	f := newFixture()

	res, err := f.svc.Run(context.Background(), paymentDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 10000 cash + 10 * 600 stock
	if !res.Totals.TotalAssets.Equal(d("16000")) {
		t.Errorf("TotalAssets = %s, want 16000", res.Totals.TotalAssets)
	}
	if !res.Totals.TotalLiabilities.Equal(d("700")) {
		t.Errorf("TotalLiabilities = %s, want 700 after debit", res.Totals.TotalLiabilities)
	}
	if len(res.Events) != 1 || res.Events[0].Type != domain.EventPaymentProcessed {
		t.Errorf("events = %+v, want one payment", res.Events)
	}
	if f.store.saves != 1 {
		t.Errorf("saves = %d, want 1", f.store.saves)
	}
	if len(f.payments.records) != 1 || !f.payments.records[0].Liability.Amount.Equal(d("700")) {
		t.Errorf("payment records = %+v, want one with amount 700", f.payments.records)
	}
	if f.recorder.calls != 1 {
		t.Errorf("snapshots recorded = %d, want 1", f.recorder.calls)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("warnings = %v, want none", res.Warnings)
	}
	if last, ok := f.svc.Last(); !ok || !last.Totals.NetWorth.Equal(res.Totals.NetWorth) {
		t.Errorf("Last() = %+v, %v", last.Totals, ok)
	}
}

func TestRunTwiceDebitsOnce(t *testing.T) {
	f := newFixture()

	if _, err := f.svc.Run(context.Background(), paymentDay); err != nil {
		t.Fatalf("first run: %v", err)
	}
	res, err := f.svc.Run(context.Background(), paymentDay.Add(time.Hour))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(res.Events) != 0 {
		t.Errorf("second run events = %+v, want none", res.Events)
	}
	if f.store.saves != 1 {
		t.Errorf("saves = %d, want 1", f.store.saves)
	}
	if !res.Totals.TotalLiabilities.Equal(d("700")) {
		t.Errorf("TotalLiabilities = %s, want 700", res.Totals.TotalLiabilities)
	}
}

func TestRunRejectsOverlap(t *testing.T) {
	f := newFixture()
	f.provider.block = make(chan struct{})
	f.provider.entered = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Run(context.Background(), paymentDay)
		done <- err
	}()
	<-f.provider.entered

	if _, err := f.svc.Run(context.Background(), paymentDay); !errors.Is(err, ErrCycleInFlight) {
		t.Errorf("overlapping Run error = %v, want ErrCycleInFlight", err)
	}

	close(f.provider.block)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
	if len(f.payments.records) != 1 {
		t.Errorf("payment records = %d, want 1", len(f.payments.records))
	}
}

func TestRunDegradesOnFailures(t *testing.T) {
	f := newFixture()
	f.provider.rateErr = errors.New("rates down")
	f.store.saveErr = errors.New("disk full")
	f.recorder.err = errors.New("db down")

	res, err := f.svc.Run(context.Background(), paymentDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Warnings) != 3 {
		t.Errorf("warnings = %v, want 3", res.Warnings)
	}
	if res.Snapshot.Timestamp.IsZero() {
		t.Error("snapshot should still be built when persistence fails")
	}

	failed := 0
	for _, e := range f.publisher.events {
		if e.Type == domain.EventRefreshFailed {
			failed++
		}
	}
	if failed != 3 {
		t.Errorf("refresh-failed events = %d, want 3", failed)
	}
}

func TestRunKeepsUnsavedDebit(t *testing.T) {
	f := newFixture()
	f.store.saveErr = errors.New("disk full")

	for i := range 3 {
		res, err := f.svc.Run(context.Background(), paymentDay.Add(time.Duration(i)*5*time.Minute))
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if !res.Totals.TotalLiabilities.Equal(d("700")) {
			t.Errorf("run %d: TotalLiabilities = %s, want 700", i, res.Totals.TotalLiabilities)
		}
	}

	payments := 0
	for _, e := range f.publisher.events {
		if e.Type == domain.EventPaymentProcessed {
			payments++
		}
	}
	if payments != 1 {
		t.Errorf("payment-processed events = %d, want 1", payments)
	}
	if len(f.payments.records) != 1 {
		t.Errorf("payment records = %d, want 1", len(f.payments.records))
	}
	if f.store.saves != 3 {
		t.Errorf("save attempts = %d, want 3", f.store.saves)
	}

	// once the store recovers the carried debit is persisted and not repeated
	f.store.saveErr = nil
	res, err := f.svc.Run(context.Background(), paymentDay.Add(time.Hour))
	if err != nil {
		t.Fatalf("recovery run: %v", err)
	}
	if len(res.Events) != 0 {
		t.Errorf("recovery run events = %+v, want none", res.Events)
	}
	a, _ := f.store.ledger.Find("l1")
	if !a.Amount.Equal(d("700")) || a.LastPaymentYearMonth != "2026-03" {
		t.Errorf("stored liability = %s %q, want 700 2026-03", a.Amount, a.LastPaymentYearMonth)
	}

	if _, err := f.svc.Run(context.Background(), paymentDay.Add(2*time.Hour)); err != nil {
		t.Fatalf("final run: %v", err)
	}
	if f.store.saves != 4 {
		t.Errorf("saves = %d, want 4 with nothing left pending", f.store.saves)
	}
}

func TestRunWarnsOnUnconvertedPrice(t *testing.T) {
	f := newFixture()
	f.store.ledger.Assets[domain.CategoryCrypto] = []domain.Asset{
		{ID: "k1", Category: domain.CategoryCrypto, Symbol: "ETH", Name: "Ether", Quantity: d("1"), AverageCost: d("2000"), PriceCurrency: "EUR"},
	}

	res, err := f.svc.Run(context.Background(), paymentDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "no EUR rate") {
		t.Errorf("warnings = %v, want one about the missing EUR rate", res.Warnings)
	}
}

func TestPreviewHasNoSideEffects(t *testing.T) {
	f := newFixture()

	res, err := f.svc.Preview(context.Background(), paymentDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Events) != 0 {
		t.Errorf("events = %+v, want none", res.Events)
	}
	if !res.Totals.TotalLiabilities.Equal(d("1200")) {
		t.Errorf("TotalLiabilities = %s, want 1200 undebited", res.Totals.TotalLiabilities)
	}
	if res.Snapshot.Timestamp.IsZero() {
		t.Error("preview snapshot not built")
	}
	if f.store.saves != 0 || len(f.payments.records) != 0 || f.recorder.calls != 0 || len(f.publisher.events) != 0 {
		t.Errorf("side effects: saves=%d records=%d snapshots=%d events=%d",
			f.store.saves, len(f.payments.records), f.recorder.calls, len(f.publisher.events))
	}
	if _, ok := f.svc.Last(); ok {
		t.Error("preview replaced the last result")
	}

	// the owning process still debits afterwards
	res, err = f.svc.Run(context.Background(), paymentDay)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Events) != 1 {
		t.Errorf("Run() events = %d, want 1", len(res.Events))
	}
}

func TestRunLedgerLoadFailure(t *testing.T) {
	f := newFixture()
	f.store.loadErr = ledger.ErrConfigLoad

	_, err := f.svc.Run(context.Background(), paymentDay)
	if !errors.Is(err, ledger.ErrConfigLoad) {
		t.Errorf("error = %v, want ErrConfigLoad", err)
	}
	if _, ok := f.svc.Last(); ok {
		t.Error("failed cycle should not replace the last result")
	}
	if len(f.publisher.events) != 1 || f.publisher.events[0].Type != domain.EventRefreshFailed {
		t.Errorf("events = %+v, want one refresh-failed", f.publisher.events)
	}
}
