package amortization

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/wealth/internal/domain"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, dd int) time.Time {
	return time.Date(y, m, dd, 9, 0, 0, 0, time.UTC)
}

func ledgerWith(a domain.Asset) *domain.Ledger {
	l := domain.NewLedger("TWD")
	l.Assets[domain.CategoryLiability] = []domain.Asset{a}
	return &l
}

func loan(amount, payment string) domain.Asset {
	return domain.Asset{
		ID:             "l1",
		Category:       domain.CategoryLiability,
		Symbol:         "CAR",
		Name:           "Car loan",
		Amount:         d(amount),
		AutoPayment:    true,
		PaymentDay:     5,
		MonthlyPayment: d(payment),
	}
}

func TestProcessIsIdempotentWithinMonth(t *testing.T) {
	l := ledgerWith(loan("1200", "500"))

	events := Process(l, day(2026, 3, 5))
	if len(events) != 1 || events[0].Type != domain.EventPaymentProcessed {
		t.Fatalf("first run events = %+v, want one payment", events)
	}
	if !events[0].Amount.Equal(d("500")) {
		t.Errorf("payment = %s, want 500", events[0].Amount)
	}

	if events := Process(l, day(2026, 3, 5)); len(events) != 0 {
		t.Errorf("second run events = %+v, want none", events)
	}

	got := l.Liabilities()[0]
	if !got.Amount.Equal(d("700")) {
		t.Errorf("Amount = %s, want 700", got.Amount)
	}
	if got.LastPaymentYearMonth != "2026-03" {
		t.Errorf("LastPaymentYearMonth = %q, want 2026-03", got.LastPaymentYearMonth)
	}
	if got.LastPaymentDate != "2026-03-05" {
		t.Errorf("LastPaymentDate = %q, want 2026-03-05", got.LastPaymentDate)
	}

	Process(l, day(2026, 4, 5))
	if got := l.Liabilities()[0]; !got.Amount.Equal(d("200")) {
		t.Errorf("Amount after April = %s, want 200", got.Amount)
	}
}

func TestProcessPaysOff(t *testing.T) {
	l := ledgerWith(loan("400", "500"))

	events := Process(l, day(2026, 3, 5))
	if len(events) != 1 {
		t.Fatalf("events = %+v, want one", events)
	}
	if events[0].Type != domain.EventLiabilityPaidOff {
		t.Errorf("event type = %s, want %s", events[0].Type, domain.EventLiabilityPaidOff)
	}
	if !events[0].Amount.Equal(d("400")) {
		t.Errorf("payment = %s, want 400", events[0].Amount)
	}

	got := l.Liabilities()[0]
	if !got.Amount.IsZero() {
		t.Errorf("Amount = %s, want 0", got.Amount)
	}
	if got.AutoPayment {
		t.Error("AutoPayment = true, want false")
	}
	if State(got) != StatusPaidOff {
		t.Errorf("State = %s, want %s", State(got), StatusPaidOff)
	}

	if events := Process(l, day(2026, 4, 5)); len(events) != 0 {
		t.Errorf("events after payoff = %+v, want none", events)
	}
}

func TestDue(t *testing.T) {
	today := day(2026, 3, 5)

	tests := []struct {
		name   string
		mutate func(*domain.Asset)
		want   bool
	}{
		{"due", func(*domain.Asset) {}, true},
		{"auto payment off", func(a *domain.Asset) { a.AutoPayment = false }, false},
		{"no payment day", func(a *domain.Asset) { a.PaymentDay = 0 }, false},
		{"no monthly payment", func(a *domain.Asset) { a.MonthlyPayment = decimal.Zero }, false},
		{"zero balance", func(a *domain.Asset) { a.Amount = decimal.Zero }, false},
		{"other day", func(a *domain.Asset) { a.PaymentDay = 6 }, false},
		{"already paid this month", func(a *domain.Asset) { a.LastPaymentYearMonth = "2026-03" }, false},
		{"paid last month", func(a *domain.Asset) { a.LastPaymentYearMonth = "2026-02" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := loan("1000", "100")
			tt.mutate(&a)
			if got := Due(a, today); got != tt.want {
				t.Errorf("Due() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScheduleMonthEnd(t *testing.T) {
	a := loan("1000", "100")
	a.PaymentDay = 31

	tests := []struct {
		today time.Time
		exact bool
		clamp bool
	}{
		{day(2026, 2, 27), false, false},
		{day(2026, 2, 28), false, true},
		{day(2026, 4, 30), false, true},
		{day(2026, 5, 30), false, false},
		{day(2026, 5, 31), true, true},
	}
	for _, tt := range tests {
		date := tt.today.Format(domain.DateLayout)
		if got := Due(a, tt.today); got != tt.exact {
			t.Errorf("Due(%s) = %v, want %v", date, got, tt.exact)
		}
		if got := (Schedule{ClampToMonthEnd: true}).Due(a, tt.today); got != tt.clamp {
			t.Errorf("clamped Due(%s) = %v, want %v", date, got, tt.clamp)
		}
	}
}

func TestProcessLeavesOtherLiabilities(t *testing.T) {
	l := ledgerWith(loan("1000", "100"))
	other := loan("900", "100")
	other.ID = "l2"
	other.PaymentDay = 20
	l.Assets[domain.CategoryLiability] = append(l.Assets[domain.CategoryLiability], other)

	events := Process(l, day(2026, 3, 5))
	if len(events) != 1 || events[0].AssetID != "l1" {
		t.Fatalf("events = %+v, want l1 only", events)
	}
	if got := l.Liabilities()[1]; !got.Amount.Equal(d("900")) {
		t.Errorf("l2 Amount = %s, want 900", got.Amount)
	}
}
