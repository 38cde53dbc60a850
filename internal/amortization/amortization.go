// Package amortization applies scheduled automatic payments to liabilities.
package amortization

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/wealth/internal/domain"
)

// Status is the lifecycle state of a liability.
type Status string

const (
	StatusActive  Status = "active"
	StatusPaidOff Status = "paid-off"
)

// State returns the lifecycle state of a liability. PaidOff is terminal.
func State(a domain.Asset) Status {
	if a.Amount.IsPositive() {
		return StatusActive
	}
	return StatusPaidOff
}

// Schedule decides on which day of a month a liability's payment falls due.
// The zero Schedule requires today's day to equal the payment day, so a day-31 payment is
// skipped in shorter months. ClampToMonthEnd moves it to the last day of those months.
type Schedule struct {
	ClampToMonthEnd bool
}

// Due reports whether a scheduled payment should be debited today under the default schedule.
func Due(a domain.Asset, today time.Time) bool {
	return Schedule{}.Due(a, today)
}

// Process applies the default schedule; see Schedule.Process.
func Process(l *domain.Ledger, today time.Time) []domain.Event {
	return Schedule{}.Process(l, today)
}

// Due reports whether a scheduled payment should be debited today.
func (s Schedule) Due(a domain.Asset, today time.Time) bool {
	if !a.AutoPayment || a.PaymentDay == 0 || !a.MonthlyPayment.IsPositive() || !a.Amount.IsPositive() {
		return false
	}
	if today.Day() != s.paymentDay(a.PaymentDay, today) {
		return false
	}
	return a.LastPaymentYearMonth != today.Format(domain.YearMonthLayout)
}

func (s Schedule) paymentDay(day int, today time.Time) int {
	if !s.ClampToMonthEnd {
		return day
	}
	last := time.Date(today.Year(), today.Month()+1, 0, 0, 0, 0, 0, today.Location()).Day()
	return min(day, last)
}

// Process debits every due liability of l in place and returns one event per debit.
// Running it again on the same day is a no-op: a liability is debited at most once per calendar month.
func (s Schedule) Process(l *domain.Ledger, today time.Time) []domain.Event {
	liabilities := l.Assets[domain.CategoryLiability]

	var events []domain.Event
	for i := range liabilities {
		a := &liabilities[i]
		if !s.Due(*a, today) {
			continue
		}
		events = append(events, pay(a, today))
	}
	return events
}

func pay(a *domain.Asset, today time.Time) domain.Event {
	payment := domain.MinDecimal(a.MonthlyPayment, a.Amount)
	a.Amount = a.Amount.Sub(payment)
	a.LastPaymentYearMonth = today.Format(domain.YearMonthLayout)
	a.LastPaymentDate = today.Format(domain.DateLayout)

	e := domain.Event{
		Type:      domain.EventPaymentProcessed,
		Timestamp: today,
		AssetID:   a.ID,
		Name:      a.Name,
		Amount:    payment,
		Remaining: a.Amount,
		Message:   fmt.Sprintf("paid %s on %s, %s remaining", payment, a.Name, a.Amount),
	}

	if a.Amount.LessThanOrEqual(decimal.Zero) {
		a.Amount = decimal.Zero
		a.AutoPayment = false
		e.Type = domain.EventLiabilityPaidOff
		e.Remaining = decimal.Zero
		e.Message = fmt.Sprintf("%s is paid off", a.Name)
	}
	return e
}
