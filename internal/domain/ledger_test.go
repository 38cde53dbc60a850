package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func sampleLedger() Ledger {
	l := NewLedger("TWD")
	l.Assets[CategoryStock] = []Asset{{ID: "s1", Category: CategoryStock, Symbol: "2330"}}
	l.Assets[CategoryLiability] = []Asset{
		{ID: "l1", Category: CategoryLiability, Symbol: "LOAN", Amount: decimal.NewFromInt(1000)},
	}
	l.Assets[CategoryCrypto] = []Asset{{ID: "c1", Category: CategoryCrypto, Symbol: "BTC"}}
	return l
}

func TestLedgerAllDisplayOrder(t *testing.T) {
	all := sampleLedger().All()
	want := []string{"c1", "s1", "l1"}
	if len(all) != len(want) {
		t.Fatalf("All() returned %d assets, want %d", len(all), len(want))
	}
	for i, id := range want {
		if all[i].ID != id {
			t.Errorf("All()[%d] = %q, want %q", i, all[i].ID, id)
		}
	}
}

func TestLedgerFindMutatesInPlace(t *testing.T) {
	l := sampleLedger()
	a, ok := l.Find("l1")
	if !ok {
		t.Fatal("Find(l1) not found")
	}
	a.Amount = decimal.NewFromInt(700)

	if got := l.Liabilities()[0].Amount; !got.Equal(decimal.NewFromInt(700)) {
		t.Errorf("liability amount = %s, want 700", got)
	}

	if _, ok := l.Find("missing"); ok {
		t.Error("Find(missing) reported found")
	}
}

func TestLedgerCloneIsIndependent(t *testing.T) {
	l := sampleLedger()
	c := l.Clone()
	c.Assets[CategoryLiability][0].Amount = decimal.Zero

	if l.Liabilities()[0].Amount.IsZero() {
		t.Error("mutating the clone leaked into the original ledger")
	}
}

func TestLedgerCounts(t *testing.T) {
	l := sampleLedger()
	if got := l.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
	if got := l.CategoryCount(); got != 3 {
		t.Errorf("CategoryCount() = %d, want 3", got)
	}
}
