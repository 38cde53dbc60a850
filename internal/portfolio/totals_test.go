package portfolio

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/wealth/internal/domain"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testRates() domain.RateTable {
	return domain.NewRateTable("TWD", "USD", map[string]decimal.Decimal{"USD": d("1"), "TWD": d("30")}, d("31.5"))
}

func testLedger() domain.Ledger {
	l := domain.NewLedger("TWD")
	l.Assets[domain.CategoryStock] = []domain.Asset{
		{ID: "s1", Category: domain.CategoryStock, Symbol: "2330", Quantity: d("10"), AverageCost: d("500")},
	}
	l.Assets[domain.CategoryCash] = []domain.Asset{
		{ID: "c1", Category: domain.CategoryCash, Symbol: "TWD", Quantity: d("4000"), AverageCost: d("1")},
	}
	l.Assets[domain.CategoryLiability] = []domain.Asset{
		{ID: "l1", Category: domain.CategoryLiability, Symbol: "CAR", Amount: d("100"), InterestRate: d("2")},
		{ID: "l2", Category: domain.CategoryLiability, Symbol: "HOUSE", Amount: d("300"), InterestRate: d("6")},
	}
	return l
}

func TestCalculateTotals(t *testing.T) {
	quotes := domain.Quotes{"stock:2330": domain.ScalarQuote(d("600"))}

	totals := CalculateTotals(testLedger(), quotes, testRates())

	// 10*600 + 4000
	if !totals.TotalAssets.Equal(d("10000")) {
		t.Errorf("TotalAssets = %s, want 10000", totals.TotalAssets)
	}
	// 10*500 + 4000
	if !totals.TotalCost.Equal(d("9000")) {
		t.Errorf("TotalCost = %s, want 9000", totals.TotalCost)
	}
	if !totals.TotalLiabilities.Equal(d("400")) {
		t.Errorf("TotalLiabilities = %s, want 400", totals.TotalLiabilities)
	}
	if !totals.NetWorth.Equal(d("9600")) {
		t.Errorf("NetWorth = %s, want 9600", totals.NetWorth)
	}

	stock := totals.Category(domain.CategoryStock)
	if !stock.ChangePercent.Equal(d("20")) {
		t.Errorf("stock ChangePercent = %s, want 20", stock.ChangePercent)
	}
	if stock.Count != 1 {
		t.Errorf("stock Count = %d, want 1", stock.Count)
	}
	if len(totals.Skipped) != 0 {
		t.Errorf("Skipped = %v, want none", totals.Skipped)
	}
}

func TestWeightedLiabilityRate(t *testing.T) {
	totals := CalculateTotals(testLedger(), nil, testRates())

	// (100*2 + 300*6) / 400
	if !totals.LiabilityRate.Equal(d("5")) {
		t.Errorf("LiabilityRate = %s, want 5", totals.LiabilityRate)
	}
}

func TestZeroRateLiabilityCountsInDenominator(t *testing.T) {
	l := domain.NewLedger("TWD")
	l.Assets[domain.CategoryLiability] = []domain.Asset{
		{ID: "l1", Category: domain.CategoryLiability, Symbol: "A", Amount: d("100"), InterestRate: d("4")},
		{ID: "l2", Category: domain.CategoryLiability, Symbol: "B", Amount: d("100")},
	}

	totals := CalculateTotals(l, nil, testRates())
	if !totals.LiabilityRate.Equal(d("2")) {
		t.Errorf("LiabilityRate = %s, want 2", totals.LiabilityRate)
	}
}

func TestMalformedAssetIsSkipped(t *testing.T) {
	l := testLedger()
	l.Assets[domain.CategoryStock] = append(l.Assets[domain.CategoryStock],
		domain.Asset{ID: "bad", Category: domain.CategoryStock, Symbol: "0050"})

	totals := CalculateTotals(l, nil, testRates())

	if len(totals.Skipped) != 1 || totals.Skipped[0].AssetID != "bad" {
		t.Fatalf("Skipped = %v, want [bad]", totals.Skipped)
	}
	if !totals.TotalAssets.Equal(d("9000")) {
		t.Errorf("TotalAssets = %s, want 9000", totals.TotalAssets)
	}
}

func TestEmptyLedger(t *testing.T) {
	totals := CalculateTotals(domain.NewLedger("TWD"), nil, testRates())

	if !totals.NetWorth.IsZero() || !totals.ChangePercent.IsZero() || !totals.LiabilityRate.IsZero() {
		t.Errorf("totals = %+v, want zeros", totals)
	}
	for _, w := range Allocation(totals) {
		if !w.Percent.IsZero() {
			t.Errorf("%s weight = %s, want 0", w.Category, w.Percent)
		}
	}
}

func TestAllocation(t *testing.T) {
	quotes := domain.Quotes{"stock:2330": domain.ScalarQuote(d("600"))}
	weights := Allocation(CalculateTotals(testLedger(), quotes, testRates()))

	tests := []struct {
		category domain.Category
		percent  string
		debt     bool
	}{
		{domain.CategoryCrypto, "0", false},
		{domain.CategoryStock, "60", false},
		{domain.CategoryCash, "40", false},
		{domain.CategoryForex, "0", false},
		{domain.CategoryLiability, "4", true},
	}

	if len(weights) != len(tests) {
		t.Fatalf("len(weights) = %d, want %d", len(weights), len(tests))
	}
	for i, tt := range tests {
		w := weights[i]
		if w.Category != tt.category {
			t.Errorf("weights[%d].Category = %s, want %s", i, w.Category, tt.category)
		}
		if !w.Percent.Equal(d(tt.percent)) {
			t.Errorf("%s Percent = %s, want %s", tt.category, w.Percent, tt.percent)
		}
		if w.DebtRatio != tt.debt {
			t.Errorf("%s DebtRatio = %v, want %v", tt.category, w.DebtRatio, tt.debt)
		}
	}
}

func TestValuationsSkipMalformed(t *testing.T) {
	l := testLedger()
	l.Assets[domain.CategoryCrypto] = []domain.Asset{{ID: "bad", Category: domain.CategoryCrypto, Symbol: "BTC"}}

	got := Valuations(l, nil, testRates())
	if len(got) != 4 {
		t.Fatalf("len(Valuations) = %d, want 4", len(got))
	}
	if got[0].AssetID != "s1" {
		t.Errorf("first valuation = %s, want s1", got[0].AssetID)
	}
}

func TestSummarize(t *testing.T) {
	l := testLedger()
	now := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	quotes := domain.Quotes{"stock:2330": domain.ScalarQuote(d("600"))}

	s := Summarize(l, CalculateTotals(l, quotes, testRates()), now)

	if s.AssetCount != 4 {
		t.Errorf("AssetCount = %d, want 4", s.AssetCount)
	}
	if s.CategoryCount != 3 {
		t.Errorf("CategoryCount = %d, want 3", s.CategoryCount)
	}
	if s.Change.Direction != domain.DirectionUp {
		t.Errorf("Direction = %s, want up", s.Change.Direction)
	}
	if !s.LastUpdate.Equal(now) {
		t.Errorf("LastUpdate = %v, want %v", s.LastUpdate, now)
	}
}
