package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtlprog/wealth/internal/amortization"
	"github.com/mtlprog/wealth/internal/config"
	"github.com/mtlprog/wealth/internal/database"
	"github.com/mtlprog/wealth/internal/events"
	"github.com/mtlprog/wealth/internal/external"
	"github.com/mtlprog/wealth/internal/fsutil"
	"github.com/mtlprog/wealth/internal/ledger"
	"github.com/mtlprog/wealth/internal/price"
	"github.com/mtlprog/wealth/internal/refresh"
	"github.com/mtlprog/wealth/internal/snapshot"
)

// deps holds the wired services shared by every command.
type deps struct {
	cfg       config.Config
	files     *ledger.FileStore
	store     *ledger.FallbackStore
	snapshots *snapshot.Service
	payments  ledger.PaymentLog
	quotes    *external.PgQuoteRepository
	bus       *events.Bus
	refresher *refresh.Service

	pool *pgxpool.Pool
}

// setup wires the services. With DATABASE_URL set, history, payments and quotes live in
// PostgreSQL; otherwise history and payments are JSON files and quotes are not stored.
func setup(ctx context.Context, cfg config.Config) (*deps, error) {
	d := &deps{
		cfg:   cfg,
		files: ledger.NewFileStore(cfg.LedgerPath, cfg.BaseCurrency),
		bus:   events.NewBus(events.DefaultBufferSize),
	}
	d.store = ledger.NewFallbackStore(d.files, cfg.BaseCurrency)

	var historyRepo snapshot.Repository
	var quoteStore price.QuoteStore
	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		d.pool = pool
		historyRepo = snapshot.NewPgRepository(pool)
		d.payments = ledger.NewPgPaymentLog(pool)
		d.quotes = external.NewPgQuoteRepository(pool)
		quoteStore = d.quotes
	} else {
		historyRepo = snapshot.NewFileRepository(cfg.HistoryPath)
		d.payments = ledger.NewFilePaymentLog(cfg.PaymentLogPath)
	}

	d.snapshots = snapshot.NewService(historyRepo, cfg.HistoryMaxLength)
	if err := d.snapshots.Load(ctx); err != nil {
		slog.Warn("history unavailable, starting with an empty log", "error", err)
	}

	coingecko := external.NewCoinGeckoClient(cfg.CoinGeckoURL, cfg.HTTPRetryMax, cfg.HTTPRetryBaseDelay)
	yahoo := external.NewYahooClient(cfg.YahooURL, cfg.EquitySymbolSuffix, cfg.HTTPRetryMax, cfg.HTTPRetryBaseDelay)
	fx := external.NewExchangeRateClient(cfg.ExchangeRateURL, cfg.HTTPRetryMax, cfg.HTTPRetryBaseDelay)

	provider := price.NewService(coingecko, yahoo, fx, quoteStore, price.Options{
		BaseCurrency:      cfg.BaseCurrency,
		ReferenceCurrency: cfg.ReferenceCurrency,
		FallbackRate:      cfg.FallbackReferenceRate,
		EquityDelay:       cfg.EquityFetchDelay,
		CacheTTL:          cfg.QuoteCacheTTL,
	})

	d.refresher = refresh.NewService(d.store, provider, d.payments, d.snapshots, d.bus, cfg.AccrualPeriodsPerYear).
		WithSchedule(amortization.Schedule{ClampToMonthEnd: cfg.ClampPaymentDay})
	return d, nil
}

// lockLedger marks this process as the one that debits and saves the ledger.
// It fails with fsutil.ErrLocked while another process, normally serve, holds it.
func (d *deps) lockLedger() (*fsutil.Lock, error) {
	return fsutil.TryLock(d.cfg.LedgerPath + ".lock")
}

func (d *deps) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
}
