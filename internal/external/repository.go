package external

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// StoredQuote is the last provider price recorded for a symbol.
type StoredQuote struct {
	Category  string          `json:"category"`
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// QuoteRepository defines persistent storage for the latest provider quotes.
type QuoteRepository interface {
	SaveQuote(ctx context.Context, q StoredQuote) error
	GetAllQuotes(ctx context.Context) ([]StoredQuote, error)
}

// PgQuoteRepository implements QuoteRepository with PostgreSQL.
type PgQuoteRepository struct {
	pool *pgxpool.Pool
}

// NewPgQuoteRepository creates a new PostgreSQL quote repository.
func NewPgQuoteRepository(pool *pgxpool.Pool) *PgQuoteRepository {
	return &PgQuoteRepository{pool: pool}
}

func (r *PgQuoteRepository) SaveQuote(ctx context.Context, q StoredQuote) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO wealth_quotes (category, symbol, price, currency, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (category, symbol) DO UPDATE SET price = $3, currency = $4, updated_at = $5`,
		q.Category, q.Symbol, q.Price, q.Currency, q.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving quote for %s: %w", q.Symbol, err)
	}
	return nil
}

func (r *PgQuoteRepository) GetAllQuotes(ctx context.Context) ([]StoredQuote, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT category, symbol, price, currency, updated_at FROM wealth_quotes ORDER BY category, symbol`)
	if err != nil {
		return nil, fmt.Errorf("getting all quotes: %w", err)
	}
	defer rows.Close()

	var quotes []StoredQuote
	for rows.Next() {
		var q StoredQuote
		if err := rows.Scan(&q.Category, &q.Symbol, &q.Price, &q.Currency, &q.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning quote: %w", err)
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}
