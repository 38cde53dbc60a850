package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"

	"github.com/mtlprog/wealth/internal/domain"
	"github.com/mtlprog/wealth/internal/fsutil"
)

// PaymentRecord is one audit entry: the liability as it stood right after an automatic debit.
type PaymentRecord struct {
	Timestamp time.Time    `json:"timestamp"`
	Liability domain.Asset `json:"liability"`
}

// PaymentLog is the append-only audit log of automatic debits.
type PaymentLog interface {
	Append(ctx context.Context, records ...PaymentRecord) error
	List(ctx context.Context) ([]PaymentRecord, error)
}

// PaymentRecords builds audit entries for the payment events of one amortization run.
func PaymentRecords(l domain.Ledger, events []domain.Event) []PaymentRecord {
	return lo.FilterMap(events, func(e domain.Event, _ int) (PaymentRecord, bool) {
		if e.Type != domain.EventPaymentProcessed && e.Type != domain.EventLiabilityPaidOff {
			return PaymentRecord{}, false
		}
		a, ok := l.Find(e.AssetID)
		if !ok {
			return PaymentRecord{}, false
		}
		return PaymentRecord{Timestamp: e.Timestamp, Liability: *a}, true
	})
}

// FilePaymentLog stores the audit log as a JSON array.
type FilePaymentLog struct {
	path string
	mu   sync.Mutex
}

// NewFilePaymentLog creates an audit log backed by the file at path.
func NewFilePaymentLog(path string) *FilePaymentLog {
	return &FilePaymentLog{path: path}
}

func (p *FilePaymentLog) Append(_ context.Context, records ...PaymentRecord) error {
	if len(records) == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	existing, err := p.read()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(append(existing, records...), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding payment log: %w", err)
	}
	if err := fsutil.WriteFileAtomic(p.path, data); err != nil {
		return fmt.Errorf("writing payment log %s: %w", p.path, err)
	}
	return nil
}

func (p *FilePaymentLog) List(_ context.Context) ([]PaymentRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.read()
}

func (p *FilePaymentLog) read() ([]PaymentRecord, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading payment log %s: %w", p.path, err)
	}
	var records []PaymentRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding payment log %s: %w", p.path, err)
	}
	return records, nil
}

// PgPaymentLog implements PaymentLog with PostgreSQL.
type PgPaymentLog struct {
	pool *pgxpool.Pool
}

// NewPgPaymentLog creates a new PostgreSQL payment log.
func NewPgPaymentLog(pool *pgxpool.Pool) *PgPaymentLog {
	return &PgPaymentLog{pool: pool}
}

func (p *PgPaymentLog) Append(ctx context.Context, records ...PaymentRecord) error {
	for _, r := range records {
		data, err := json.Marshal(r.Liability)
		if err != nil {
			return fmt.Errorf("marshaling liability %s: %w", r.Liability.ID, err)
		}
		if _, err := p.pool.Exec(ctx,
			`INSERT INTO wealth_payments (paid_at, asset_id, liability) VALUES ($1, $2, $3::jsonb)`,
			r.Timestamp, r.Liability.ID, data); err != nil {
			return fmt.Errorf("saving payment for %s: %w", r.Liability.ID, err)
		}
	}
	return nil
}

func (p *PgPaymentLog) List(ctx context.Context) ([]PaymentRecord, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT paid_at, liability FROM wealth_payments ORDER BY paid_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	defer rows.Close()

	var records []PaymentRecord
	for rows.Next() {
		var r PaymentRecord
		var data []byte
		if err := rows.Scan(&r.Timestamp, &data); err != nil {
			return nil, fmt.Errorf("scanning payment: %w", err)
		}
		if err := json.Unmarshal(data, &r.Liability); err != nil {
			return nil, fmt.Errorf("decoding payment: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
