package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtlprog/wealth/internal/fsutil"
)

// ErrNotFound indicates that the history holds no snapshot.
var ErrNotFound = errors.New("snapshot not found")

// Repository defines persistent storage for the history log.
type Repository interface {
	Load(ctx context.Context) (History, error)
	Append(ctx context.Context, s Snapshot, maxLen int) error
	Replace(ctx context.Context, h History) error
}

// FileRepository stores the history as one JSON document.
type FileRepository struct {
	path string
	mu   sync.Mutex
}

// NewFileRepository creates a history store backed by the file at path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Load reads the history document. A missing file is an empty history.
func (r *FileRepository) Load(_ context.Context) (History, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read()
}

func (r *FileRepository) read() (History, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewHistory(), nil
		}
		return History{}, fmt.Errorf("reading history %s: %w", r.path, err)
	}

	h := NewHistory()
	if err := json.Unmarshal(data, &h); err != nil {
		return History{}, fmt.Errorf("decoding history %s: %w", r.path, err)
	}
	if h.Entries == nil {
		h.Entries = []Snapshot{}
	}
	return h, nil
}

func (r *FileRepository) Append(_ context.Context, s Snapshot, maxLen int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, err := r.read()
	if err != nil {
		return err
	}
	h.Append(s, maxLen)
	return r.write(h)
}

func (r *FileRepository) Replace(_ context.Context, h History) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.write(h)
}

func (r *FileRepository) write(h History) error {
	h.SchemaVersion = HistorySchemaVersion
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}
	if err := fsutil.WriteFileAtomic(r.path, data); err != nil {
		return fmt.Errorf("writing history %s: %w", r.path, err)
	}
	return nil
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL history repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Load(ctx context.Context) (History, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT data FROM wealth_snapshots ORDER BY taken_at, id`)
	if err != nil {
		return History{}, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	h := NewHistory()
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return History{}, fmt.Errorf("scanning snapshot: %w", err)
		}
		var s Snapshot
		if err := json.Unmarshal(data, &s); err != nil {
			return History{}, fmt.Errorf("decoding snapshot: %w", err)
		}
		h.Entries = append(h.Entries, s)
	}
	if err := rows.Err(); err != nil {
		return History{}, fmt.Errorf("iterating snapshots: %w", err)
	}
	if latest, ok := h.Latest(); ok {
		h.LastUpdateTimestamp = latest.Timestamp
	}
	return h, nil
}

func (r *PgRepository) Append(ctx context.Context, s Snapshot, maxLen int) error {
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertSnapshot(ctx, tx, s); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM wealth_snapshots
		 WHERE id NOT IN (
		   SELECT id FROM wealth_snapshots ORDER BY taken_at DESC, id DESC LIMIT $1
		 )`, maxLen); err != nil {
		return fmt.Errorf("trimming snapshots: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

func (r *PgRepository) Replace(ctx context.Context, h History) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM wealth_snapshots`); err != nil {
		return fmt.Errorf("clearing snapshots: %w", err)
	}
	for _, s := range h.Entries {
		if err := insertSnapshot(ctx, tx, s); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing history: %w", err)
	}
	return nil
}

func insertSnapshot(ctx context.Context, tx pgx.Tx, s Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO wealth_snapshots (taken_at, data) VALUES ($1, $2::jsonb)`,
		s.Timestamp, data); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}
