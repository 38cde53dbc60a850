package ledger

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/mtlprog/wealth/internal/domain"
	"github.com/mtlprog/wealth/internal/snapshot"
)

// BackupSchemaVersion is the current backup document version.
const BackupSchemaVersion = 1

// Backup bundles the ledger and the history log into one portable document.
type Backup struct {
	SchemaVersion int              `json:"schemaVersion"`
	ExportedAt    time.Time        `json:"exportedAt"`
	Ledger        domain.Ledger    `json:"ledger"`
	History       snapshot.History `json:"history"`
}

// Export writes a backup document to w.
func Export(w io.Writer, l domain.Ledger, h snapshot.History, now time.Time) error {
	b := Backup{
		SchemaVersion: BackupSchemaVersion,
		ExportedAt:    now,
		Ledger:        l,
		History:       h,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("encoding backup: %w", err)
	}
	return nil
}

// Import reads a backup document and validates its ledger.
func Import(r io.Reader) (Backup, LoadReport, error) {
	var b Backup
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return Backup{}, LoadReport{}, fmt.Errorf("decoding backup: %w", err)
	}
	if b.SchemaVersion == 0 || b.SchemaVersion > BackupSchemaVersion {
		return Backup{}, LoadReport{}, fmt.Errorf("unsupported backup schema version %d", b.SchemaVersion)
	}

	if b.Ledger.Assets == nil {
		b.Ledger.Assets = make(map[domain.Category][]domain.Asset)
	}
	if b.History.Entries == nil {
		b.History.Entries = []snapshot.Snapshot{}
	}
	return b, Validate(b.Ledger), nil
}
