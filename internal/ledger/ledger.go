// Package ledger stores the append-only audit history and answers novelty
// queries against it.
package ledger

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/schema-audit/internal/config"
	"github.com/sells-group/schema-audit/internal/model"
)

// ErrIntegrity means the stored history cannot be read back reliably.
var ErrIntegrity = eris.New("ledger: history is unreadable or malformed")

// Ledger is an append-only sequence of audit records.
type Ledger interface {
	// Load returns every stored record in insertion order.
	Load(ctx context.Context) ([]model.DatasetReportRecord, error)
	// Append adds records after the existing ones. Stored rows are never rewritten.
	Append(ctx context.Context, records []model.DatasetReportRecord) error
	Close() error
}

// Open returns the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.LedgerConfig) (Ledger, error) {
	switch cfg.Driver {
	case "", "csv":
		return NewCSV(cfg.Path), nil
	case "sqlite":
		l, err := NewSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		if err := l.Migrate(ctx); err != nil {
			_ = l.Close()
			return nil, err
		}
		return l, nil
	case "postgres":
		l, err := NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := l.Migrate(ctx); err != nil {
			_ = l.Close()
			return nil, err
		}
		return l, nil
	default:
		return nil, eris.Errorf("ledger: unknown driver %q", cfg.Driver)
	}
}

// Snapshot is the ledger state read once at the start of a run.
type Snapshot struct {
	records  []model.DatasetReportRecord
	fileURLs map[string]struct{}
}

// NewSnapshot indexes records by file URL.
func NewSnapshot(records []model.DatasetReportRecord) *Snapshot {
	s := &Snapshot{
		records:  records,
		fileURLs: make(map[string]struct{}, len(records)),
	}
	for _, r := range records {
		s.fileURLs[r.FileURL] = struct{}{}
	}
	return s
}

// LoadSnapshot reads the full history of l. Any failure is reported as
// ErrIntegrity since novelty cannot be decided without it.
func LoadSnapshot(ctx context.Context, l Ledger) (*Snapshot, error) {
	records, err := l.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrIntegrity) {
			return nil, err
		}
		return nil, eris.Wrapf(ErrIntegrity, "load: %v", err)
	}
	return NewSnapshot(records), nil
}

// IsNew reports whether no record in the snapshot has fileURL.
func (s *Snapshot) IsNew(fileURL string) bool {
	_, seen := s.fileURLs[fileURL]
	return !seen
}

// Len returns the number of records in the snapshot.
func (s *Snapshot) Len() int { return len(s.records) }

// Records returns the snapshot's records, optionally restricted to one dataset.
func (s *Snapshot) Records(datasetID string) []model.DatasetReportRecord {
	if datasetID == "" {
		return s.records
	}
	var out []model.DatasetReportRecord
	for _, r := range s.records {
		if r.DatasetID == datasetID {
			out = append(out, r)
		}
	}
	return out
}
