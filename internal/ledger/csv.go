package ledger

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"slices"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/schema-audit/internal/model"
)

// CSVLedger stores history in a CSV file whose header is model.RecordColumns.
type CSVLedger struct {
	path string
}

// NewCSV returns a ledger backed by the CSV file at path. The file is created
// on first append.
func NewCSV(path string) *CSVLedger {
	return &CSVLedger{path: path}
}

// Load decodes every row. A missing file is an empty history; a header that
// differs from the record layout or an undecodable row is ErrIntegrity.
func (l *CSVLedger) Load(_ context.Context) ([]model.DatasetReportRecord, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "ledger: open %s", l.path)
	}
	defer f.Close() //nolint:errcheck

	dec, err := csvutil.NewDecoder(csv.NewReader(f))
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(ErrIntegrity, "%s: read header: %v", l.path, err)
	}
	if !slices.Equal(dec.Header(), model.RecordColumns) {
		return nil, eris.Wrapf(ErrIntegrity, "%s: unexpected header %v", l.path, dec.Header())
	}

	var records []model.DatasetReportRecord
	for {
		var rec model.DatasetReportRecord
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(ErrIntegrity, "%s: row %d: %v", l.path, len(records)+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Append encodes records into a buffer and writes it with a single append
// followed by fsync. The header is written only when the file is empty.
func (l *CSVLedger) Append(_ context.Context, records []model.DatasetReportRecord) error {
	if len(records) == 0 {
		return nil
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return eris.Wrapf(err, "ledger: open %s for append", l.path)
	}
	defer f.Close() //nolint:errcheck

	info, err := f.Stat()
	if err != nil {
		return eris.Wrapf(err, "ledger: stat %s", l.path)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	enc := csvutil.NewEncoder(w)
	enc.AutoHeader = info.Size() == 0
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return eris.Wrap(err, "ledger: encode record")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "ledger: flush csv")
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return eris.Wrapf(err, "ledger: append to %s", l.path)
	}
	return eris.Wrapf(f.Sync(), "ledger: sync %s", l.path)
}

// Close is a no-op; the file is opened per operation.
func (l *CSVLedger) Close() error { return nil }
