package ledger

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/schema-audit/internal/model"
)

// SQLiteLedger stores history in a SQLite table.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=FULL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteLedger{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS dataset_reports (
	id                     INTEGER PRIMARY KEY AUTOINCREMENT,
	date                   TEXT NOT NULL,
	dataset_id             TEXT NOT NULL,
	name                   TEXT NOT NULL,
	schema_slug            TEXT NOT NULL,
	schema_version         TEXT NOT NULL,
	file_url               TEXT NOT NULL,
	report_url             TEXT NOT NULL,
	row_count              INTEGER NOT NULL DEFAULT 0,
	error_count            INTEGER NOT NULL DEFAULT 0,
	rows_with_errors_count INTEGER NOT NULL DEFAULT 0,
	error_detail           TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_dataset_reports_file_url ON dataset_reports(file_url);
CREATE INDEX IF NOT EXISTS idx_dataset_reports_dataset_id ON dataset_reports(dataset_id);
`

// Migrate creates the history table.
func (l *SQLiteLedger) Migrate(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

var columnList = strings.Join(model.RecordColumns, ", ")

// Load returns every record ordered by insertion.
func (l *SQLiteLedger) Load(ctx context.Context) ([]model.DatasetReportRecord, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT `+columnList+` FROM dataset_reports ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load history")
	}
	defer rows.Close()

	var records []model.DatasetReportRecord
	for rows.Next() {
		var r model.DatasetReportRecord
		if err := rows.Scan(
			&r.Date, &r.DatasetID, &r.Name, &r.SchemaSlug, &r.SchemaVersion,
			&r.FileURL, &r.ReportURL, &r.RowCount, &r.ErrorCount,
			&r.RowsWithErrorsCount, &r.ErrorDetail,
		); err != nil {
			return nil, eris.Wrapf(ErrIntegrity, "sqlite: scan record: %v", err)
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: load history iterate")
}

// Append inserts records in one transaction.
func (l *SQLiteLedger) Append(ctx context.Context, records []model.DatasetReportRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin append")
	}
	defer tx.Rollback() //nolint:errcheck

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(model.RecordColumns)), ", ")
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO dataset_reports (`+columnList+`) VALUES (`+placeholders+`)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare append")
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Values()...); err != nil {
			return eris.Wrapf(err, "sqlite: insert record for %s", r.DatasetID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit append")
}
