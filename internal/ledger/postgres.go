package ledger

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/schema-audit/internal/db"
	"github.com/sells-group/schema-audit/internal/model"
)

const postgresTable = "dataset_reports"

// PostgresLedger stores history in a Postgres table.
type PostgresLedger struct {
	pool db.Pool
}

// NewPostgres connects to connString.
func NewPostgres(ctx context.Context, connString string) (*PostgresLedger, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 4
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresLedger{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS dataset_reports (
	id                     BIGSERIAL PRIMARY KEY,
	date                   TEXT NOT NULL,
	dataset_id             TEXT NOT NULL,
	name                   TEXT NOT NULL,
	schema_slug            TEXT NOT NULL,
	schema_version         TEXT NOT NULL,
	file_url               TEXT NOT NULL,
	report_url             TEXT NOT NULL,
	row_count              BIGINT NOT NULL DEFAULT 0,
	error_count            BIGINT NOT NULL DEFAULT 0,
	rows_with_errors_count BIGINT NOT NULL DEFAULT 0,
	error_detail           TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_dataset_reports_file_url ON dataset_reports(file_url);
CREATE INDEX IF NOT EXISTS idx_dataset_reports_dataset_id ON dataset_reports(dataset_id);
`

// Migrate creates the history table.
func (l *PostgresLedger) Migrate(ctx context.Context) error {
	_, err := l.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (l *PostgresLedger) Close() error {
	l.pool.Close()
	return nil
}

// Load returns every record ordered by insertion.
func (l *PostgresLedger) Load(ctx context.Context) ([]model.DatasetReportRecord, error) {
	rows, err := l.pool.Query(ctx, `SELECT `+columnList+` FROM dataset_reports ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load history")
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
			return nil, eris.Wrapf(ErrIntegrity, "postgres: scan record: %v", err)
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: load history iterate")
}

// Append copies records into the table.
func (l *PostgresLedger) Append(ctx context.Context, records []model.DatasetReportRecord) error {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, r.Values())
	}
	_, err := db.CopyFrom(ctx, l.pool, postgresTable, model.RecordColumns, rows)
	return eris.Wrap(err, "postgres: append history")
}
