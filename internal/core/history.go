package core

// history.go persists one row per export run in PostgreSQL.
//
// History is optional. Without a database the service runs with a nil
// store, and History() returns ErrHistoryDisabled.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/ats-export/internal/export"
)

// ErrHistoryDisabled is returned by history queries when no database is configured.
var ErrHistoryDisabled = errors.New("export history disabled: no database configured")

// DefaultHistoryLimit is the number of runs returned when no limit is given.
const DefaultHistoryLimit = 50

// MaxHistoryLimit caps a single history query.
const MaxHistoryLimit = 500

// HistorySchema creates the export_runs table. It is applied at startup.
const HistorySchema = `
CREATE TABLE IF NOT EXISTS export_runs (
	id              uuid PRIMARY KEY,
	mode            text        NOT NULL,
	format          text        NOT NULL,
	columns         text[]      NOT NULL,
	filter          jsonb       NOT NULL DEFAULT '{}'::jsonb,
	state           text        NOT NULL,
	row_count       integer     NOT NULL DEFAULT 0,
	collected       integer     NOT NULL DEFAULT 0,
	enrich_failures integer     NOT NULL DEFAULT 0,
	partial         boolean     NOT NULL DEFAULT false,
	error           text,
	ip_address      inet,
	user_agent      text,
	started_at      timestamptz NOT NULL,
	finished_at     timestamptz NOT NULL
);
ALTER TABLE export_runs ADD COLUMN IF NOT EXISTS total integer NOT NULL DEFAULT 0;
ALTER TABLE export_runs ADD COLUMN IF NOT EXISTS enriched integer NOT NULL DEFAULT 0;
CREATE INDEX IF NOT EXISTS export_runs_started_at_idx ON export_runs (started_at DESC);
`

// DBTX is the subset of *pgxpool.Pool the history store needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ExportRun is one recorded export.
type ExportRun struct {
	ID             string                `json:"id"`
	Mode           export.Mode           `json:"mode"`
	Format         export.Format         `json:"format"`
	Columns        []string              `json:"columns"`
	Filter         export.FilterCriteria `json:"filter"`
	State          export.State          `json:"state"`
	Rows           int                   `json:"rows"`
	Total          int                   `json:"total"`     // reported upstream
	Collected      int                   `json:"collected"` // actually fetched
	Enriched       int                   `json:"enriched"`
	EnrichFailures int                   `json:"enrich_failures"`
	Partial        bool                  `json:"partial"`
	Error          string                `json:"error,omitempty"`
	IPAddress      string                `json:"ip_address,omitempty"`
	UserAgent      string                `json:"user_agent,omitempty"`
	StartedAt      time.Time             `json:"started_at"`
	FinishedAt     time.Time             `json:"finished_at"`
}

// HistoryStore reads and writes export_runs.
type HistoryStore struct {
	db DBTX
}

// NewHistoryStore creates a store on db (usually a *pgxpool.Pool).
func NewHistoryStore(db DBTX) *HistoryStore {
	return &HistoryStore{db: db}
}

// EnsureSchema creates the export_runs table if it does not exist.
func (h *HistoryStore) EnsureSchema(ctx context.Context) error {
	if _, err := h.db.Exec(ctx, HistorySchema); err != nil {
		return fmt.Errorf("create export_runs: %w", err)
	}
	return nil
}

const insertRunSQL = `INSERT INTO export_runs (
	id, mode, format, columns, filter, state, row_count, collected,
	enrich_failures, partial, error, ip_address, user_agent, started_at, finished_at,
	total, enriched
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

// Record inserts a finished run.
func (h *HistoryStore) Record(ctx context.Context, run ExportRun) error {
	id := ToPgUUID(run.ID)
	if !id.Valid {
		return fmt.Errorf("record export run: invalid id %q", run.ID)
	}

	filterJSON, err := json.Marshal(run.Filter)
	if err != nil {
		return fmt.Errorf("record export run: encode filter: %w", err)
	}

	columns := run.Columns
	if columns == nil {
		columns = []string{}
	}

	_, err = h.db.Exec(ctx, insertRunSQL,
		id,
		string(run.Mode),
		string(run.Format),
		columns,
		filterJSON,
		string(run.State),
		run.Rows,
		run.Collected,
		run.EnrichFailures,
		run.Partial,
		ToPgText(run.Error),
		ToPgInet(run.IPAddress),
		ToPgText(run.UserAgent),
		run.StartedAt,
		run.FinishedAt,
		run.Total,
		run.Enriched,
	)
	if err != nil {
		return fmt.Errorf("record export run: %w", err)
	}
	return nil
}

const recentRunsSQL = `SELECT id, mode, format, columns, filter, state, row_count, collected,
	enrich_failures, partial, error, ip_address, user_agent, started_at, finished_at,
	total, enriched
	FROM export_runs ORDER BY started_at DESC LIMIT $1`

// Recent returns the newest runs first. limit is clamped to
// [1, MaxHistoryLimit]; zero selects DefaultHistoryLimit.
func (h *HistoryStore) Recent(ctx context.Context, limit int) ([]ExportRun, error) {
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	rows, err := h.db.Query(ctx, recentRunsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query export runs: %w", err)
	}
	defer rows.Close()

	runs := make([]ExportRun, 0, limit)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan export run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate export runs: %w", err)
	}
	return runs, nil
}

func scanRun(rows pgx.Rows) (ExportRun, error) {
	var (
		id         pgtype.UUID
		mode       string
		format     string
		columns    []string
		filterJSON []byte
		state      string
		run        ExportRun
		errText    pgtype.Text
		ipAddress  *netip.Addr
		userAgent  pgtype.Text
	)

	err := rows.Scan(
		&id, &mode, &format, &columns, &filterJSON, &state,
		&run.Rows, &run.Collected, &run.EnrichFailures, &run.Partial,
		&errText, &ipAddress, &userAgent, &run.StartedAt, &run.FinishedAt,
		&run.Total, &run.Enriched,
	)
	if err != nil {
		return ExportRun{}, err
	}

	run.ID = PgUUIDToString(id)
	run.Mode = export.Mode(mode)
	run.Format = export.Format(format)
	run.Columns = columns
	run.State = export.State(state)
	if len(filterJSON) > 0 {
		if err := json.Unmarshal(filterJSON, &run.Filter); err != nil {
			return ExportRun{}, fmt.Errorf("decode filter: %w", err)
		}
	}
	if errText.Valid {
		run.Error = errText.String
	}
	if ipAddress != nil {
		run.IPAddress = ipAddress.String()
	}
	if userAgent.Valid {
		run.UserAgent = userAgent.String
	}
	return run, nil
}

const purgeRunsSQL = `DELETE FROM export_runs WHERE started_at < now() - make_interval(days => $1)`

// PurgeOlderThan deletes runs started more than days ago and returns the
// number of rows removed.
func (h *HistoryStore) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, fmt.Errorf("purge export runs: retention must be positive, got %d", days)
	}
	tag, err := h.db.Exec(ctx, purgeRunsSQL, days)
	if err != nil {
		return 0, fmt.Errorf("purge export runs: %w", err)
	}
	return tag.RowsAffected(), nil
}
