package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/okanogan-digital/directory-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS businesses (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	address    TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	data       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_businesses_name ON businesses(name);
CREATE INDEX IF NOT EXISTS idx_businesses_address_phone ON businesses(address, phone);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	zip         TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	businesses  INTEGER NOT NULL DEFAULT 0,
	diagnostics TEXT,
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_zip ON runs(zip);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertBusiness(ctx context.Context, b *model.Business) error {
	data, err := json.Marshal(b)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal business")
	}
	now := time.Now().UTC()

	var existingID string
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM businesses WHERE name = ? OR (? <> '' AND ? <> '' AND address = ? AND phone = ?) LIMIT 1`,
		b.Name, b.Address, b.Phone, b.Address, b.Phone,
	).Scan(&existingID)
	switch {
	case err == nil:
		_, err = s.db.ExecContext(ctx,
			`UPDATE businesses SET name = ?, address = ?, phone = ?, data = ?, updated_at = ? WHERE id = ?`,
			b.Name, b.Address, b.Phone, string(data), now, existingID,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: update business %s", existingID)
		}
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO businesses (id, name, address, phone, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			b.ID, b.Name, b.Address, b.Phone, string(data), now, now,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert business %s", b.ID)
		}
	default:
		return eris.Wrap(err, "sqlite: find business")
	}
	return nil
}

func (s *SQLiteStore) GetBusiness(ctx context.Context, id string) (*model.Business, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM businesses WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get business %s", id)
	}

	var b model.Business
	if err := json.Unmarshal([]byte(data), &b); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal business %s", id)
	}
	return &b, nil
}

func (s *SQLiteStore) ListBusinesses(ctx context.Context, limit, offset int) ([]model.Business, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM businesses ORDER BY name LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list businesses")
	}
	defer rows.Close()

	var out []model.Business
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan business")
		}
		var b model.Business
		if err := json.Unmarshal([]byte(data), &b); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal business")
		}
		out = append(out, b)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list businesses")
}

func (s *SQLiteStore) CreateRun(ctx context.Context, zip string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, zip, status, businesses, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, zip, string(model.RunStatusRunning), 0, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Zip:       zip,
		Status:    model.RunStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, businesses int, diag *model.Diagnostics) error {
	var diagJSON any
	if diag != nil {
		data, err := json.Marshal(diag)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal diagnostics")
		}
		diagJSON = string(data)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, businesses = ?, diagnostics = ?, finished_at = ? WHERE id = ?`,
		string(status), businesses, diagJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, zip, status, businesses, diagnostics, started_at, finished_at FROM runs WHERE id = ?`,
		runID,
	)
	run, err := scanSQLiteRun(row.Scan)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	return run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, zip, status, businesses, diagnostics, started_at, finished_at FROM runs`
	var (
		conds []string
		args  []any
	)
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Zip != "" {
		conds = append(conds, "zip = ?")
		args = append(args, filter.Zip)
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += fmt.Sprintf(" ORDER BY started_at DESC LIMIT %d", limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var out []model.Run
	for rows.Next() {
		run, err := scanSQLiteRun(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		out = append(out, *run)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list runs")
}

func scanSQLiteRun(scan func(dest ...any) error) (*model.Run, error) {
	var (
		run        model.Run
		status     string
		diagJSON   sql.NullString
		finishedAt sql.NullTime
	)
	if err := scan(&run.ID, &run.Zip, &status, &run.Businesses, &diagJSON, &run.StartedAt, &finishedAt); err != nil {
		return nil, err
	}
	run.Status = model.RunStatus(status)
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	if diagJSON.Valid && diagJSON.String != "" {
		var diag model.Diagnostics
		if err := json.Unmarshal([]byte(diagJSON.String), &diag); err != nil {
			return nil, err
		}
		run.Diagnostics = &diag
	}
	return &run, nil
}
