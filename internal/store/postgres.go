package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/okanogan-digital/directory-cli/internal/model"
)

// pool defines the minimal pgx pool surface used by PostgresStore.
// pgxmock satisfies it in tests.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"find_business":   `SELECT id FROM businesses WHERE name = $1 OR ($2 <> '' AND $3 <> '' AND address = $2 AND phone = $3) LIMIT 1`,
	"insert_business": `INSERT INTO businesses (id, name, address, phone, data, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $6)`,
	"update_business": `UPDATE businesses SET name = $2, address = $3, phone = $4, data = $5, updated_at = $6 WHERE id = $1`,
	"get_business":    `SELECT data FROM businesses WHERE id = $1`,
	"insert_run":      `INSERT INTO runs (id, zip, status, businesses, started_at) VALUES ($1, $2, $3, $4, $5)`,
	"complete_run":    `UPDATE runs SET status = $1, businesses = $2, diagnostics = $3, finished_at = $4 WHERE id = $5`,
	"get_run":         `SELECT id, zip, status, businesses, diagnostics, started_at, finished_at FROM runs WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	p, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresStore{pool: p, closeFn: p.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS businesses (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	address    TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_businesses_name ON businesses(name);
CREATE INDEX IF NOT EXISTS idx_businesses_address_phone ON businesses(address, phone);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	zip         TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	businesses  INTEGER NOT NULL DEFAULT 0,
	diagnostics JSONB,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_zip ON runs(zip);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertBusiness(ctx context.Context, b *model.Business) error {
	data, err := json.Marshal(b)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal business")
	}
	now := time.Now().UTC()

	var existingID string
	err = s.pool.QueryRow(ctx,
		`SELECT id FROM businesses WHERE name = $1 OR ($2 <> '' AND $3 <> '' AND address = $2 AND phone = $3) LIMIT 1`,
		b.Name, b.Address, b.Phone,
	).Scan(&existingID)
	switch {
	case err == nil:
		_, err = s.pool.Exec(ctx,
			`UPDATE businesses SET name = $2, address = $3, phone = $4, data = $5, updated_at = $6 WHERE id = $1`,
			existingID, b.Name, b.Address, b.Phone, data, now,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: update business %s", existingID)
		}
	case errors.Is(err, pgx.ErrNoRows):
		_, err = s.pool.Exec(ctx,
			`INSERT INTO businesses (id, name, address, phone, data, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $6)`,
			b.ID, b.Name, b.Address, b.Phone, data, now,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert business %s", b.ID)
		}
	default:
		return eris.Wrap(err, "postgres: find business")
	}
	return nil
}

func (s *PostgresStore) GetBusiness(ctx context.Context, id string) (*model.Business, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM businesses WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get business %s", id)
	}

	var b model.Business
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal business %s", id)
	}
	return &b, nil
}

func (s *PostgresStore) ListBusinesses(ctx context.Context, limit, offset int) ([]model.Business, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM businesses ORDER BY name LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list businesses")
	}
	defer rows.Close()

	var out []model.Business
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan business")
		}
		var b model.Business
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal business")
		}
		out = append(out, b)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list businesses")
}

func (s *PostgresStore) CreateRun(ctx context.Context, zip string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, zip, status, businesses, started_at) VALUES ($1, $2, $3, $4, $5)`,
		id, zip, string(model.RunStatusRunning), 0, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Zip:       zip,
		Status:    model.RunStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, businesses int, diag *model.Diagnostics) error {
	var diagJSON []byte
	if diag != nil {
		var err error
		diagJSON, err = json.Marshal(diag)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal diagnostics")
		}
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, businesses = $2, diagnostics = $3, finished_at = $4 WHERE id = $5`,
		string(status), businesses, diagJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, zip, status, businesses, diagnostics, started_at, finished_at FROM runs WHERE id = $1`,
		runID,
	)
	run, err := scanRun(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
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
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Zip != "" {
		args = append(args, filter.Zip)
		conds = append(conds, fmt.Sprintf("zip = $%d", len(args)))
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY started_at DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var out []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		out = append(out, *run)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list runs")
}

// scanRun reads one run row from either a pgx.Row or pgx.Rows.
func scanRun(row pgx.Row) (*model.Run, error) {
	var (
		run        model.Run
		status     string
		diagJSON   []byte
		finishedAt *time.Time
	)
	if err := row.Scan(&run.ID, &run.Zip, &status, &run.Businesses, &diagJSON, &run.StartedAt, &finishedAt); err != nil {
		return nil, err
	}
	run.Status = model.RunStatus(status)
	run.FinishedAt = finishedAt
	if len(diagJSON) > 0 {
		var diag model.Diagnostics
		if err := json.Unmarshal(diagJSON, &diag); err != nil {
			return nil, err
		}
		run.Diagnostics = &diag
	}
	return &run, nil
}
