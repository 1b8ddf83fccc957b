package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stoik/taskbridge/services/importer/internal/migration"
)

// Schema of the run history table
const Schema = `
	CREATE TABLE IF NOT EXISTS import_runs (
	    id UUID PRIMARY KEY,
	    source VARCHAR(32) NOT NULL,
	    team_id VARCHAR(64) NOT NULL,
	    started_at TIMESTAMP WITH TIME ZONE NOT NULL,
	    finished_at TIMESTAMP WITH TIME ZONE NOT NULL,
	    created JSONB NOT NULL,
	    reused JSONB NOT NULL,
	    failures INTEGER NOT NULL,
	    error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_import_runs_team_started ON import_runs(team_id, started_at);
`

// Run is one row of import_runs
type Run struct {
	ID         uuid.UUID
	Source     string
	TeamID     string
	StartedAt  time.Time
	FinishedAt time.Time
	Created    map[string]int
	Reused     map[string]int
	Failures   int
	Error      string
}

func newRun(result *migration.Result) Run {
	run := Run{
		ID:         uuid.Nil,
		Source:     result.Source,
		TeamID:     result.TeamID,
		StartedAt:  result.Started,
		FinishedAt: result.Finished,
		Created:    make(map[string]int, len(result.Created)),
		Reused:     make(map[string]int, len(result.Reused)),
		Failures:   result.Failures,
	}
	if id, err := uuid.Parse(result.RunID); err == nil {
		run.ID = id
	}
	for kind, n := range result.Created {
		run.Created[string(kind)] = n
	}
	for kind, n := range result.Reused {
		run.Reused[string(kind)] = n
	}
	if result.Err != nil {
		run.Error = result.Err.Error()
	}
	return run
}

// Open connects to Postgres and verifies the connection
func Open(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	if connString == "" {
		return nil, fmt.Errorf("report.database_url not configured")
	}
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// PostgresSink stores run summaries in the import_runs table
type PostgresSink struct {
	pool *pgxpool.Pool
}

func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{pool: pool}
}

// Migrate creates the import_runs table when missing
func (s *PostgresSink) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *PostgresSink) Write(ctx context.Context, result *migration.Result) error {
	row := newRun(result)
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	created, err := json.Marshal(row.Created)
	if err != nil {
		return fmt.Errorf("failed to encode created counts: %w", err)
	}
	reused, err := json.Marshal(row.Reused)
	if err != nil {
		return fmt.Errorf("failed to encode reused counts: %w", err)
	}

	var errText *string
	if row.Error != "" {
		errText = &row.Error
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO import_runs (id, source, team_id, started_at, finished_at, created, reused, failures, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`, row.ID, row.Source, row.TeamID, row.StartedAt, row.FinishedAt, created, reused, row.Failures, errText)
	if err != nil {
		return fmt.Errorf("failed to insert import run: %w", err)
	}
	return nil
}

// Recent returns the latest runs of a team, newest first
func (s *PostgresSink) Recent(ctx context.Context, teamID string, limit int) ([]Run, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, source, team_id, started_at, finished_at, created, reused, failures, COALESCE(error, '')
		FROM import_runs
		WHERE team_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`, teamID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query import runs: %w", err)
	}

	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Run, error) {
		var r Run
		var created, reused []byte
		if err := row.Scan(&r.ID, &r.Source, &r.TeamID, &r.StartedAt, &r.FinishedAt, &created, &reused, &r.Failures, &r.Error); err != nil {
			return r, err
		}
		if err := json.Unmarshal(created, &r.Created); err != nil {
			return r, fmt.Errorf("failed to decode created counts: %w", err)
		}
		if err := json.Unmarshal(reused, &r.Reused); err != nil {
			return r, fmt.Errorf("failed to decode reused counts: %w", err)
		}
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read import runs: %w", err)
	}
	return runs, nil
}
