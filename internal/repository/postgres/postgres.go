package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardiopredict/web/internal/domain"
)

const schema = `
	CREATE TABLE IF NOT EXISTS assessment_log (
		id          UUID PRIMARY KEY,
		outcome     TEXT NOT NULL,
		tier        TEXT NOT NULL DEFAULT '',
		score       DOUBLE PRECISION NOT NULL DEFAULT 0,
		latency_ms  BIGINT NOT NULL DEFAULT 0,
		created_at  TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS assessment_log_created_at_idx ON assessment_log (created_at DESC);
`

// PostgresRepository implements domain.AuditRepository
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Migrate creates the audit table if it does not exist
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: failed to migrate: %w", err)
	}
	return nil
}

// SaveAssessmentLog persists one settled submission
func (r *PostgresRepository) SaveAssessmentLog(ctx context.Context, entry domain.AssessmentLog) error {
	query := `
		INSERT INTO assessment_log (id, outcome, tier, score, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		entry.ID, string(entry.Outcome), string(entry.Tier), entry.Score, entry.LatencyMS, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save assessment log: %w", err)
	}

	return nil
}

// RecentAssessmentLogs retrieves entries newer than since, newest first
func (r *PostgresRepository) RecentAssessmentLogs(ctx context.Context, since time.Time, limit int) ([]domain.AssessmentLog, error) {
	query := `
		SELECT id, outcome, tier, score, latency_ms, created_at
		FROM assessment_log
		WHERE created_at >= $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query assessment logs: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.AssessmentLog, error) {
		var (
			e       domain.AssessmentLog
			outcome string
			tier    string
		)
		if err := row.Scan(&e.ID, &outcome, &tier, &e.Score, &e.LatencyMS, &e.CreatedAt); err != nil {
			return e, err
		}
		e.Outcome = domain.Outcome(outcome)
		e.Tier = domain.RiskTier(tier)
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to scan assessment logs: %w", err)
	}

	return results, nil
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: ping failed: %w", err)
	}
	return nil
}
