package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Outcome of a settled submission, as recorded in the audit log.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeStale     Outcome = "stale"
)

// AssessmentLog is an anonymous record of one settled submission. It never
// carries clinical values, so nothing entered on the form outlives the session.
type AssessmentLog struct {
	ID        uuid.UUID `json:"id"`
	Outcome   Outcome   `json:"outcome"`
	Tier      RiskTier  `json:"tier,omitempty"`
	Score     float64   `json:"score"`
	LatencyMS int64     `json:"latency_ms"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditRepository defines the interface for assessment log persistence.
// The domain owns the interface; adapters live under internal/repository.
type AuditRepository interface {
	// SaveAssessmentLog persists one settled submission
	SaveAssessmentLog(ctx context.Context, entry AssessmentLog) error

	// RecentAssessmentLogs returns entries created at or after since, newest first
	RecentAssessmentLogs(ctx context.Context, since time.Time, limit int) ([]AssessmentLog, error)

	// Health checks store connectivity
	Health(ctx context.Context) error
}
