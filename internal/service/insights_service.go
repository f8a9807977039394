package service

import (
	"context"
	"fmt"
	"time"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"github.com/cardiopredict/web/internal/domain"
	"github.com/cardiopredict/web/pkg/utils"
)

const insightsLimit = 500

// HealthChecker is anything that can report backend reachability.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Insights summarizes recent assessment outcomes for operators. It is
// computed from the anonymous audit log only.
type Insights struct {
	Window         string                  `json:"window"`
	BackendHealthy bool                    `json:"backend_healthy"`
	BackendError   string                  `json:"backend_error,omitempty"`
	Total          int                     `json:"total"`
	ByOutcome      map[domain.Outcome]int  `json:"by_outcome"`
	ByTier         map[domain.RiskTier]int `json:"by_tier"`
	SuccessRate    float64                 `json:"success_rate"`
	MeanScore      float64                 `json:"mean_score"`
	MedianScore    float64                 `json:"median_score"`
	P90Score       float64                 `json:"p90_score"`
	MeanLatencyMS  float64                 `json:"mean_latency_ms"`
	Timestamp      time.Time               `json:"timestamp"`
}

// InsightsService aggregates the audit log and backend health
type InsightsService struct {
	backend HealthChecker
	repo    AuditRepository
	window  time.Duration
}

// NewInsightsService creates a new insights service
func NewInsightsService(backend HealthChecker, repo AuditRepository, window time.Duration) *InsightsService {
	return &InsightsService{
		backend: backend,
		repo:    repo,
		window:  window,
	}
}

// GetInsights fetches backend health and recent logs concurrently
func (s *InsightsService) GetInsights(ctx context.Context) (Insights, error) {
	var (
		logs      []domain.AssessmentLog
		healthErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// backend failure is reported, not fatal
		healthErr = s.backend.Health(gctx)
		return nil
	})
	g.Go(func() error {
		var err error
		logs, err = s.repo.RecentAssessmentLogs(gctx, time.Now().Add(-s.window), insightsLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return Insights{}, fmt.Errorf("insights: failed to load assessment logs: %w", err)
	}

	out := Summarize(logs)
	out.Window = s.window.String()
	out.BackendHealthy = healthErr == nil
	if healthErr != nil {
		out.BackendError = healthErr.Error()
	}
	return out, nil
}

// Summarize computes counts and score statistics over logs.
func Summarize(logs []domain.AssessmentLog) Insights {
	out := Insights{
		Total:     len(logs),
		ByOutcome: make(map[domain.Outcome]int),
		ByTier:    make(map[domain.RiskTier]int),
		Timestamp: time.Now().UTC(),
	}

	var scores, latencies stats.Float64Data
	for _, e := range logs {
		out.ByOutcome[e.Outcome]++
		if e.Outcome != domain.OutcomeSucceeded {
			if e.Outcome == domain.OutcomeFailed {
				latencies = append(latencies, float64(e.LatencyMS))
			}
			continue
		}
		out.ByTier[e.Tier]++
		scores = append(scores, e.Score)
		latencies = append(latencies, float64(e.LatencyMS))
	}

	settled := out.ByOutcome[domain.OutcomeSucceeded] + out.ByOutcome[domain.OutcomeFailed]
	out.SuccessRate = utils.RoundTo(utils.Ratio(out.ByOutcome[domain.OutcomeSucceeded], settled), 4)

	out.MeanScore = statOrZero(scores.Mean)
	out.MedianScore = statOrZero(scores.Median)
	out.P90Score = statOrZero(func() (float64, error) { return scores.Percentile(90) })
	out.MeanLatencyMS = statOrZero(latencies.Mean)
	return out
}

func statOrZero(fn func() (float64, error)) float64 {
	v, err := fn()
	if err != nil {
		// empty input or too few samples for the percentile
		return 0
	}
	return utils.RoundTo(v, 2)
}
