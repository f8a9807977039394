package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cardiopredict/web/internal/domain"
	"github.com/cardiopredict/web/internal/metrics"
	"github.com/cardiopredict/web/pkg/logger"
	"github.com/cardiopredict/web/pkg/utils"
)

// AssessmentService wires per-session controllers to the prediction
// client, the audit log and metrics.
type AssessmentService struct {
	sessions *SessionRegistry
	repo     AuditRepository
	metrics  *metrics.Recorder
	log      zerolog.Logger

	wgBg sync.WaitGroup // in-flight predictions and audit writes, for graceful shutdown
}

// NewAssessmentService creates the service. sessionTTL bounds how long an
// idle session keeps its form state.
func NewAssessmentService(predictor Predictor, repo AuditRepository, rec *metrics.Recorder, sessionTTL time.Duration) *AssessmentService {
	s := &AssessmentService{
		repo:    repo,
		metrics: rec,
		log:     logger.New("assessment"),
	}
	s.sessions = NewSessionRegistry(sessionTTL, func() *Controller {
		return NewController(predictor, WithLogger(s.log), WithSettleHook(s.record))
	})
	s.sessions.OnChange(rec.SetActiveSessions)
	return s
}

// Session returns the controller for a session id, creating it if needed.
func (s *AssessmentService) Session(id string) *Controller {
	return s.sessions.Controller(id)
}

// Peek returns the session state without creating a session.
func (s *AssessmentService) Peek(id string) domain.LifecycleState {
	if ctrl, ok := s.sessions.Lookup(id); ok {
		return ctrl.State()
	}
	return domain.LifecycleState{Phase: domain.PhaseIdle}
}

// Discard drops a session's form and lifecycle state.
func (s *AssessmentService) Discard(id string) {
	s.sessions.Discard(id)
}

// Submit applies the raw field values to a copy of the session's form and
// submits it. The form is only replaced once the submission is accepted.
// The prediction runs detached from the caller's request so a closed
// browser connection does not abort it.
func (s *AssessmentService) Submit(id string, fields map[string]string) (<-chan domain.LifecycleState, error) {
	ctrl := s.Session(id)
	input := ctrl.Input()
	for name, value := range fields {
		if !input.Set(name, value) {
			s.log.Debug().Str("field", name).Msg("ignoring unknown form field")
		}
	}

	// Counted before the prediction starts so its audit write is awaited too
	s.wgBg.Add(1)
	done, err := ctrl.SubmitAsync(context.Background(), input)
	if err != nil {
		s.wgBg.Done()
		s.metrics.Rejected(err)
		return nil, err
	}

	settled := make(chan domain.LifecycleState, 1)
	go func() {
		defer s.wgBg.Done()
		defer close(settled)
		if state, ok := <-done; ok {
			settled <- state
		}
	}()
	return settled, nil
}

// Reset returns the session to Idle.
func (s *AssessmentService) Reset(id string) {
	if ctrl, ok := s.sessions.Lookup(id); ok {
		ctrl.Reset()
	}
}

// RunSweeper expires idle sessions until ctx is cancelled.
func (s *AssessmentService) RunSweeper(ctx context.Context, interval time.Duration) {
	s.sessions.Run(ctx, interval)
}

// ActiveSessions returns the number of sessions held in memory.
func (s *AssessmentService) ActiveSessions() int {
	return s.sessions.Len()
}

// WaitBackground blocks until in-flight predictions settle and their audit
// writes complete. Call after the HTTP server has stopped accepting requests.
func (s *AssessmentService) WaitBackground() {
	s.wgBg.Wait()
}

func (s *AssessmentService) record(st Settlement) {
	s.metrics.Settled(st.Outcome, st.Risk.Tier, st.Latency)

	entry := domain.AssessmentLog{
		ID:        uuid.New(),
		Outcome:   st.Outcome,
		Tier:      st.Risk.Tier,
		Score:     utils.RoundTo(st.Risk.Score, 2),
		LatencyMS: st.Latency.Milliseconds(),
		CreatedAt: time.Now().UTC(),
	}

	s.wgBg.Add(1)
	go func() {
		defer s.wgBg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.SaveAssessmentLog(ctx, entry); err != nil {
			s.log.Warn().Err(err).Msg("failed to save assessment log")
		}
	}()
}
