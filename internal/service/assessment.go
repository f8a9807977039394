package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cardiopredict/web/internal/domain"
	"github.com/cardiopredict/web/pkg/logger"
)

// Settlement describes how one submission ended. It is handed to the
// settle hook after the controller lock is released.
type Settlement struct {
	Token   uint64
	Outcome domain.Outcome
	Risk    domain.RiskAssessment
	Latency time.Duration
	Err     error
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l zerolog.Logger) ControllerOption {
	return func(c *Controller) { c.log = l }
}

// WithSettleHook registers a callback run once per settled submission.
func WithSettleHook(fn func(Settlement)) ControllerOption {
	return func(c *Controller) { c.onSettle = fn }
}

// Controller mediates between raw form input and the prediction service
// for a single browser session. At most one prediction is in flight per
// controller; responses that arrive after a newer submission or a reset
// are discarded using the generation token.
type Controller struct {
	predictor Predictor
	log       zerolog.Logger
	onSettle  func(Settlement)

	mu    sync.Mutex
	input domain.ClinicalInput
	state domain.LifecycleState
	token uint64
}

// NewController creates an idle controller with an empty form.
func NewController(p Predictor, opts ...ControllerOption) *Controller {
	c := &Controller{
		predictor: p,
		log:       logger.New("assessment"),
		state:     domain.LifecycleState{Phase: domain.PhaseIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UpdateField sets one form field. Unknown names are ignored.
func (c *Controller) UpdateField(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.input.Set(name, value) {
		c.log.Debug().Str("field", name).Msg("ignoring unknown form field")
	}
}

// Input returns a copy of the current form values.
func (c *Controller) Input() domain.ClinicalInput {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// State returns a snapshot of the lifecycle.
func (c *Controller) State() domain.LifecycleState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SubmitAsync stores and validates the input, moves the controller to
// Pending and starts the prediction call in the background. The returned
// channel yields the state the submission settled into and is then closed.
//
// While Pending it returns domain.ErrSubmissionInFlight without issuing a
// request or touching the stored form. Invalid input is kept for
// redisplay, returns a *domain.ValidationError and leaves the lifecycle
// untouched.
func (c *Controller) SubmitAsync(ctx context.Context, input domain.ClinicalInput) (<-chan domain.LifecycleState, error) {
	c.mu.Lock()
	if c.state.Phase == domain.PhasePending {
		c.mu.Unlock()
		return nil, domain.ErrSubmissionInFlight
	}
	c.input = input
	if err := input.Validate(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.token++
	token := c.token
	c.state = domain.LifecycleState{Phase: domain.PhasePending, Token: token}
	c.mu.Unlock()

	req := input.Normalize()
	done := make(chan domain.LifecycleState, 1)
	go func() {
		defer close(done)
		done <- c.run(ctx, token, req)
	}()
	return done, nil
}

// TakeState returns the state for a page render and clears the scroll
// hint, so only the first view of a fresh result jumps to the top.
func (c *Controller) TakeState() domain.LifecycleState {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	c.state.ScrollTop = false
	return s
}

// Submit is SubmitAsync followed by waiting for the settled state.
func (c *Controller) Submit(ctx context.Context, input domain.ClinicalInput) (domain.LifecycleState, error) {
	done, err := c.SubmitAsync(ctx, input)
	if err != nil {
		return c.State(), err
	}
	return <-done, nil
}

// Reset returns to Idle and drops any held result. An in-flight request is
// not cancelled; its response will be discarded as stale.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token++
	c.state = domain.LifecycleState{Phase: domain.PhaseIdle, Token: c.token}
}

func (c *Controller) run(ctx context.Context, token uint64, req domain.PredictionRequest) domain.LifecycleState {
	start := time.Now()
	result, err := c.predict(ctx, req)
	latency := time.Since(start)

	c.mu.Lock()
	if token != c.token {
		current := c.state
		c.mu.Unlock()

		c.log.Debug().Uint64("token", token).Uint64("current", current.Token).Msg("discarding stale prediction response")
		c.settled(Settlement{Token: token, Outcome: domain.OutcomeStale, Latency: latency, Err: err})
		return current
	}

	s := Settlement{Token: token, Latency: latency, Err: err}
	if err != nil {
		c.state = domain.LifecycleState{Phase: domain.PhaseFailed, Token: token, Message: domain.GenericFailureMessage}
		s.Outcome = domain.OutcomeFailed
	} else {
		c.state = domain.LifecycleState{Phase: domain.PhaseSucceeded, Token: token, Result: &result, ScrollTop: true}
		s.Outcome = domain.OutcomeSucceeded
		s.Risk = domain.DeriveRiskTier(result)
	}
	settled := c.state
	c.mu.Unlock()

	if err != nil {
		c.log.Error().Err(err).Uint64("token", token).Dur("latency", latency).Msg("prediction failed")
	} else {
		c.log.Info().Uint64("token", token).Str("tier", string(s.Risk.Tier)).Dur("latency", latency).Msg("prediction settled")
	}
	c.settled(s)
	return settled
}

// predict shields the lifecycle from a panicking Predictor so the
// controller can never be left Pending.
func (c *Controller) predict(ctx context.Context, req domain.PredictionRequest) (result domain.PredictionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("assessment: predictor panicked: %v", r)
		}
	}()
	return c.predictor.Predict(ctx, req)
}

func (c *Controller) settled(s Settlement) {
	if c.onSettle != nil {
		c.onSettle(s)
	}
}
