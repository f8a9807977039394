package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/cardiopredict/web/internal/domain"
	"github.com/cardiopredict/web/internal/service"
	"github.com/cardiopredict/web/pkg/logger"
)

const healthTimeout = 3 * time.Second

// Handler contains all HTTP handlers
type Handler struct {
	assessments *service.AssessmentService
	insights    *service.InsightsService
	backend     service.HealthChecker
	repo        service.AuditRepository
	sessionTTL  time.Duration
	settleWait  time.Duration
	log         zerolog.Logger
}

// NewHandler creates a new handler
func NewHandler(deps Deps) *Handler {
	return &Handler{
		assessments: deps.Assessments,
		insights:    deps.Insights,
		backend:     deps.Backend,
		repo:        deps.Audit,
		sessionTTL:  deps.SessionTTL,
		settleWait:  deps.SettleWait,
		log:         logger.New("http"),
	}
}

// HealthCheck returns service, backend and audit store health
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()

	status := "ok"
	backend := "ok"
	if err := h.backend.Health(ctx); err != nil {
		status = "degraded"
		backend = err.Error()
	}
	audit := "ok"
	if err := h.repo.Health(ctx); err != nil {
		status = "degraded"
		audit = err.Error()
	}

	return c.JSON(fiber.Map{
		"status":          status,
		"service":         "cardiopredict-web",
		"version":         Version,
		"backend":         backend,
		"audit":           audit,
		"active_sessions": h.assessments.ActiveSessions(),
	})
}

// stateView is the JSON shape of a session's lifecycle.
type stateView struct {
	domain.LifecycleState
	Risk *domain.RiskAssessment `json:"risk,omitempty"`
}

func newStateView(s domain.LifecycleState) stateView {
	v := stateView{LifecycleState: s}
	if risk, ok := s.Risk(); ok {
		v.Risk = &risk
	}
	return v
}

// GetAssessment returns the current lifecycle state of the caller's session
func (h *Handler) GetAssessment(c *fiber.Ctx) error {
	id := ensureSession(c, h.sessionTTL)
	return c.JSON(fiber.Map{
		"success": true,
		"data":    newStateView(h.assessments.Peek(id)),
	})
}

// SubmitAssessment updates form fields from a JSON body and submits them
func (h *Handler) SubmitAssessment(c *fiber.Ctx) error {
	fields, err := jsonFields(c.Body())
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	id := ensureSession(c, h.sessionTTL)
	if _, err := h.assessments.Submit(id, fields); err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.As(err, &verr):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"success": false,
				"message": "Validation failed",
				"fields":  verr.Fields,
			})
		case errors.Is(err, domain.ErrSubmissionInFlight):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"message": "An assessment is already being processed",
				"data":    newStateView(h.assessments.Peek(id)),
			})
		default:
			return err
		}
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"data":    newStateView(h.assessments.Peek(id)),
	})
}

// ResetAssessment returns the caller's session to Idle
func (h *Handler) ResetAssessment(c *fiber.Ctx) error {
	id := ensureSession(c, h.sessionTTL)
	h.assessments.Reset(id)
	return c.JSON(fiber.Map{
		"success": true,
		"data":    newStateView(h.assessments.Peek(id)),
	})
}

// GetInsights returns aggregated recent outcomes
func (h *Handler) GetInsights(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()

	data, err := h.insights.GetInsights(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to build insights")
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch insights")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// jsonFields flattens a JSON object into raw form values.
func jsonFields(body []byte) (map[string]string, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			fields[k] = ""
			continue
		}
		fields[k] = fmt.Sprint(v)
	}
	return fields, nil
}
