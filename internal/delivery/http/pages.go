package http

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/cardiopredict/web/internal/domain"
)

// Form values preselected before the user touches a field.
var formDefaults = map[string]string{
	domain.FieldGender:      "1",
	domain.FieldHeight:      "165",
	domain.FieldWeight:      "70",
	domain.FieldSystolicBP:  "120",
	domain.FieldDiastolicBP: "80",
	domain.FieldCholesterol: "1",
	domain.FieldGlucose:     "1",
}

var (
	heightOptions = rangeOptions(100, 250, 1)
	weightOptions = rangeOptions(30, 200, 1)
	bpOptions     = rangeOptions(50, 250, 5)
	levelOptions  = []option{
		{Value: "1", Label: "Normal"},
		{Value: "2", Label: "Above Normal"},
		{Value: "3", Label: "Well Above Normal"},
	}
)

type option struct {
	Value string
	Label string
}

func rangeOptions(start, end, step int) []option {
	opts := make([]option, 0, (end-start)/step+1)
	for i := start; i <= end; i += step {
		s := strconv.Itoa(i)
		opts = append(opts, option{Value: s, Label: s})
	}
	return opts
}

type resultRow struct {
	Label string
	Value string
	Bad   bool
}

func (h *Handler) view(title, active string, extra fiber.Map) fiber.Map {
	m := fiber.Map{
		"Title":   title,
		"Active":  active,
		"Year":    time.Now().Year(),
		"Refresh": 0,
	}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

// staticPage renders a stateless page. Leaving the assessment page discards
// the session's form, so nothing entered survives navigation.
func (h *Handler) staticPage(name, title string, extra fiber.Map) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id, ok := existingSession(c); ok {
			h.assessments.Discard(id)
		}
		return c.Render(name, h.view(title, c.Path(), extra))
	}
}

// PredictPage renders the form and the current lifecycle state
func (h *Handler) PredictPage(c *fiber.Ctx) error {
	id := ensureSession(c, h.sessionTTL)
	ctrl := h.assessments.Session(id)
	return h.renderPredict(c, ctrl.Input(), ctrl.TakeState(), nil)
}

// SubmitForm applies the posted form and starts a prediction
func (h *Handler) SubmitForm(c *fiber.Ctx) error {
	id := ensureSession(c, h.sessionTTL)

	fields := make(map[string]string, len(domain.FieldNames))
	for _, name := range domain.FieldNames {
		// unchecked boxes are absent from the body and reset to false
		fields[name] = c.FormValue(name)
	}

	done, err := h.assessments.Submit(id, fields)
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.As(err, &verr):
			ctrl := h.assessments.Session(id)
			c.Status(fiber.StatusUnprocessableEntity)
			return h.renderPredict(c, ctrl.Input(), ctrl.State(), verr.ByField())
		case errors.Is(err, domain.ErrSubmissionInFlight):
			return c.Redirect("/predict", fiber.StatusSeeOther)
		default:
			return err
		}
	}

	// Fast backends settle before the redirect so most users never see the
	// interim page; slow ones get the pending view.
	if h.settleWait > 0 {
		timer := time.NewTimer(h.settleWait)
		defer timer.Stop()
		select {
		case <-done:
		case <-timer.C:
		}
	}
	return c.Redirect("/predict", fiber.StatusSeeOther)
}

// ResetForm starts a new assessment
func (h *Handler) ResetForm(c *fiber.Ctx) error {
	if id, ok := existingSession(c); ok {
		h.assessments.Reset(id)
	}
	return c.Redirect("/predict#top", fiber.StatusSeeOther)
}

func (h *Handler) renderPredict(c *fiber.Ctx, input domain.ClinicalInput, state domain.LifecycleState, errs map[string]string) error {
	values := make(map[string]string, len(domain.FieldNames))
	for _, name := range domain.FieldNames {
		v := input.Value(name)
		if v == "" {
			v = formDefaults[name]
		}
		values[name] = v
	}
	if errs == nil {
		errs = map[string]string{}
	}

	data := fiber.Map{
		"Values":        values,
		"Errors":        errs,
		"State":         state,
		"HeightOptions": heightOptions,
		"WeightOptions": weightOptions,
		"BPOptions":     bpOptions,
		"LevelOptions":  levelOptions,
		"Failure":       state.Message,
	}

	if risk, ok := state.Risk(); ok {
		headline, summary := verdict(risk)
		data["Risk"] = &risk
		data["Headline"] = headline
		data["Summary"] = summary
		data["Rows"] = resultRows(*state.Result, risk)
		data["BackendMessage"] = state.Result.Message
	}

	view := h.view("Assessment", "/predict", data)
	if state.Pending() {
		view["Refresh"] = 1
	}
	return c.Render("predict", view)
}

func verdict(risk domain.RiskAssessment) (string, string) {
	switch risk.Tier {
	case domain.TierHigh:
		return "High Risk Detected", "Patient markers indicate a high probability of cardiovascular events. Clinical follow-up is strongly advised."
	case domain.TierElevated:
		return "Elevated Risk Detected", "Patient markers indicate a statistically significant probability of cardiovascular events."
	default:
		return "Optimal Health Profile", "No significant risk factors detected based on current clinical inputs."
	}
}

// resultRows builds the display rows from fields the backend echoed back.
func resultRows(result domain.PredictionResult, risk domain.RiskAssessment) []resultRow {
	bp := resultRow{Label: "Systolic BP", Value: "Normal", Bad: risk.Risky()}
	if result.SystolicBP != nil {
		bp.Value = strconv.Itoa(*result.SystolicBP)
	}

	bmi := resultRow{Label: "BMI Index", Value: "-"}
	if result.BMI != nil {
		bmi.Value = fmt.Sprintf("%.1f", *result.BMI)
		bmi.Bad = *result.BMI > 25
	}

	age := resultRow{Label: "Age Group", Value: "-"}
	if result.Age != nil {
		age.Value = strconv.Itoa(*result.Age)
		age.Bad = *result.Age > 60
	}

	return []resultRow{bp, bmi, age}
}
