package http

import (
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardiopredict/web/internal/metrics"
	"github.com/cardiopredict/web/internal/repository/postgres"
	"github.com/cardiopredict/web/internal/service"
)

type testEnv struct {
	app     *fiber.App
	backend *httptest.Server
	hits    atomic.Int32
	audit   *postgres.MemoryRepository
}

func newTestEnv(t *testing.T, settleWait time.Duration, backend nethttp.HandlerFunc) *testEnv {
	t.Helper()
	env := &testEnv{audit: postgres.NewMemoryRepository(50)}

	env.backend = httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.URL.Path == "/predict" {
			env.hits.Add(1)
		}
		backend(w, r)
	}))
	t.Cleanup(env.backend.Close)

	rec := metrics.New()
	predictor := service.NewPredictionClient(env.backend.URL, "/", 2*time.Second)
	assessments := service.NewAssessmentService(predictor, env.audit, rec, time.Hour)
	env.app = NewApp(Deps{
		Assessments:     assessments,
		Insights:        service.NewInsightsService(predictor, env.audit, time.Hour),
		Backend:         predictor,
		Audit:           env.audit,
		Metrics:         rec,
		SessionTTL:      time.Hour,
		SettleWait:      settleWait,
		ShowErrorDetail: true,
	})
	return env
}

func respondJSON(body string) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}
}

func validForm() url.Values {
	return url.Values{
		"age": {"50"}, "gender": {"2"}, "height": {"168"}, "weight": {"62"},
		"ap_hi": {"150"}, "ap_lo": {"95"}, "cholesterol": {"3"}, "gluc": {"1"},
		"smoke": {"on"},
	}
}

func (e *testEnv) do(t *testing.T, req *nethttp.Request, cookies ...*nethttp.Cookie) (*nethttp.Response, string) {
	t.Helper()
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (e *testEnv) get(t *testing.T, path string, cookies ...*nethttp.Cookie) (*nethttp.Response, string) {
	return e.do(t, httptest.NewRequest(nethttp.MethodGet, path, nil), cookies...)
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values, cookies ...*nethttp.Cookie) (*nethttp.Response, string) {
	req := httptest.NewRequest(nethttp.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
	return e.do(t, req, cookies...)
}

func (e *testEnv) postJSON(t *testing.T, path, body string, cookies ...*nethttp.Cookie) (*nethttp.Response, string) {
	req := httptest.NewRequest(nethttp.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	return e.do(t, req, cookies...)
}

func sessionCookie(t *testing.T, resp *nethttp.Response) *nethttp.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	t.Fatalf("response carries no %s cookie", SessionCookie)
	return nil
}

func TestStaticPagesRender(t *testing.T) {
	env := newTestEnv(t, 0, respondJSON(`{}`))

	cases := map[string]string{
		"/":           "Predictive",
		"/about":      "About This Project",
		"/disclaimer": "Legal &amp; Medical Disclaimer",
	}
	for path, marker := range cases {
		resp, body := env.get(t, path)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, path)
		assert.Contains(t, body, marker, path)
		assert.Contains(t, body, "CardioPredict. All rights reserved.", path)
	}

	_, about := env.get(t, "/about")
	assert.Contains(t, about, "Scores above 50")
	assert.Contains(t, about, `href="/about" class="active"`)
}

func TestPredictPageStartsIdle(t *testing.T) {
	env := newTestEnv(t, 0, respondJSON(`{}`))

	resp, body := env.get(t, "/predict")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotNil(t, sessionCookie(t, resp))
	assert.Contains(t, body, "Ready to Analyze")
	assert.Contains(t, body, `<option value="165" selected>`)
	assert.NotContains(t, body, "disabled>Processing")
}

func TestSubmitFormShowsInlineValidation(t *testing.T) {
	env := newTestEnv(t, 0, respondJSON(`{}`))

	form := validForm()
	form.Del("age")
	form.Set("weight", "heavy")
	resp, body := env.postForm(t, "/predict", form)

	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Age is required")
	assert.Contains(t, body, "Weight (kg) must be a number")
	assert.Equal(t, int32(0), env.hits.Load())
}

func TestSubmitFormRendersResult(t *testing.T) {
	env := newTestEnv(t, 2*time.Second, respondJSON(`{"prediction":1,"probability":[0.2,0.8],"bmi":21.97,"message":"High risk of cardiovascular disease"}`))

	resp, _ := env.postForm(t, "/predict", validForm())
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/predict", resp.Header.Get("Location"))
	cookie := sessionCookie(t, resp)

	_, body := env.get(t, "/predict", cookie)
	assert.Contains(t, body, "80.0%")
	assert.Contains(t, body, "High Risk Detected")
	assert.Contains(t, body, "22.0")
	assert.Contains(t, body, "New Assessment")
	assert.Contains(t, body, "window.scrollTo")
	_, again := env.get(t, "/predict", cookie)
	assert.Contains(t, again, "80.0%")
	assert.NotContains(t, again, "window.scrollTo")
	// form keeps what was entered
	assert.Contains(t, body, `placeholder="e.g. 55" value="50"`)
	assert.Contains(t, body, `<option value="150" selected>`)

	require.Eventually(t, func() bool { return env.audit.Len() == 1 }, time.Second, 10*time.Millisecond)
}

func TestSessionsKeepTheirOwnFormValues(t *testing.T) {
	env := newTestEnv(t, 2*time.Second, respondJSON(`{"probability":[0.6,0.4]}`))

	resp, _ := env.postForm(t, "/predict", validForm())
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	first := sessionCookie(t, resp)

	other := validForm()
	other.Set("age", "77")
	other.Set("height", "199")
	for i := 0; i < 5; i++ {
		resp, _ := env.postForm(t, "/predict", other)
		require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	}

	_, body := env.get(t, "/predict", first)
	assert.Contains(t, body, `placeholder="e.g. 55" value="50"`)
	assert.Contains(t, body, `<option value="168" selected>`)
	assert.NotContains(t, body, `placeholder="e.g. 55" value="77"`)
	assert.NotContains(t, body, `<option value="199" selected>`)
}

func TestSubmitFormBackendFailure(t *testing.T) {
	env := newTestEnv(t, 2*time.Second, func(w nethttp.ResponseWriter, r *nethttp.Request) {
		nethttp.Error(w, `{"detail":"Model not loaded"}`, nethttp.StatusServiceUnavailable)
	})

	resp, _ := env.postForm(t, "/predict", validForm())
	cookie := sessionCookie(t, resp)

	_, body := env.get(t, "/predict", cookie)
	assert.Contains(t, body, "Analysis Failed")
	assert.Contains(t, body, "failed to get prediction; ensure the backend is running")
	assert.NotContains(t, body, "Model not loaded")
	assert.NotContains(t, body, "503")
}

func TestPendingViewAndDoubleSubmit(t *testing.T) {
	release := make(chan struct{})
	env := newTestEnv(t, 0, func(w nethttp.ResponseWriter, r *nethttp.Request) {
		<-release
		respondJSON(`{"probability":[0.45,0.55]}`)(w, r)
	})
	released := false
	defer func() {
		if !released {
			close(release)
		}
	}()

	resp, _ := env.postForm(t, "/predict", validForm())
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	cookie := sessionCookie(t, resp)

	_, body := env.get(t, "/predict", cookie)
	assert.Contains(t, body, "Processing Clinical Data...")
	assert.Contains(t, body, `http-equiv="refresh"`)

	resp, _ = env.postForm(t, "/predict", validForm(), cookie)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)

	close(release)
	released = true

	require.Eventually(t, func() bool {
		_, body := env.get(t, "/api/v1/assessment", cookie)
		return strings.Contains(body, `"phase":"succeeded"`)
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), env.hits.Load())

	_, body = env.get(t, "/predict", cookie)
	assert.Contains(t, body, "55.0%")
	assert.Contains(t, body, "Elevated Risk Detected")
}

func TestResetAndNavigationClearState(t *testing.T) {
	env := newTestEnv(t, 2*time.Second, respondJSON(`{"probability":[0.9,0.1]}`))

	resp, _ := env.postForm(t, "/predict", validForm())
	cookie := sessionCookie(t, resp)
	_, body := env.get(t, "/predict", cookie)
	require.Contains(t, body, "10.0%")

	resp, _ = env.postForm(t, "/predict/reset", url.Values{}, cookie)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	_, body = env.get(t, "/predict", cookie)
	assert.Contains(t, body, "Ready to Analyze")
	assert.Contains(t, body, `placeholder="e.g. 55" value="50"`)

	env.get(t, "/disclaimer", cookie)
	_, body = env.get(t, "/predict", cookie)
	assert.Contains(t, body, "Ready to Analyze")
	assert.NotContains(t, body, `placeholder="e.g. 55" value="50"`)
}

func TestAssessmentAPI(t *testing.T) {
	env := newTestEnv(t, 0, respondJSON(`{"probability":[0.88,0.12],"age":50}`))

	resp, body := env.postJSON(t, "/api/v1/assessment", `{"age":50,"gender":1,"height":168,"weight":62.5,"ap_hi":110,"ap_lo":80,"cholesterol":1,"gluc":1,"smoke":false,"alco":false,"active":true}`)
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode, body)
	cookie := sessionCookie(t, resp)

	var payload struct {
		Success bool `json:"success"`
		Data    struct {
			Phase string `json:"phase"`
			Risk  *struct {
				Score float64 `json:"score"`
				Tier  string  `json:"tier"`
			} `json:"risk"`
		} `json:"data"`
	}
	require.Eventually(t, func() bool {
		_, body := env.get(t, "/api/v1/assessment", cookie)
		if err := json.Unmarshal([]byte(body), &payload); err != nil {
			return false
		}
		return payload.Data.Phase == "succeeded"
	}, 2*time.Second, 10*time.Millisecond)

	require.NotNil(t, payload.Data.Risk)
	assert.InDelta(t, 12.0, payload.Data.Risk.Score, 1e-9)
	assert.Equal(t, "low", payload.Data.Risk.Tier)

	req := httptest.NewRequest(nethttp.MethodDelete, "/api/v1/assessment", nil)
	resp, body = env.do(t, req, cookie)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"phase":"idle"`)
}

func TestAssessmentAPIValidation(t *testing.T) {
	env := newTestEnv(t, 0, respondJSON(`{}`))

	resp, body := env.postJSON(t, "/api/v1/assessment", `{"age":50}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, `"field":"gender"`)

	resp, _ = env.postJSON(t, "/api/v1/assessment", `not json`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHealthMetricsAndInsights(t *testing.T) {
	env := newTestEnv(t, 0, respondJSON(`{"message":"running"}`))

	resp, body := env.get(t, "/health")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"status":"ok"`)

	_, body = env.get(t, "/metrics")
	assert.Contains(t, body, "cardio_sessions_active")

	resp, body = env.get(t, "/api/v1/insights")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"backend_healthy":true`)

	resp, _ = env.get(t, "/static/site.css")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestErrorBoundary(t *testing.T) {
	env := newTestEnv(t, 0, respondJSON(`{}`))
	env.app.Get("/boom", func(c *fiber.Ctx) error {
		panic("template exploded")
	})

	resp, body := env.get(t, "/boom")
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, "Something went wrong.")
	assert.Contains(t, body, "template exploded")
	assert.Contains(t, body, "Reload Page")

	req := httptest.NewRequest(nethttp.MethodGet, "/boom", nil)
	req.Header.Set("Accept", fiber.MIMEApplicationJSON)
	resp, body = env.do(t, req)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"error":true,"message":"Internal Server Error"}`, body)

	resp, body = env.get(t, "/api/v1/missing")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, `"error":true`)
}
