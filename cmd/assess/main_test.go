package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardiopredict/web/internal/domain"
)

var fullArgs = []string{
	"--age", "61", "--gender", "2", "--height", "170", "--weight", "88.5",
	"--ap-hi", "160", "--ap-lo", "100", "--cholesterol", "3", "--gluc", "2", "--smoke",
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAssessPrintsRisk(t *testing.T) {
	var got domain.PredictionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"prediction":1,"probability":[0.2,0.8],"message":"High risk of cardiovascular disease"}`))
	}))
	defer srv.Close()
	t.Setenv("CARDIO_BACKEND_URL", srv.URL)

	out, err := runCmd(t, fullArgs...)
	require.NoError(t, err)

	assert.Contains(t, out, "Risk score: 80.0%")
	assert.Contains(t, out, "Risk tier:  high")
	assert.Contains(t, out, "Backend:    High risk of cardiovascular disease")
	assert.Equal(t, 61, got.Age)
	assert.Equal(t, 88.5, got.Weight)
	assert.Equal(t, 1, got.Smoke)
	assert.Equal(t, 0, got.Active)
}

func TestAssessBackendFlagOverridesConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"probability":[0.9,0.1]}`))
	}))
	defer srv.Close()
	t.Setenv("CARDIO_BACKEND_URL", "http://127.0.0.1:1")

	out, err := runCmd(t, append(fullArgs, "--backend", srv.URL)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Risk score: 10.0%")
	assert.Contains(t, out, "Risk tier:  low")
}

func TestAssessReportsValidationErrors(t *testing.T) {
	t.Setenv("CARDIO_BACKEND_URL", "http://127.0.0.1:1")

	out, err := runCmd(t, "--age", "61")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, out, "gender is required")
	assert.NotContains(t, out, "age ")
}

func TestAssessReportsBackendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	t.Setenv("CARDIO_BACKEND_URL", srv.URL)

	out, err := runCmd(t, fullArgs...)
	require.Error(t, err)
	assert.Contains(t, out, "Analysis failed: "+domain.GenericFailureMessage)
}
