package service

import (
	"context"
	"errors"

	"github.com/stretchr/testify/mock"

	"github.com/cardiopredict/web/internal/domain"
)

// MockPredictor records calls through testify/mock.
type MockPredictor struct {
	mock.Mock
}

func (m *MockPredictor) Predict(ctx context.Context, req domain.PredictionRequest) (domain.PredictionResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.PredictionResult), args.Error(1)
}

// gatedPredictor blocks every call until the test answers it.
type gatedPredictor struct {
	started chan gatedCall
}

type gatedCall struct {
	req   domain.PredictionRequest
	reply chan gatedReply
}

type gatedReply struct {
	result domain.PredictionResult
	err    error
}

func newGatedPredictor() *gatedPredictor {
	return &gatedPredictor{started: make(chan gatedCall, 8)}
}

func (g *gatedPredictor) Predict(ctx context.Context, req domain.PredictionRequest) (domain.PredictionResult, error) {
	call := gatedCall{req: req, reply: make(chan gatedReply, 1)}
	g.started <- call
	select {
	case r := <-call.reply:
		return r.result, r.err
	case <-ctx.Done():
		return domain.PredictionResult{}, ctx.Err()
	}
}

type panickingPredictor struct{}

func (panickingPredictor) Predict(context.Context, domain.PredictionRequest) (domain.PredictionResult, error) {
	panic("boom")
}

var errConnRefused = errors.New("dial tcp 127.0.0.1:8000: connect: connection refused")

func validInput() domain.ClinicalInput {
	return domain.ClinicalInput{
		Age:         "50",
		Gender:      "1",
		Height:      "168",
		Weight:      "62",
		SystolicBP:  "110",
		DiastolicBP: "80",
		Cholesterol: "1",
		Glucose:     "1",
		Smoker:      true,
	}
}
