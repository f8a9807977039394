package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// GenericFailureMessage is the only failure text shown to end users.
const GenericFailureMessage = "failed to get prediction; ensure the backend is running"

// ErrSubmissionInFlight is returned when a submission arrives while another
// one is still pending for the same controller.
var ErrSubmissionInFlight = errors.New("assessment: submission already in flight")

// FieldError describes one rejected form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field that blocked a submission.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return "validation: " + strings.Join(parts, "; ")
}

// ByField indexes the messages by field name for inline rendering.
func (e *ValidationError) ByField() map[string]string {
	out := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		out[f.Field] = f.Message
	}
	return out
}

func (e *ValidationError) sort() {
	order := make(map[string]int, len(FieldNames))
	for i, name := range FieldNames {
		order[name] = i
	}
	sort.SliceStable(e.Fields, func(i, j int) bool {
		return order[e.Fields[i].Field] < order[e.Fields[j].Field]
	})
}

// TransportError covers every way the prediction call can fail: network,
// timeout, non-2xx status, or an unreadable body.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("predictor: %s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("predictor: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
