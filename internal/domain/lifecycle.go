package domain

// Phase enumerates the request lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePending
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePending:
		return "pending"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText lets phases render as words in JSON.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// LifecycleState is a snapshot of a controller. Result is set only when
// Phase is PhaseSucceeded and Message only when Phase is PhaseFailed.
type LifecycleState struct {
	Phase   Phase             `json:"phase"`
	Token   uint64            `json:"token"`
	Result  *PredictionResult `json:"result,omitempty"`
	Message string            `json:"message,omitempty"`
	// ScrollTop asks the view to jump back to the top after a fresh result.
	ScrollTop bool `json:"scroll_top,omitempty"`
}

// Pending reports whether a submission is outstanding.
func (s LifecycleState) Pending() bool {
	return s.Phase == PhasePending
}

// Risk derives the display tier for a succeeded state.
func (s LifecycleState) Risk() (RiskAssessment, bool) {
	if s.Phase != PhaseSucceeded || s.Result == nil {
		return RiskAssessment{}, false
	}
	return DeriveRiskTier(*s.Result), true
}
