package lifecycle

import "github.com/ZanzyTHEbar/repolens/internal/payload"

// Phase names the active variant of a ViewState
type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseError   Phase = "error"
	PhaseReady   Phase = "ready"
)

// ViewState is what a results screen currently shows. Exactly one phase is
// active: Message is set only for PhaseError, Payload only for PhaseReady.
type ViewState struct {
	Phase      Phase
	Identifier string
	Message    string
	Payload    *payload.AnalysisPayload
}

// Loading is the state while the analysis of identifier is in flight
func Loading(identifier string) ViewState {
	return ViewState{Phase: PhaseLoading, Identifier: identifier}
}

// Failed is the terminal state of an unsuccessful analysis
func Failed(identifier, message string) ViewState {
	return ViewState{Phase: PhaseError, Identifier: identifier, Message: message}
}

// Ready is the terminal state of a successful analysis
func Ready(identifier string, p *payload.AnalysisPayload) ViewState {
	return ViewState{Phase: PhaseReady, Identifier: identifier, Payload: p}
}

// Resolved reports whether the state is Error or Ready
func (s ViewState) Resolved() bool {
	return s.Phase != PhaseLoading
}
