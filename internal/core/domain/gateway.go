package domain

// Stage is a state of the per-request action gateway state machine.
type Stage string

const (
	StageStart         Stage = "start"
	StageCSRFChecked   Stage = "csrf_checked"
	StageAuthenticated Stage = "authenticated"
	StageAuthorized    Stage = "authorized"
	StageDone          Stage = "done"
	StageRejected      Stage = "rejected"
)

// RejectReason explains why a request ended in StageRejected.
type RejectReason string

const (
	ReasonNone              RejectReason = ""
	ReasonCSRFFailed        RejectReason = "csrf_failed"
	ReasonNotAuthenticated  RejectReason = "not_authenticated"
	ReasonNotAuthorized     RejectReason = "not_authorized"
	ReasonPolicyEngineError RejectReason = "policy_engine_error"
	ReasonInvalidInput      RejectReason = "invalid_input"
	ReasonInternalError     RejectReason = "internal_error"
)

// validTransitions defines the forward edges of the gateway state machine.
// Every non-terminal stage may also move to StageRejected.
var validTransitions = map[Stage][]Stage{
	StageStart:         {StageCSRFChecked},
	StageCSRFChecked:   {StageAuthenticated},
	StageAuthenticated: {StageAuthorized},
	StageAuthorized:    {StageDone},
}

// CanTransitionTo reports whether moving from s to next is a legal edge.
func (s Stage) CanTransitionTo(next Stage) bool {
	if s.Terminal() {
		return false
	}
	if next == StageRejected {
		return true
	}
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageRejected
}
