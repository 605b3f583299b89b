package models

// Status is the verification session state. The transition table below is the
// single source of truth for which stage-advances are legal; the orchestrator
// never compares raw strings.
type Status string

const (
	StatusStarted               Status = "started"
	StatusDocumentFrontCaptured Status = "document_front_captured"
	StatusDocumentBackCaptured  Status = "document_back_captured"
	StatusDocumentProcessing    Status = "document_processing"
	StatusAwaitingSelfie        Status = "awaiting_selfie"
	StatusSelfieCaptured        Status = "selfie_captured"
	StatusProcessingBiometrics  Status = "processing_biometrics"
	StatusCompleted             Status = "completed"
	StatusFailed                Status = "failed"
	StatusExpired               Status = "expired"
	StatusCancelled             Status = "cancelled"
)

// legalTransitions encodes the stage ordering. Expired and Cancelled are
// reachable from any non-terminal state and handled separately.
var legalTransitions = map[Status][]Status{
	StatusStarted:               {StatusDocumentFrontCaptured},
	StatusDocumentFrontCaptured: {StatusDocumentBackCaptured, StatusDocumentProcessing},
	StatusDocumentBackCaptured:  {StatusDocumentProcessing},
	StatusDocumentProcessing:    {StatusAwaitingSelfie},
	StatusAwaitingSelfie:        {StatusSelfieCaptured},
	StatusSelfieCaptured:        {StatusProcessingBiometrics},
	StatusProcessingBiometrics:  {StatusCompleted, StatusFailed},
}

// CanTransitionTo reports whether moving to next is a legal stage-advance.
// Expiry and cancellation bypass the table: they are legal from every
// non-terminal state.
func (s Status) CanTransitionTo(next Status) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StatusExpired || next == StatusCancelled {
		return true
	}
	for _, allowed := range legalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the session can never change again.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}
