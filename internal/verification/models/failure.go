package models

// FailureReason classifies why a session failed or why a capture stage must be
// retaken. Capture reasons never consume an attempt; decision reasons do.
type FailureReason string

const (
	// Capture-stage reasons (client-correctable, attempt-free).
	FailureDocumentBlurry        FailureReason = "document_blurry"
	FailureDocumentCutOff        FailureReason = "document_cut_off"
	FailureDocumentGlare         FailureReason = "document_glare"
	FailureOCRFailed             FailureReason = "ocr_failed"
	FailureInvalidDocumentNumber FailureReason = "invalid_document_number"

	// Decision reasons (attempt-consuming).
	FailureDocumentExpired        FailureReason = "document_expired"
	FailureDocumentFake           FailureReason = "document_fake"
	FailureUnderageApplicant      FailureReason = "underage_applicant"
	FailureFaceNotDetected        FailureReason = "face_not_detected"
	FailureFaceMismatch           FailureReason = "face_mismatch"
	FailureLivenessCheckFailed    FailureReason = "liveness_check_failed"
	FailureLowConfidence          FailureReason = "low_confidence"
	FailureMultipleAttemptsFailed FailureReason = "multiple_attempts_failed"
)

// captureReasonByProviderError maps the OCR provider's capture problem codes
// to retake reasons. Unknown codes fall back to FailureOCRFailed.
var captureReasonByProviderError = map[string]FailureReason{
	"blurry":  FailureDocumentBlurry,
	"cut_off": FailureDocumentCutOff,
	"glare":   FailureDocumentGlare,
}

// CaptureReasonFor picks the retake reason for a failed capture, preferring
// the first recognizable provider code.
func CaptureReasonFor(providerErrors []string) FailureReason {
	for _, code := range providerErrors {
		if reason, ok := captureReasonByProviderError[code]; ok {
			return reason
		}
	}
	return FailureOCRFailed
}

// Explanation returns the pre-computed human-readable text surfaced alongside
// the machine-readable reason.
func (r FailureReason) Explanation() string {
	switch r {
	case FailureDocumentBlurry:
		return "The document image is blurry. Hold the camera steady and retake the photo."
	case FailureDocumentCutOff:
		return "Part of the document is cut off. Fit the whole document in the frame and retake."
	case FailureDocumentGlare:
		return "Glare is obscuring the document. Avoid direct light and retake the photo."
	case FailureOCRFailed:
		return "The document could not be read. Retake the photo in better lighting."
	case FailureInvalidDocumentNumber:
		return "The document number could not be validated. Check the document and retake."
	case FailureDocumentExpired:
		return "The document has expired. Verification requires a valid document."
	case FailureDocumentFake:
		return "The document failed authenticity checks."
	case FailureUnderageApplicant:
		return "The document holder does not meet the minimum age requirement."
	case FailureFaceNotDetected:
		return "No face was detected in the selfie. Retake it facing the camera in good light."
	case FailureFaceMismatch:
		return "The selfie does not match the document photo."
	case FailureLivenessCheckFailed:
		return "The liveness check was not passed. Complete every prompted action."
	case FailureLowConfidence:
		return "Verification could not be completed with sufficient confidence. You may try again."
	case FailureMultipleAttemptsFailed:
		return "Verification failed after the maximum number of attempts."
	}
	return "Verification failed."
}
