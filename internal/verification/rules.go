package verification

import (
	"fmt"

	"idverify/internal/document"
	"idverify/internal/platform/config"
	"idverify/internal/verification/models"
)

// DecisionInput carries everything the decision rules need. Scores are the
// final per-dimension values after stage-level normalization (liveness already
// folded with challenge validation, face match zeroed when no face was found).
type DecisionInput struct {
	DocumentAuthenticity float64
	AuthenticityPassed   bool
	Liveness             float64
	LivenessPassed       bool
	FaceMatch            float64
	FaceMatchPassed      bool
	FaceDetected         bool
	OCRConfidence        float64

	Validation *document.Validation

	AttemptNumber int
	MaxAttempts   int
}

// Decision is the outcome of evaluating a completed session.
type Decision struct {
	Verified     bool
	OverallScore float64
	Reason       models.FailureReason
	Details      string
}

// Evaluate applies the scoring rules to a finished biometric stage.
// This is pure domain logic: no I/O, no side effects.
//
// Verification requires the weighted overall score to clear the threshold AND
// every hard gate to pass. Hard gates (fail-fast priority order):
//  1. Face detected in the selfie
//  2. Face match against the document photo
//  3. Liveness (provider score and challenge validation combined)
//  4. Document not expired
//  5. Applicant of minimum age
//
// Document authenticity and OCR confidence contribute to the aggregate only;
// a weak authenticity score can still be carried by strong biometrics unless
// it drags the overall below threshold.
func Evaluate(input DecisionInput, weights config.ScoreWeights, threshold float64) Decision {
	overall := input.DocumentAuthenticity*weights.DocumentAuthenticity +
		input.Liveness*weights.Liveness +
		input.FaceMatch*weights.FaceMatch +
		input.OCRConfidence*weights.OCRAccuracy

	d := Decision{OverallScore: overall}

	if !input.FaceDetected {
		d.Reason = models.FailureFaceNotDetected
		d.Details = "no face detected in the selfie"
		return d
	}
	if !input.FaceMatchPassed {
		d.Reason = models.FailureFaceMismatch
		d.Details = fmt.Sprintf("face match score %.3f below gate", input.FaceMatch)
		return d
	}
	if !input.LivenessPassed {
		d.Reason = models.FailureLivenessCheckFailed
		d.Details = fmt.Sprintf("liveness score %.3f below gate or challenges not satisfied", input.Liveness)
		return d
	}
	if input.Validation != nil && !input.Validation.NotExpired {
		d.Reason = models.FailureDocumentExpired
		d.Details = "document expiry date has passed"
		return d
	}
	if input.Validation != nil && !input.Validation.AgeValid {
		d.Reason = models.FailureUnderageApplicant
		d.Details = "applicant is below the minimum age"
		return d
	}

	if overall >= threshold {
		d.Verified = true
		return d
	}

	// Aggregate below threshold with all gates passing. Name the weakest
	// non-gated dimension when it is clearly to blame, otherwise report low
	// overall confidence.
	if !input.AuthenticityPassed {
		d.Reason = models.FailureDocumentFake
		d.Details = fmt.Sprintf("document authenticity score %.3f dragged overall to %.3f", input.DocumentAuthenticity, overall)
		return d
	}
	if input.AttemptNumber >= input.MaxAttempts {
		d.Reason = models.FailureMultipleAttemptsFailed
		d.Details = fmt.Sprintf("overall score %.3f below threshold %.3f on the final attempt", overall, threshold)
		return d
	}
	d.Reason = models.FailureLowConfidence
	d.Details = fmt.Sprintf("overall score %.3f below threshold %.3f", overall, threshold)
	return d
}
