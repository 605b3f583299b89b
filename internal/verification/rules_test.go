package verification

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"idverify/internal/document"
	"idverify/internal/platform/config"
	"idverify/internal/verification/models"
)

func passingInput() DecisionInput {
	return DecisionInput{
		DocumentAuthenticity: 0.9,
		AuthenticityPassed:   true,
		Liveness:             0.95,
		LivenessPassed:       true,
		FaceMatch:            0.92,
		FaceMatchPassed:      true,
		FaceDetected:         true,
		OCRConfidence:        0.8,
		Validation: &document.Validation{
			FormatValid:   true,
			ChecksumValid: true,
			NotExpired:    true,
			AgeValid:      true,
		},
		AttemptNumber: 1,
		MaxAttempts:   3,
	}
}

func TestEvaluate_Verified(t *testing.T) {
	weights := config.ScoreWeights{
		DocumentAuthenticity: 0.2,
		Liveness:             0.3,
		FaceMatch:            0.4,
		OCRAccuracy:          0.1,
	}

	d := Evaluate(passingInput(), weights, 0.8)

	assert.True(t, d.Verified)
	assert.InDelta(t, 0.913, d.OverallScore, 1e-9)
	assert.Empty(t, d.Reason)
}

func TestEvaluate_GatePriority(t *testing.T) {
	weights := config.Defaults().Weights

	cases := []struct {
		name   string
		mutate func(*DecisionInput)
		want   models.FailureReason
	}{
		{
			name: "face not detected outranks everything",
			mutate: func(in *DecisionInput) {
				in.FaceDetected = false
				in.FaceMatchPassed = false
				in.LivenessPassed = false
			},
			want: models.FailureFaceNotDetected,
		},
		{
			name: "face mismatch outranks liveness",
			mutate: func(in *DecisionInput) {
				in.FaceMatchPassed = false
				in.FaceMatch = 0.4
				in.LivenessPassed = false
			},
			want: models.FailureFaceMismatch,
		},
		{
			name: "liveness outranks expiry",
			mutate: func(in *DecisionInput) {
				in.LivenessPassed = false
				in.Validation.NotExpired = false
			},
			want: models.FailureLivenessCheckFailed,
		},
		{
			name: "expired document fails despite high scores",
			mutate: func(in *DecisionInput) {
				in.Validation.NotExpired = false
			},
			want: models.FailureDocumentExpired,
		},
		{
			name: "underage fails despite high scores",
			mutate: func(in *DecisionInput) {
				in.Validation.AgeValid = false
			},
			want: models.FailureUnderageApplicant,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := passingInput()
			tc.mutate(&in)
			d := Evaluate(in, weights, 0.8)
			assert.False(t, d.Verified)
			assert.Equal(t, tc.want, d.Reason)
		})
	}
}

func TestEvaluate_AuthenticityIsAggregateOnly(t *testing.T) {
	weights := config.ScoreWeights{
		DocumentAuthenticity: 0.25,
		Liveness:             0.25,
		FaceMatch:            0.35,
		OCRAccuracy:          0.15,
	}

	// Weak authenticity carried by strong biometrics: still verified.
	in := passingInput()
	in.DocumentAuthenticity = 0.6
	in.AuthenticityPassed = false
	in.Liveness = 0.95
	in.FaceMatch = 0.95
	in.OCRConfidence = 0.9
	// 0.6*0.25 + 0.95*0.25 + 0.95*0.35 + 0.9*0.15 = 0.8550
	d := Evaluate(in, weights, 0.8)
	assert.True(t, d.Verified)

	// Weak enough to drag the aggregate under: reported as a fake document.
	in.DocumentAuthenticity = 0.1
	in.Liveness = 0.85
	in.FaceMatch = 0.9
	in.OCRConfidence = 0.5
	// 0.1*0.25 + 0.85*0.25 + 0.9*0.35 + 0.5*0.15 = 0.6275
	d = Evaluate(in, weights, 0.8)
	assert.False(t, d.Verified)
	assert.Equal(t, models.FailureDocumentFake, d.Reason)
}

func TestEvaluate_LowConfidenceVsExhaustedAttempts(t *testing.T) {
	weights := config.Defaults().Weights

	in := passingInput()
	in.DocumentAuthenticity = 0.75
	in.Liveness = 0.8
	in.FaceMatch = 0.86
	in.OCRConfidence = 0.3
	// 0.75*0.25 + 0.8*0.25 + 0.86*0.35 + 0.3*0.15 = 0.7335

	d := Evaluate(in, weights, 0.8)
	assert.False(t, d.Verified)
	assert.Equal(t, models.FailureLowConfidence, d.Reason)

	in.AttemptNumber = 3
	d = Evaluate(in, weights, 0.8)
	assert.Equal(t, models.FailureMultipleAttemptsFailed, d.Reason)
}

func TestEvaluate_NilValidation(t *testing.T) {
	in := passingInput()
	in.Validation = nil
	d := Evaluate(in, config.Defaults().Weights, 0.8)
	assert.True(t, d.Verified)
}
