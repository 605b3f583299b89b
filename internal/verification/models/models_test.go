package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"idverify/internal/providers"
	"idverify/pkg/domain"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusStarted, StatusDocumentFrontCaptured, true},
		{StatusStarted, StatusSelfieCaptured, false},
		{StatusDocumentFrontCaptured, StatusDocumentBackCaptured, true},
		{StatusDocumentFrontCaptured, StatusDocumentProcessing, true},
		{StatusDocumentBackCaptured, StatusDocumentProcessing, true},
		{StatusDocumentBackCaptured, StatusAwaitingSelfie, false},
		{StatusDocumentProcessing, StatusAwaitingSelfie, true},
		{StatusAwaitingSelfie, StatusSelfieCaptured, true},
		{StatusSelfieCaptured, StatusProcessingBiometrics, true},
		{StatusProcessingBiometrics, StatusCompleted, true},
		{StatusProcessingBiometrics, StatusFailed, true},
		{StatusProcessingBiometrics, StatusStarted, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestStatusTransitions_TerminalFromAnywhere(t *testing.T) {
	nonTerminal := []Status{
		StatusStarted, StatusDocumentFrontCaptured, StatusDocumentBackCaptured,
		StatusDocumentProcessing, StatusAwaitingSelfie, StatusSelfieCaptured,
		StatusProcessingBiometrics,
	}
	for _, from := range nonTerminal {
		assert.True(t, from.CanTransitionTo(StatusExpired), "%s -> expired", from)
		assert.True(t, from.CanTransitionTo(StatusCancelled), "%s -> cancelled", from)
	}
}

func TestStatusTransitions_TerminalIsFinal(t *testing.T) {
	for _, from := range []Status{StatusCompleted, StatusFailed, StatusExpired, StatusCancelled} {
		assert.True(t, from.IsTerminal())
		assert.False(t, from.CanTransitionTo(StatusStarted))
		assert.False(t, from.CanTransitionTo(StatusExpired))
		assert.False(t, from.CanTransitionTo(StatusCancelled))
	}
}

func TestSessionIsExpired(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	sess := &Session{Status: StatusAwaitingSelfie, ExpiresAt: now.Add(-time.Minute)}
	assert.True(t, sess.IsExpired(now))

	sess.ExpiresAt = now.Add(time.Minute)
	assert.False(t, sess.IsExpired(now))

	sess.Status = StatusCompleted
	sess.ExpiresAt = now.Add(-time.Hour)
	assert.False(t, sess.IsExpired(now), "terminal sessions do not expire retroactively")
}

func TestSessionAttemptsRemaining(t *testing.T) {
	sess := &Session{AttemptNumber: 1, MaxAttempts: 3}
	assert.Equal(t, 2, sess.AttemptsRemaining())

	sess.AttemptNumber = 3
	assert.Equal(t, 0, sess.AttemptsRemaining())

	sess.AttemptNumber = 5
	assert.Equal(t, 0, sess.AttemptsRemaining())
}

func TestSessionCanRetry(t *testing.T) {
	sess := &Session{Status: StatusFailed, AttemptNumber: 1, MaxAttempts: 3}
	assert.True(t, sess.CanRetry())

	sess.AttemptNumber = 3
	assert.False(t, sess.CanRetry())

	sess.Status = StatusExpired
	sess.AttemptNumber = 1
	assert.False(t, sess.CanRetry())
}

func TestSessionNextStep(t *testing.T) {
	sess := &Session{Status: StatusStarted, DocumentType: domain.DocumentTypeNationalID}
	assert.Equal(t, "capture_document_front", sess.NextStep())

	sess.Status = StatusDocumentFrontCaptured
	assert.Equal(t, "capture_document_back", sess.NextStep())

	sess.DocumentType = domain.DocumentTypePassport
	assert.Equal(t, "capture_selfie", sess.NextStep(), "passports have no back side")

	sess.Status = StatusAwaitingSelfie
	assert.Equal(t, "capture_selfie", sess.NextStep())

	sess.Status = StatusProcessingBiometrics
	assert.Equal(t, "await_decision", sess.NextStep())

	sess.Status = StatusCompleted
	assert.Equal(t, "done", sess.NextStep())
}

func TestProfileMerge(t *testing.T) {
	str := func(s string) *string { return &s }

	profile := &ExtractedProfile{}
	profile.Merge(&providers.ExtractedData{
		FullName:       str("Jane Q. Applicant"),
		DocumentNumber: str("123456789"),
	})
	profile.Merge(&providers.ExtractedData{
		FullName: str("SHOULD NOT WIN"),
		Address:  str("42 Example Street"),
	})

	assert.Equal(t, "Jane Q. Applicant", *profile.FullName, "front side wins over back")
	assert.Equal(t, "123456789", *profile.DocumentNumber)
	assert.Equal(t, "42 Example Street", *profile.Address, "back fills gaps")
	assert.Nil(t, profile.DateOfBirth)

	profile.Merge(nil)
	assert.Equal(t, "Jane Q. Applicant", *profile.FullName)
}

func TestCaptureReasonFor(t *testing.T) {
	assert.Equal(t, FailureDocumentBlurry, CaptureReasonFor([]string{"blurry"}))
	assert.Equal(t, FailureDocumentGlare, CaptureReasonFor([]string{"unknown", "glare"}))
	assert.Equal(t, FailureOCRFailed, CaptureReasonFor([]string{"something_else"}))
	assert.Equal(t, FailureOCRFailed, CaptureReasonFor(nil))
}
