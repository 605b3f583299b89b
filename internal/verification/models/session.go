// Package models holds the verification-session domain records. The
// orchestrator service exclusively owns Session mutation; everything here is
// plain data plus invariant helpers.
package models

import (
	"time"

	"idverify/internal/document"
	"idverify/internal/providers"
	"idverify/pkg/domain"
)

// ExtractedProfile is the applicant data assembled from optical extraction.
// Every field is optional: absent (nil) is distinct from present-but-empty,
// because extraction may partially fail per side.
type ExtractedProfile struct {
	FullName       *string `json:"full_name,omitempty"`
	FirstName      *string `json:"first_name,omitempty"`
	LastName       *string `json:"last_name,omitempty"`
	DocumentNumber *string `json:"document_number,omitempty"`
	DateOfBirth    *string `json:"date_of_birth,omitempty"`
	ExpiryDate     *string `json:"expiry_date,omitempty"`
	Nationality    *string `json:"nationality,omitempty"`
	Gender         *string `json:"gender,omitempty"`
	Address        *string `json:"address,omitempty"`
}

// Merge folds another extraction pass into the profile. Fields already present
// win; the back side only fills gaps the front left open.
func (p *ExtractedProfile) Merge(data *providers.ExtractedData) {
	if data == nil {
		return
	}
	fill := func(dst **string, src *string) {
		if *dst == nil && src != nil {
			v := *src
			*dst = &v
		}
	}
	fill(&p.FullName, data.FullName)
	fill(&p.FirstName, data.FirstName)
	fill(&p.LastName, data.LastName)
	fill(&p.DocumentNumber, data.DocumentNumber)
	fill(&p.DateOfBirth, data.DateOfBirth)
	fill(&p.ExpiryDate, data.ExpiryDate)
	fill(&p.Nationality, data.Nationality)
	fill(&p.Gender, data.Gender)
	fill(&p.Address, data.Address)
}

// ScoreBreakdown carries the per-dimension scores. Pointers because each score
// is populated only once its stage has computed it.
type ScoreBreakdown struct {
	DocumentAuthenticity *float64 `json:"document_authenticity,omitempty"`
	Liveness             *float64 `json:"liveness,omitempty"`
	FaceMatch            *float64 `json:"face_match,omitempty"`
	OCRConfidence        *float64 `json:"ocr_confidence,omitempty"`
	Overall              *float64 `json:"overall,omitempty"`
}

// Session is one verification attempt's full record.
type Session struct {
	ID           domain.SessionID    `json:"id"`
	UserID       domain.UserID       `json:"user_id"`
	DocumentType domain.DocumentType `json:"document_type"`
	Status       Status              `json:"status"`

	// Version backs the optimistic-concurrency check; every committed
	// transition increments it.
	Version int64 `json:"version"`

	AttemptNumber int `json:"attempt_number"`
	MaxAttempts   int `json:"max_attempts"`

	RequiredChallenges []domain.ChallengeType `json:"required_challenges"`

	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	DocumentFrontCaptured bool `json:"document_front_captured"`
	DocumentBackCaptured  bool `json:"document_back_captured"`
	SelfieCaptured        bool `json:"selfie_captured"`

	// DocumentPhotoRef points at the front image in external image storage;
	// the biometric stage needs it for face matching.
	DocumentPhotoRef string `json:"document_photo_ref,omitempty"`

	Profile            *ExtractedProfile    `json:"profile,omitempty"`
	DocumentValidation *document.Validation `json:"document_validation,omitempty"`
	Scores             ScoreBreakdown       `json:"scores"`

	FailureReason  FailureReason `json:"failure_reason,omitempty"`
	FailureDetails string        `json:"failure_details,omitempty"`

	// Client metadata captured for the audit trail.
	DeviceDisplayName string `json:"device_display_name,omitempty"`
	ClientIP          string `json:"client_ip,omitempty"`
}

// IsExpired reports whether the session TTL has elapsed. Terminal sessions
// never expire retroactively.
func (s *Session) IsExpired(now time.Time) bool {
	return !s.Status.IsTerminal() && now.After(s.ExpiresAt)
}

// AttemptsRemaining floors at zero.
func (s *Session) AttemptsRemaining() int {
	remaining := s.MaxAttempts - s.AttemptNumber
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CanRetry reports whether a follow-up session may be opened from this one.
func (s *Session) CanRetry() bool {
	return s.Status == StatusFailed && s.AttemptsRemaining() > 0
}

// NextStep names the stage-advance the client should perform next. Terminal
// sessions report "done".
func (s *Session) NextStep() string {
	switch s.Status {
	case StatusStarted:
		return "capture_document_front"
	case StatusDocumentFrontCaptured:
		if s.DocumentType.HasBackSide() {
			return "capture_document_back"
		}
		return "capture_selfie"
	case StatusDocumentBackCaptured, StatusDocumentProcessing, StatusAwaitingSelfie:
		return "capture_selfie"
	case StatusSelfieCaptured, StatusProcessingBiometrics:
		return "await_decision"
	}
	return "done"
}
