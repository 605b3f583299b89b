package handler

import (
	"time"

	"idverify/internal/verification/models"
	"idverify/internal/verification/service"
)

// SessionResponse is the wire shape for a verification session. Profile and
// score fields appear only once the flow has produced them.
type SessionResponse struct {
	ID                 string     `json:"id"`
	Status             string     `json:"status"`
	DocumentType       string     `json:"document_type"`
	AttemptNumber      int        `json:"attempt_number"`
	MaxAttempts        int        `json:"max_attempts"`
	AttemptsRemaining  int        `json:"attempts_remaining"`
	RequiredChallenges []string   `json:"required_challenges,omitempty"`
	NextStep           string     `json:"next_step"`
	StepToken          string     `json:"step_token,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	ExpiresAt          time.Time  `json:"expires_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`

	Profile *ProfileResponse `json:"profile,omitempty"`
	Scores  *ScoresResponse  `json:"scores,omitempty"`

	FailureReason  string `json:"failure_reason,omitempty"`
	FailureDetails string `json:"failure_details,omitempty"`
	CanRetry       bool   `json:"can_retry"`

	Retake       bool   `json:"retake,omitempty"`
	RetakeReason string `json:"retake_reason,omitempty"`
}

type ProfileResponse struct {
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

type ScoresResponse struct {
	DocumentAuthenticity *float64 `json:"document_authenticity,omitempty"`
	Liveness             *float64 `json:"liveness,omitempty"`
	FaceMatch            *float64 `json:"face_match,omitempty"`
	OCRConfidence        *float64 `json:"ocr_confidence,omitempty"`
	Overall              *float64 `json:"overall,omitempty"`
}

// FromSession maps a session to its response shape.
func FromSession(session *models.Session, stepToken string) SessionResponse {
	resp := SessionResponse{
		ID:                session.ID.String(),
		Status:            string(session.Status),
		DocumentType:      string(session.DocumentType),
		AttemptNumber:     session.AttemptNumber,
		MaxAttempts:       session.MaxAttempts,
		AttemptsRemaining: session.AttemptsRemaining(),
		NextStep:          session.NextStep(),
		StepToken:         stepToken,
		CreatedAt:         session.CreatedAt,
		ExpiresAt:         session.ExpiresAt,
		CompletedAt:       session.CompletedAt,
		FailureReason:     string(session.FailureReason),
		FailureDetails:    session.FailureDetails,
		CanRetry:          session.CanRetry(),
	}

	for _, challenge := range session.RequiredChallenges {
		resp.RequiredChallenges = append(resp.RequiredChallenges, string(challenge))
	}

	// The extracted profile is only returned once verification succeeds.
	if session.Status == models.StatusCompleted && session.Profile != nil {
		resp.Profile = &ProfileResponse{
			FullName:       session.Profile.FullName,
			FirstName:      session.Profile.FirstName,
			LastName:       session.Profile.LastName,
			DocumentNumber: session.Profile.DocumentNumber,
			DateOfBirth:    session.Profile.DateOfBirth,
			ExpiryDate:     session.Profile.ExpiryDate,
			Nationality:    session.Profile.Nationality,
			Gender:         session.Profile.Gender,
			Address:        session.Profile.Address,
		}
	}

	if session.Status == models.StatusCompleted || session.Status == models.StatusFailed {
		resp.Scores = &ScoresResponse{
			DocumentAuthenticity: session.Scores.DocumentAuthenticity,
			Liveness:             session.Scores.Liveness,
			FaceMatch:            session.Scores.FaceMatch,
			OCRConfidence:        session.Scores.OCRConfidence,
			Overall:              session.Scores.Overall,
		}
	}
	return resp
}

// FromCaptureResult maps a document capture outcome, folding in the retake
// hint when the image was rejected.
func FromCaptureResult(result *service.CaptureResult, stepToken string) SessionResponse {
	resp := FromSession(result.Session, stepToken)
	if result.Retake {
		resp.Retake = true
		resp.RetakeReason = string(result.RetakeReason)
		resp.FailureDetails = result.RetakeReason.Explanation()
	}
	return resp
}
