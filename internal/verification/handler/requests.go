package handler

import (
	"encoding/base64"
	"strings"
	"time"

	"idverify/internal/providers"
	"idverify/pkg/domain"
	dErrors "idverify/pkg/domainerrors"
)

// Image payloads are base64 in JSON; cap the decoded size at 8 MiB.
const maxImageBytes = 8 << 20

// StartRequest is the HTTP request body for POST /verification/start.
type StartRequest struct {
	UserID       string `json:"user_id"`
	DocumentType string `json:"document_type"`

	parsedUserID       domain.UserID
	parsedDocumentType domain.DocumentType
}

func (r *StartRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}

	userID, err := domain.ParseUserID(strings.TrimSpace(r.UserID))
	if err != nil {
		return err
	}
	r.parsedUserID = userID

	documentType, err := domain.ParseDocumentType(strings.TrimSpace(r.DocumentType))
	if err != nil {
		return err
	}
	r.parsedDocumentType = documentType
	return nil
}

func (r *StartRequest) ParsedUserID() domain.UserID             { return r.parsedUserID }
func (r *StartRequest) ParsedDocumentType() domain.DocumentType { return r.parsedDocumentType }

// CaptureDocumentRequest is the body for POST /verification/{id}/document/{side}.
type CaptureDocumentRequest struct {
	Image     string `json:"image"`
	StepToken string `json:"step_token,omitempty"`

	decodedImage []byte
}

func (r *CaptureDocumentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}
	image, err := decodeImage(r.Image)
	if err != nil {
		return err
	}
	r.decodedImage = image
	return nil
}

func (r *CaptureDocumentRequest) DecodedImage() []byte { return r.decodedImage }

// ChallengeResultPayload is one recorded liveness challenge.
type ChallengeResultPayload struct {
	Type       string    `json:"type"`
	Passed     bool      `json:"passed"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// CaptureSelfieRequest is the body for POST /verification/{id}/selfie.
type CaptureSelfieRequest struct {
	Image      string                   `json:"image"`
	Challenges []ChallengeResultPayload `json:"challenges"`
	StepToken  string                   `json:"step_token,omitempty"`

	decodedImage     []byte
	parsedChallenges []providers.ChallengeResult
}

func (r *CaptureSelfieRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}
	image, err := decodeImage(r.Image)
	if err != nil {
		return err
	}
	r.decodedImage = image

	r.parsedChallenges = make([]providers.ChallengeResult, 0, len(r.Challenges))
	for _, payload := range r.Challenges {
		challenge, err := domain.ParseChallengeType(strings.TrimSpace(payload.Type))
		if err != nil {
			return err
		}
		if payload.Confidence < 0 || payload.Confidence > 1 {
			return dErrors.Newf(dErrors.CodeInvalidInput,
				"challenge confidence must be within [0, 1], got %v", payload.Confidence)
		}
		r.parsedChallenges = append(r.parsedChallenges, providers.ChallengeResult{
			Type:       challenge,
			Passed:     payload.Passed,
			Confidence: payload.Confidence,
			Timestamp:  payload.Timestamp,
		})
	}
	return nil
}

func (r *CaptureSelfieRequest) DecodedImage() []byte { return r.decodedImage }
func (r *CaptureSelfieRequest) ParsedChallenges() []providers.ChallengeResult {
	return r.parsedChallenges
}

func decodeImage(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "image is required")
	}
	if base64.StdEncoding.DecodedLen(len(encoded)) > maxImageBytes {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "image exceeds the size limit")
	}
	image, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "image must be base64 encoded")
	}
	if len(image) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "image is required")
	}
	return image, nil
}
