// Package providers defines the contracts for external scoring providers and
// the normalized envelopes their adapters must return. The orchestrator
// depends only on these interfaces; concrete HTTP adapters live in
// subpackages.
package providers

//go:generate mockgen -source=provider.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"idverify/pkg/domain"
)

// ProviderKind identifies the kind of signal a provider can produce.
type ProviderKind string

const (
	KindOCR       ProviderKind = "ocr"
	KindBiometric ProviderKind = "biometric"
)

// ScoreResult is the generic scoring envelope every provider adapter returns.
// Passed is derived as score >= threshold by the provider; adapters must not
// re-derive it.
type ScoreResult struct {
	Score     float64       `json:"score"`
	Threshold float64       `json:"threshold"`
	Passed    bool          `json:"passed"`
	Details   []CheckDetail `json:"details,omitempty"`
}

// CheckDetail is one supporting check behind a score (e.g. "hologram",
// "screen_replay").
type CheckDetail struct {
	Name   string  `json:"name"`
	Passed bool    `json:"passed"`
	Score  float64 `json:"score"`
}

// ExtractedData is the optical extraction output. Every field is optional:
// extraction may partially fail and absent is distinct from present-but-empty,
// hence pointers.
type ExtractedData struct {
	FullName       *string `json:"full_name,omitempty"`
	FirstName      *string `json:"first_name,omitempty"`
	LastName       *string `json:"last_name,omitempty"`
	DocumentNumber *string `json:"document_number,omitempty"`
	DateOfBirth    *string `json:"date_of_birth,omitempty"` // ISO 8601 date
	ExpiryDate     *string `json:"expiry_date,omitempty"`   // ISO 8601 date
	Nationality    *string `json:"nationality,omitempty"`
	Gender         *string `json:"gender,omitempty"`
	Address        *string `json:"address,omitempty"`
}

// OCRRequest carries one document image to the optical extraction provider.
type OCRRequest struct {
	DocumentType domain.DocumentType
	Side         domain.DocumentSide
	Image        []byte
}

// OCRResult is the normalized optical extraction outcome.
type OCRResult struct {
	Success    bool
	Extracted  *ExtractedData
	Confidence float64
	// Errors are provider-reported capture problems ("blurry", "glare",
	// "cut_off"). A non-empty list with Success=false means retake.
	Errors []string
}

// ChallengeResult is one liveness challenge outcome reported by the client.
type ChallengeResult struct {
	Type       domain.ChallengeType `json:"type"`
	Passed     bool                 `json:"passed"`
	Confidence float64              `json:"confidence"`
	Timestamp  time.Time            `json:"timestamp"`
}

// BiometricRequest carries the selfie, the document photo, and the liveness
// recordings to the biometric scoring provider.
type BiometricRequest struct {
	Selfie        []byte
	DocumentPhoto []byte
	Challenges    []ChallengeResult
}

// BiometricResult bundles the three independent score envelopes the biometric
// provider produces.
type BiometricResult struct {
	DocumentAuthenticity ScoreResult
	Liveness             ScoreResult
	FaceMatch            ScoreResult
	FaceDetected         bool
}

// OCRProvider extracts structured data from document images.
type OCRProvider interface {
	Extract(ctx context.Context, req OCRRequest) (*OCRResult, error)
	Health(ctx context.Context) error
}

// BiometricProvider scores document authenticity, liveness, and face match.
type BiometricProvider interface {
	Verify(ctx context.Context, req BiometricRequest) (*BiometricResult, error)
	Health(ctx context.Context) error
}
