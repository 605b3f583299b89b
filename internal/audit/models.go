// Package audit records the verification trail. Events carry no raw PII:
// document numbers are hashed before they are attached.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"idverify/pkg/domain"
)

// Event is emitted from the verification flow to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time        `json:"timestamp"`
	SessionID domain.SessionID `json:"session_id"`
	UserID    domain.UserID    `json:"user_id"`
	Action    string           `json:"action"`
	Stage     string           `json:"stage,omitempty"`
	Reason    string           `json:"reason,omitempty"`
	RequestID string           `json:"request_id,omitempty"`

	// Client metadata for forensics.
	DeviceDisplayName string `json:"device_display_name,omitempty"`
	ClientIP          string `json:"client_ip,omitempty"`

	// SubjectIDHash is a SHA-256 hash of the extracted document number, kept
	// for compliance traceability without storing the raw value.
	SubjectIDHash string `json:"subject_id_hash,omitempty"`
}

type AuditEvent string

const (
	EventSessionStarted   AuditEvent = "verification_started"
	EventStageCaptured    AuditEvent = "stage_captured"
	EventSessionVerified  AuditEvent = "verification_completed"
	EventSessionFailed    AuditEvent = "verification_failed"
	EventSessionExpired   AuditEvent = "verification_expired"
	EventSessionCancelled AuditEvent = "verification_cancelled"
	EventSessionRetried   AuditEvent = "verification_retried"
)

// HashSubjectID hashes a document number for audit storage.
func HashSubjectID(documentNumber string) string {
	if documentNumber == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(documentNumber))
	return hex.EncodeToString(sum[:])
}
