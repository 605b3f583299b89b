package domain

import dErrors "idverify/pkg/domainerrors"

// DocumentType is the kind of identity document under verification.
// Invariant: the value must be one of the supported document types.
//
// Usage: construct via ParseDocumentType at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type DocumentType string

const (
	DocumentTypeNationalID    DocumentType = "national_id"
	DocumentTypePassport      DocumentType = "passport"
	DocumentTypeDriverLicense DocumentType = "driver_license"
)

// validDocumentTypes is the single source of truth for supported documents.
var validDocumentTypes = map[DocumentType]bool{
	DocumentTypeNationalID:    true,
	DocumentTypePassport:      true,
	DocumentTypeDriverLicense: true,
}

// ParseDocumentType constructs a DocumentType from external input.
//
// Errors: CodeInvalidInput when the value is empty or unsupported.
func ParseDocumentType(s string) (DocumentType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "document_type cannot be empty")
	}
	t := DocumentType(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported document_type")
	}
	return t, nil
}

// IsValid checks if the document type is one of the supported enum values.
func (t DocumentType) IsValid() bool {
	return validDocumentTypes[t]
}

// HasBackSide reports whether the document carries data on its reverse.
// Passports are single-sided; the data page is the only capture.
func (t DocumentType) HasBackSide() bool {
	return t != DocumentTypePassport
}

func (t DocumentType) String() string {
	return string(t)
}

// DocumentSide identifies which face of the document an image shows.
type DocumentSide string

const (
	DocumentSideFront DocumentSide = "front"
	DocumentSideBack  DocumentSide = "back"
)

// ParseDocumentSide constructs a DocumentSide from external input.
func ParseDocumentSide(s string) (DocumentSide, error) {
	switch DocumentSide(s) {
	case DocumentSideFront, DocumentSideBack:
		return DocumentSide(s), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "document side must be front or back")
}

func (s DocumentSide) String() string {
	return string(s)
}
