// Package document holds the per-stage business rules for identity documents:
// number format, check digit, expiry, and age checks over the optical
// extraction output. All functions are pure; they never call providers.
package document

import (
	"regexp"
	"strings"
	"time"

	"idverify/internal/providers"
	"idverify/pkg/domain"
)

// Validation is the rule outcome stored on the session. Format and checksum
// failures block the capture stage; expiry and age findings are recorded but
// only weigh in at the final decision.
type Validation struct {
	FormatValid   bool     `json:"format_valid"`
	ChecksumValid bool     `json:"checksum_valid"`
	NotExpired    bool     `json:"not_expired"`
	AgeValid      bool     `json:"age_valid"`
	Issues        []string `json:"issues,omitempty"`
}

// BlocksCapture reports whether the outcome must stop the capture stage
// before any downstream provider call.
func (v Validation) BlocksCapture() bool {
	return !v.FormatValid || !v.ChecksumValid
}

// Policy carries the document rules resolved from configuration.
type Policy struct {
	// ExpirationGraceDays accepts documents expiring within the next N days
	// as already expired. Zero means expiry is taken literally.
	ExpirationGraceDays int
	MinimumAge          int
}

// Document number shapes per type. Sources differ per issuing country; these
// match the formats the extraction provider normalizes to.
var numberFormats = map[domain.DocumentType]*regexp.Regexp{
	domain.DocumentTypeNationalID:    regexp.MustCompile(`^[0-9]{8,12}$`),
	domain.DocumentTypePassport:      regexp.MustCompile(`^[A-Z][A-Z0-9]{6,8}$`),
	domain.DocumentTypeDriverLicense: regexp.MustCompile(`^[A-Z0-9]{5,11}[0-9]$`),
}

// Validate applies the document rules to one extraction result.
// A nil extraction (provider returned nothing usable) fails format validation.
func Validate(docType domain.DocumentType, extracted *providers.ExtractedData, policy Policy, now time.Time) Validation {
	v := Validation{NotExpired: true, AgeValid: true}

	if extracted == nil {
		v.Issues = append(v.Issues, "no data extracted from document")
		return v
	}

	number := valueOf(extracted.DocumentNumber)
	switch {
	case number == "":
		v.Issues = append(v.Issues, "document number missing")
	case !matchesFormat(docType, number):
		v.Issues = append(v.Issues, "document number format invalid")
	default:
		v.FormatValid = true
	}

	if v.FormatValid {
		if checkDigitValid(docType, number) {
			v.ChecksumValid = true
		} else {
			v.Issues = append(v.Issues, "document number check digit mismatch")
		}
	}

	if expiry, ok := parseDate(extracted.ExpiryDate); ok {
		deadline := now.AddDate(0, 0, policy.ExpirationGraceDays)
		if !expiry.After(deadline) {
			v.NotExpired = false
			v.Issues = append(v.Issues, "document expired")
		}
	} else if valueOf(extracted.ExpiryDate) != "" {
		v.Issues = append(v.Issues, "expiry date unreadable")
	}

	if dob, ok := parseDate(extracted.DateOfBirth); ok {
		if age(dob, now) < policy.MinimumAge {
			v.AgeValid = false
			v.Issues = append(v.Issues, "holder below minimum age")
		}
	} else if valueOf(extracted.DateOfBirth) != "" {
		v.Issues = append(v.Issues, "date of birth unreadable")
	}

	return v
}

func matchesFormat(docType domain.DocumentType, number string) bool {
	re, ok := numberFormats[docType]
	if !ok {
		return false
	}
	return re.MatchString(strings.ToUpper(number))
}

// checkDigitValid verifies the trailing check digit. National IDs are all
// digits and use Luhn; passports and driver licenses may carry letters and
// use the ICAO 7-3-1 weighting over the number body.
func checkDigitValid(docType domain.DocumentType, number string) bool {
	number = strings.ToUpper(number)
	switch docType {
	case domain.DocumentTypePassport, domain.DocumentTypeDriverLicense:
		last := number[len(number)-1]
		if last < '0' || last > '9' {
			return false
		}
		return icaoCheckDigit(number[:len(number)-1]) == int(last-'0')
	default:
		return luhnValid(number)
	}
}

// icaoCheckDigit computes the MRZ-style check digit: characters are valued
// 0-9 for digits and A=10..Z=35, weighted cyclically by 7, 3, 1.
func icaoCheckDigit(s string) int {
	weights := [3]int{7, 3, 1}
	sum := 0
	for i, r := range s {
		var val int
		switch {
		case r >= '0' && r <= '9':
			val = int(r - '0')
		case r >= 'A' && r <= 'Z':
			val = int(r-'A') + 10
		default:
			return -1
		}
		sum += val * weights[i%3]
	}
	return sum % 10
}

func luhnValid(s string) bool {
	sum := 0
	double := false
	for i := len(s) - 1; i >= 0; i-- {
		r := s[i]
		if r < '0' || r > '9' {
			return false
		}
		d := int(r - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func parseDate(s *string) (time.Time, bool) {
	if s == nil || *s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func age(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.YearDay() < dob.YearDay() {
		years--
	}
	return years
}

func valueOf(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
