package domain

import dErrors "idverify/pkg/domainerrors"

// ChallengeType is a prompted liveness action used to prove a live person is
// present rather than a photo or replay.
type ChallengeType string

const (
	ChallengeBlink     ChallengeType = "blink"
	ChallengeSmile     ChallengeType = "smile"
	ChallengeTurnLeft  ChallengeType = "turn_left"
	ChallengeTurnRight ChallengeType = "turn_right"
	ChallengeNod       ChallengeType = "nod"
	ChallengeOpenMouth ChallengeType = "open_mouth"
)

// SupportedChallenges lists every challenge the pipeline can prompt, in a
// stable order so challenge selection is deterministic under a seeded source.
var SupportedChallenges = []ChallengeType{
	ChallengeBlink,
	ChallengeSmile,
	ChallengeTurnLeft,
	ChallengeTurnRight,
	ChallengeNod,
	ChallengeOpenMouth,
}

var validChallenges = map[ChallengeType]bool{
	ChallengeBlink:     true,
	ChallengeSmile:     true,
	ChallengeTurnLeft:  true,
	ChallengeTurnRight: true,
	ChallengeNod:       true,
	ChallengeOpenMouth: true,
}

// ParseChallengeType constructs a ChallengeType from external input.
func ParseChallengeType(s string) (ChallengeType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "challenge type cannot be empty")
	}
	c := ChallengeType(s)
	if !c.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported challenge type")
	}
	return c, nil
}

// IsValid checks if the challenge type is one of the supported enum values.
func (c ChallengeType) IsValid() bool {
	return validChallenges[c]
}

func (c ChallengeType) String() string {
	return string(c)
}
