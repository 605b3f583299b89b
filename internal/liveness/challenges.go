// Package liveness selects the challenge set for a session and validates the
// challenge results a client submits against it. Pure domain logic, no I/O.
package liveness

import (
	"math/rand"

	"idverify/internal/providers"
	"idverify/pkg/domain"
)

// SelectChallenges picks the required challenge set for a new session. When
// the configured set already has the requested count it is used as-is;
// otherwise the remainder is drawn randomly from the supported challenges.
func SelectChallenges(configured []domain.ChallengeType, count int, rng *rand.Rand) []domain.ChallengeType {
	if count <= 0 {
		count = len(configured)
	}
	if len(configured) >= count {
		return append([]domain.ChallengeType(nil), configured[:count]...)
	}

	selected := append([]domain.ChallengeType(nil), configured...)
	seen := make(map[domain.ChallengeType]bool, count)
	for _, c := range selected {
		seen[c] = true
	}

	pool := make([]domain.ChallengeType, 0, len(domain.SupportedChallenges))
	for _, c := range domain.SupportedChallenges {
		if !seen[c] {
			pool = append(pool, c)
		}
	}
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	for _, c := range pool {
		if len(selected) == count {
			break
		}
		selected = append(selected, c)
	}
	return selected
}

// Outcome is the validated liveness attempt result.
type Outcome struct {
	Passed bool
	// Score is the mean confidence of the passing results for required
	// challenges. Forced to 0.0 when any required challenge has no passing
	// result.
	Score   float64
	Missing []domain.ChallengeType
}

// ValidateAttempt checks that every required challenge type has at least one
// passing result.
func ValidateAttempt(required []domain.ChallengeType, results []providers.ChallengeResult) Outcome {
	best := make(map[domain.ChallengeType]float64, len(required))
	for _, r := range results {
		if !r.Passed {
			continue
		}
		if conf, ok := best[r.Type]; !ok || r.Confidence > conf {
			best[r.Type] = r.Confidence
		}
	}

	var out Outcome
	sum := 0.0
	for _, req := range required {
		conf, ok := best[req]
		if !ok {
			out.Missing = append(out.Missing, req)
			continue
		}
		sum += conf
	}

	if len(out.Missing) > 0 || len(required) == 0 {
		return out
	}

	out.Passed = true
	out.Score = sum / float64(len(required))
	return out
}
