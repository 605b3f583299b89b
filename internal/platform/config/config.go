// Package config holds process configuration (from the environment) and the
// verification policy configuration (from the dynamic configuration service,
// with hard defaults). Policy lookups must never fail a request: when the
// configuration service is unreachable every key silently falls back to its
// default.
package config

import (
	"context"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"idverify/pkg/domain"
	dErrors "idverify/pkg/domainerrors"
)

// Server captures process-level configuration so main stays lean.
type Server struct {
	Addr             string
	RedisURL         string
	PostgresDSN      string
	KafkaBrokers     []string
	AuditTopic       string
	OCRBaseURL       string
	BiometricBaseURL string
	StepTokenKey     string
	ProviderTimeout  time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("IDVERIFY_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	stepTokenKey := os.Getenv("STEP_TOKEN_KEY")
	if stepTokenKey == "" {
		// Development default - must be overridden in production.
		stepTokenKey = "dev-step-token-key-change-in-production"
	}

	auditTopic := os.Getenv("AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "idverify.audit"
	}

	providerTimeout := 15 * time.Second
	if raw := os.Getenv("PROVIDER_TIMEOUT_SECONDS"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			providerTimeout = time.Duration(secs) * time.Second
		}
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Server{
		Addr:             addr,
		RedisURL:         os.Getenv("REDIS_URL"),
		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		KafkaBrokers:     brokers,
		AuditTopic:       auditTopic,
		OCRBaseURL:       os.Getenv("OCR_BASE_URL"),
		BiometricBaseURL: os.Getenv("BIOMETRIC_BASE_URL"),
		StepTokenKey:     stepTokenKey,
		ProviderTimeout:  providerTimeout,
	}
}

// Source is the contract of the dynamic configuration service. Implementations
// return the supplied default when the key is missing or the backing service
// is unavailable; they never surface errors to callers.
type Source interface {
	GetInt(ctx context.Context, key string, def int) int
	GetBool(ctx context.Context, key string, def bool) bool
	GetFloat(ctx context.Context, key string, def float64) float64
	GetString(ctx context.Context, key string, def string) string
}

// ScoreWeights drive the aggregate verification score. They must sum to 1.0.
type ScoreWeights struct {
	DocumentAuthenticity float64
	Liveness             float64
	FaceMatch            float64
	OCRAccuracy          float64
}

const weightTolerance = 1e-6

// Validate rejects weight sets that do not sum to 1.0 within tolerance.
func (w ScoreWeights) Validate() error {
	sum := w.DocumentAuthenticity + w.Liveness + w.FaceMatch + w.OCRAccuracy
	if math.Abs(sum-1.0) > weightTolerance {
		return dErrors.Newf(dErrors.CodeInvalidInput,
			"score weights must sum to 1.0, got %.6f", sum)
	}
	return nil
}

// Verification is the policy configuration the orchestrator runs under. It is
// resolved per request via Load and injected, never read from global state.
type Verification struct {
	MaxAttempts            int
	SessionTTL             time.Duration
	CooldownAfterExhaust   time.Duration
	OverallThreshold       float64
	FaceMatchThreshold     float64
	LivenessThreshold      float64
	AuthenticityThreshold  float64
	Weights                ScoreWeights
	RequiredChallengeCount int
	RequiredChallenges     []domain.ChallengeType
	DocumentExpirationDays int
	MinimumAge             int
	LivenessEnabled        bool
	// QualityConsumesAttempt controls whether document-quality findings that
	// surface at decision time burn an attempt. Retake-stage failures never do.
	QualityConsumesAttempt bool
}

// Defaults returns the hard-coded verification policy used when the
// configuration service has nothing better to say.
func Defaults() Verification {
	return Verification{
		MaxAttempts:           3,
		SessionTTL:            30 * time.Minute,
		CooldownAfterExhaust:  24 * time.Hour,
		OverallThreshold:      0.8,
		FaceMatchThreshold:    0.85,
		LivenessThreshold:     0.8,
		AuthenticityThreshold: 0.7,
		Weights: ScoreWeights{
			DocumentAuthenticity: 0.25,
			Liveness:             0.25,
			FaceMatch:            0.35,
			OCRAccuracy:          0.15,
		},
		RequiredChallengeCount: 3,
		RequiredChallenges: []domain.ChallengeType{
			domain.ChallengeBlink,
			domain.ChallengeSmile,
			domain.ChallengeTurnLeft,
		},
		DocumentExpirationDays: 0,
		MinimumAge:             18,
		LivenessEnabled:        true,
		QualityConsumesAttempt: false,
	}
}

// Load resolves the verification policy against a dynamic source, falling back
// to Defaults() per key. A nil source yields the defaults unchanged.
//
// Errors: CodeInvalidInput when the resolved score weights do not sum to 1.0.
// Source unavailability is invisible here; the Source contract absorbs it.
func Load(ctx context.Context, src Source) (Verification, error) {
	v := Defaults()
	if src == nil {
		return v, nil
	}

	v.MaxAttempts = src.GetInt(ctx, "verification.max_attempts", v.MaxAttempts)
	v.SessionTTL = time.Duration(src.GetInt(ctx, "verification.session_ttl_minutes",
		int(v.SessionTTL/time.Minute))) * time.Minute
	v.CooldownAfterExhaust = time.Duration(src.GetInt(ctx, "verification.cooldown_hours",
		int(v.CooldownAfterExhaust/time.Hour))) * time.Hour
	v.OverallThreshold = src.GetFloat(ctx, "verification.overall_threshold", v.OverallThreshold)
	v.FaceMatchThreshold = src.GetFloat(ctx, "verification.face_match_threshold", v.FaceMatchThreshold)
	v.LivenessThreshold = src.GetFloat(ctx, "verification.liveness_threshold", v.LivenessThreshold)
	v.AuthenticityThreshold = src.GetFloat(ctx, "verification.authenticity_threshold", v.AuthenticityThreshold)
	v.Weights.DocumentAuthenticity = src.GetFloat(ctx, "verification.weight_document", v.Weights.DocumentAuthenticity)
	v.Weights.Liveness = src.GetFloat(ctx, "verification.weight_liveness", v.Weights.Liveness)
	v.Weights.FaceMatch = src.GetFloat(ctx, "verification.weight_face_match", v.Weights.FaceMatch)
	v.Weights.OCRAccuracy = src.GetFloat(ctx, "verification.weight_ocr", v.Weights.OCRAccuracy)
	v.RequiredChallengeCount = src.GetInt(ctx, "verification.required_challenges", v.RequiredChallengeCount)
	v.DocumentExpirationDays = src.GetInt(ctx, "verification.document_expiration_days", v.DocumentExpirationDays)
	v.MinimumAge = src.GetInt(ctx, "verification.minimum_age", v.MinimumAge)
	v.LivenessEnabled = src.GetBool(ctx, "verification.liveness_enabled", v.LivenessEnabled)
	v.QualityConsumesAttempt = src.GetBool(ctx, "verification.quality_consumes_attempt", v.QualityConsumesAttempt)

	if raw := src.GetString(ctx, "verification.challenge_set", ""); raw != "" {
		if parsed, err := parseChallengeSet(raw); err == nil {
			v.RequiredChallenges = parsed
		}
	}

	if err := v.Weights.Validate(); err != nil {
		return Verification{}, err
	}
	return v, nil
}

func parseChallengeSet(raw string) ([]domain.ChallengeType, error) {
	parts := strings.Split(raw, ",")
	out := make([]domain.ChallengeType, 0, len(parts))
	for _, p := range parts {
		c, err := domain.ParseChallengeType(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// EnvSource is a Source backed by process environment variables. It stands in
// for the remote configuration service in development and tests.
type EnvSource struct {
	Prefix string
}

func (e EnvSource) lookup(key string) (string, bool) {
	envKey := strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(e.Prefix + key))
	return os.LookupEnv(envKey)
}

func (e EnvSource) GetInt(_ context.Context, key string, def int) int {
	if raw, ok := e.lookup(key); ok {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return def
}

func (e EnvSource) GetBool(_ context.Context, key string, def bool) bool {
	if raw, ok := e.lookup(key); ok {
		if v, err := strconv.ParseBool(raw); err == nil {
			return v
		}
	}
	return def
}

func (e EnvSource) GetFloat(_ context.Context, key string, def float64) float64 {
	if raw, ok := e.lookup(key); ok {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	}
	return def
}

func (e EnvSource) GetString(_ context.Context, key string, def string) string {
	if raw, ok := e.lookup(key); ok {
		return raw
	}
	return def
}
