// Package service orchestrates the verification flow: session lifecycle,
// stage captures, provider calls, and the final decision.
package service

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"idverify/internal/attempts"
	"idverify/internal/audit"
	"idverify/internal/imagestore"
	"idverify/internal/liveness"
	"idverify/internal/platform/config"
	"idverify/internal/providers"
	"idverify/internal/verification/metrics"
	"idverify/internal/verification/models"
	"idverify/internal/verification/store"
	"idverify/pkg/domain"
	dErrors "idverify/pkg/domainerrors"
	"idverify/pkg/requestcontext"
)

type Service struct {
	store     store.Store
	images    imagestore.Store
	ocr       providers.OCRProvider
	biometric providers.BiometricProvider
	attempts  *attempts.Service
	audit     *audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	cfg       config.Verification
	rng       *rand.Rand
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAttempts(svc *attempts.Service) Option {
	return func(s *Service) {
		s.attempts = svc
	}
}

func WithAuditPublisher(pub *audit.Publisher) Option {
	return func(s *Service) {
		s.audit = pub
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithConfig(cfg config.Verification) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

func WithImageStore(images imagestore.Store) Option {
	return func(s *Service) {
		s.images = images
	}
}

// WithChallengeRand seeds challenge selection, mainly for tests.
func WithChallengeRand(rng *rand.Rand) Option {
	return func(s *Service) {
		s.rng = rng
	}
}

func New(sessions store.Store, ocr providers.OCRProvider, biometric providers.BiometricProvider, opts ...Option) (*Service, error) {
	if sessions == nil {
		return nil, errors.New("session store is required")
	}
	if ocr == nil {
		return nil, errors.New("ocr provider is required")
	}
	if biometric == nil {
		return nil, errors.New("biometric provider is required")
	}

	svc := &Service{
		store:     sessions,
		images:    imagestore.NewMemory(),
		ocr:       ocr,
		biometric: biometric,
		logger:    slog.Default(),
		cfg:       config.Defaults(),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// StartInput carries everything needed to open a session.
type StartInput struct {
	UserID            domain.UserID
	DocumentType      domain.DocumentType
	DeviceDisplayName string
	ClientIP          string
}

// Start opens a new verification session for the user. At most one session
// per user may be in flight, and users inside an exhaustion cooldown are
// rejected up front.
func (s *Service) Start(ctx context.Context, input StartInput) (*models.Session, error) {
	stageStart := time.Now()
	defer s.metrics.ObserveStage("start", stageStart)

	if s.attempts != nil {
		check, err := s.attempts.Check(ctx, input.UserID)
		if err != nil {
			return nil, err
		}
		if !check.Allowed {
			return nil, dErrors.New(dErrors.CodeAttemptBudgetExceeded,
				"verification attempts exhausted, try again later")
		}
	}

	now := requestcontext.Now(ctx)
	session := &models.Session{
		ID:                 domain.NewSessionID(),
		UserID:             input.UserID,
		DocumentType:       input.DocumentType,
		Status:             models.StatusStarted,
		AttemptNumber:      1,
		MaxAttempts:        s.cfg.MaxAttempts,
		RequiredChallenges: s.selectChallenges(),
		CreatedAt:          now,
		ExpiresAt:          now.Add(s.cfg.SessionTTL),
		DeviceDisplayName:  input.DeviceDisplayName,
		ClientIP:           input.ClientIP,
	}

	if err := s.createSession(ctx, session); err != nil {
		if errors.Is(err, store.ErrActiveSessionExists) {
			return nil, dErrors.New(dErrors.CodeAlreadyActiveSession,
				"user already has an active verification session")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}

	s.metrics.IncrementSessionsStarted()
	s.emitAudit(ctx, session, audit.EventSessionStarted, "", "")
	s.logger.InfoContext(ctx, "verification session started",
		"session_id", session.ID,
		"user_id", session.UserID,
		"document_type", session.DocumentType,
		"attempt", session.AttemptNumber,
	)
	return session, nil
}

func (s *Service) selectChallenges() []domain.ChallengeType {
	count := s.cfg.RequiredChallengeCount
	if count <= 0 {
		count = len(s.cfg.RequiredChallenges)
	}
	return liveness.SelectChallenges(s.cfg.RequiredChallenges, count, s.rng)
}

// createSession retries once after clearing a stale active slot. Expiry is
// lazy on read, so a session whose TTL lapsed without an intervening read
// still occupies the one-active-per-user slot until someone looks at it.
func (s *Service) createSession(ctx context.Context, session *models.Session) error {
	err := s.store.Create(ctx, session)
	if !errors.Is(err, store.ErrActiveSessionExists) {
		return err
	}

	active, findErr := s.store.FindActiveByUser(ctx, session.UserID)
	if errors.Is(findErr, store.ErrNotFound) {
		return s.store.Create(ctx, session)
	}
	if findErr != nil {
		return err
	}
	active, expErr := s.expireIfNeeded(ctx, active)
	if expErr != nil || !active.Status.IsTerminal() {
		return err
	}
	return s.store.Create(ctx, session)
}

// Get returns the session, lazily expiring it when the TTL has elapsed.
func (s *Service) Get(ctx context.Context, sessionID domain.SessionID) (*models.Session, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.expireIfNeeded(ctx, session)
}

func (s *Service) load(ctx context.Context, sessionID domain.SessionID) (*models.Session, error) {
	session, err := s.store.Get(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "verification session not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}
	return session, nil
}

// expireIfNeeded persists the expired status when the TTL elapsed. Losing the
// CAS race means another writer finished first; the fresh read wins either way.
func (s *Service) expireIfNeeded(ctx context.Context, session *models.Session) (*models.Session, error) {
	now := requestcontext.Now(ctx)
	if !session.IsExpired(now) {
		return session, nil
	}

	expected := session.Version
	session.Status = models.StatusExpired
	if err := s.store.Update(ctx, session, expected); err != nil {
		if errors.Is(err, store.ErrConflict) {
			s.metrics.IncrementVersionConflicts()
			return s.load(ctx, session.ID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to expire session")
	}
	s.metrics.RecordOutcome(string(models.StatusExpired), "")
	s.emitAudit(ctx, session, audit.EventSessionExpired, "", "")
	s.logger.InfoContext(ctx, "verification session expired",
		"session_id", session.ID,
		"user_id", session.UserID,
	)
	return session, nil
}

// Cancel aborts an in-flight session. Cancelling an already cancelled session
// is a no-op; other terminal states cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, sessionID domain.SessionID) (*models.Session, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == models.StatusCancelled {
		return session, nil
	}
	if session.Status.IsTerminal() {
		return nil, dErrors.Newf(dErrors.CodeConflict,
			"session is already %s and cannot be cancelled", session.Status)
	}

	expected := session.Version
	session.Status = models.StatusCancelled
	if err := s.store.Update(ctx, session, expected); err != nil {
		return nil, s.mapUpdateError(err)
	}
	s.metrics.RecordOutcome(string(models.StatusCancelled), "")
	s.emitAudit(ctx, session, audit.EventSessionCancelled, "", "")
	s.logger.InfoContext(ctx, "verification session cancelled",
		"session_id", session.ID,
		"user_id", session.UserID,
	)
	return session, nil
}

// Retry opens a fresh session after a failed one, carrying the attempt count
// forward. Challenges are re-drawn; nothing else carries over.
func (s *Service) Retry(ctx context.Context, sessionID domain.SessionID) (*models.Session, error) {
	prior, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if prior.Status != models.StatusFailed {
		return nil, dErrors.Newf(dErrors.CodeRetryNotAllowed,
			"only failed sessions can be retried, session is %s", prior.Status)
	}
	if prior.AttemptsRemaining() == 0 {
		return nil, dErrors.New(dErrors.CodeAttemptBudgetExceeded,
			"verification attempts exhausted, try again later")
	}

	now := requestcontext.Now(ctx)
	next := &models.Session{
		ID:                 domain.NewSessionID(),
		UserID:             prior.UserID,
		DocumentType:       prior.DocumentType,
		Status:             models.StatusStarted,
		AttemptNumber:      prior.AttemptNumber + 1,
		MaxAttempts:        prior.MaxAttempts,
		RequiredChallenges: s.selectChallenges(),
		CreatedAt:          now,
		ExpiresAt:          now.Add(s.cfg.SessionTTL),
		DeviceDisplayName:  requestcontext.DeviceDisplayName(ctx),
		ClientIP:           requestcontext.ClientIP(ctx),
	}
	if err := s.createSession(ctx, next); err != nil {
		if errors.Is(err, store.ErrActiveSessionExists) {
			return nil, dErrors.New(dErrors.CodeAlreadyActiveSession,
				"user already has an active verification session")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create retry session")
	}

	s.metrics.IncrementSessionsStarted()
	s.emitAudit(ctx, next, audit.EventSessionRetried, "", "")
	s.logger.InfoContext(ctx, "verification session retried",
		"session_id", next.ID,
		"previous_session_id", prior.ID,
		"attempt", next.AttemptNumber,
	)
	return next, nil
}

func (s *Service) mapUpdateError(err error) error {
	switch {
	case errors.Is(err, store.ErrConflict):
		s.metrics.IncrementVersionConflicts()
		return dErrors.New(dErrors.CodeConcurrentModification,
			"session was modified concurrently, reload and try again")
	case errors.Is(err, store.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "verification session not found")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update session")
	}
}

func (s *Service) emitAudit(ctx context.Context, session *models.Session, action audit.AuditEvent, stage, reason string) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		Timestamp:         requestcontext.Now(ctx),
		SessionID:         session.ID,
		UserID:            session.UserID,
		Action:            string(action),
		Stage:             stage,
		Reason:            reason,
		RequestID:         requestcontext.RequestID(ctx),
		DeviceDisplayName: session.DeviceDisplayName,
		ClientIP:          session.ClientIP,
	}
	if session.Profile != nil && session.Profile.DocumentNumber != nil {
		event.SubjectIDHash = audit.HashSubjectID(*session.Profile.DocumentNumber)
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", action,
			"session_id", session.ID,
			"error", err,
		)
	}
}
