package attempts

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"idverify/pkg/domain"
	dErrors "idverify/pkg/domainerrors"
	"idverify/pkg/requestcontext"
)

// Store persists attempt-exhaustion records keyed by user.
type Store interface {
	Get(ctx context.Context, userID string) (*Record, error)
	Save(ctx context.Context, record *Record) error
	Clear(ctx context.Context, userID string) error
}

type Service struct {
	store    Store
	logger   *slog.Logger
	cooldown time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithCooldown(d time.Duration) Option {
	return func(s *Service) {
		s.cooldown = d
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("attempts store is required")
	}
	svc := &Service{
		store:    store,
		logger:   slog.Default(),
		cooldown: 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Check reports whether the user may start a verification session. A zero
// record means no prior failures and an allowed start.
func (s *Service) Check(ctx context.Context, userID domain.UserID) (*Result, error) {
	record, err := s.store.Get(ctx, userID.String())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to get attempt record")
	}
	if record == nil {
		record = &Record{}
	}

	now := requestcontext.Now(ctx)
	if record.IsCoolingDownAt(now) {
		retryAfter := int(record.CanStartAfter.Sub(now).Seconds())
		if retryAfter < 0 {
			retryAfter = 0
		}
		s.logger.InfoContext(ctx, "verification start blocked by cooldown",
			"user_id", userID,
			"can_start_after", record.CanStartAfter,
		)
		return &Result{
			Allowed:       false,
			RetryAfter:    retryAfter,
			CanStartAfter: record.CanStartAfter,
			FailureCount:  record.FailureCount,
		}, nil
	}

	return &Result{Allowed: true, FailureCount: record.FailureCount}, nil
}

// RecordFailure notes a failed attempt. When the budget is exhausted the
// cooldown timer starts; until then failures only accumulate.
func (s *Service) RecordFailure(ctx context.Context, userID domain.UserID, exhausted bool) error {
	record, err := s.store.Get(ctx, userID.String())
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to get attempt record")
	}
	if record == nil {
		record = &Record{UserID: userID.String()}
	}

	now := requestcontext.Now(ctx)
	record.FailureCount++
	record.LastFailureAt = now
	if exhausted {
		after := now.Add(s.cooldown)
		record.CanStartAfter = &after
		s.logger.InfoContext(ctx, "attempt budget exhausted, cooldown started",
			"user_id", userID,
			"failure_count", record.FailureCount,
			"can_start_after", after,
		)
	}

	if err := s.store.Save(ctx, record); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save attempt record")
	}
	return nil
}

// Clear wipes the record after a successful verification.
func (s *Service) Clear(ctx context.Context, userID domain.UserID) error {
	if err := s.store.Clear(ctx, userID.String()); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear attempt record")
	}
	return nil
}
