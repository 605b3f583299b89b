package attempts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"idverify/pkg/domain"
	"idverify/pkg/requestcontext"
)

func TestCheckAllowsFreshUser(t *testing.T) {
	svc, err := New(NewMemoryStore())
	require.NoError(t, err)

	result, err := svc.Check(context.Background(), domain.UserID(uuid.New()))
	require.NoError(t, err)
	require.True(t, result.Allowed)
	require.Zero(t, result.FailureCount)
}

func TestFailuresAccumulateWithoutCooldown(t *testing.T) {
	ctx := context.Background()
	svc, err := New(NewMemoryStore())
	require.NoError(t, err)
	userID := domain.UserID(uuid.New())

	require.NoError(t, svc.RecordFailure(ctx, userID, false))
	require.NoError(t, svc.RecordFailure(ctx, userID, false))

	result, err := svc.Check(ctx, userID)
	require.NoError(t, err)
	require.True(t, result.Allowed, "failures below the budget do not block starts")
	require.Equal(t, 2, result.FailureCount)
}

func TestExhaustionStartsCooldown(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	svc, err := New(NewMemoryStore(), WithCooldown(24*time.Hour))
	require.NoError(t, err)
	userID := domain.UserID(uuid.New())

	require.NoError(t, svc.RecordFailure(ctx, userID, true))

	result, err := svc.Check(ctx, userID)
	require.NoError(t, err)
	require.False(t, result.Allowed)
	require.Equal(t, now.Add(24*time.Hour), *result.CanStartAfter)
	require.Equal(t, 24*60*60, result.RetryAfter)

	// One second before expiry: still blocked.
	almost := requestcontext.WithTime(context.Background(), now.Add(24*time.Hour-time.Second))
	result, err = svc.Check(almost, userID)
	require.NoError(t, err)
	require.False(t, result.Allowed)

	// At expiry the user may start again.
	after := requestcontext.WithTime(context.Background(), now.Add(24*time.Hour))
	result, err = svc.Check(after, userID)
	require.NoError(t, err)
	require.True(t, result.Allowed)
}

func TestClearResetsRecord(t *testing.T) {
	ctx := context.Background()
	svc, err := New(NewMemoryStore())
	require.NoError(t, err)
	userID := domain.UserID(uuid.New())

	require.NoError(t, svc.RecordFailure(ctx, userID, true))
	require.NoError(t, svc.Clear(ctx, userID))

	result, err := svc.Check(ctx, userID)
	require.NoError(t, err)
	require.True(t, result.Allowed)
	require.Zero(t, result.FailureCount)
}

func TestNewRequiresStore(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}
