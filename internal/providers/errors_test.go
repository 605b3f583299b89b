package providers

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewProviderError(t *testing.T) {
	t.Run("outage and timeout are retryable", func(t *testing.T) {
		assert.True(t, NewProviderError(ErrorProviderOutage, "ocr", "down", nil).Retryable)
		assert.True(t, NewProviderError(ErrorTimeout, "ocr", "slow", nil).Retryable)
		assert.True(t, NewProviderError(ErrorRateLimited, "ocr", "429", nil).Retryable)
	})

	t.Run("bad data is not retryable", func(t *testing.T) {
		assert.False(t, NewProviderError(ErrorBadData, "biometric", "garbage json", nil).Retryable)
		assert.False(t, NewProviderError(ErrorInternal, "biometric", "boom", nil).Retryable)
	})
}

func TestIsRetryable(t *testing.T) {
	t.Run("unwraps through fmt.Errorf", func(t *testing.T) {
		inner := NewProviderError(ErrorTimeout, "ocr", "deadline", nil)
		wrapped := fmt.Errorf("extract: %w", inner)
		assert.True(t, IsRetryable(wrapped))
		assert.Equal(t, ErrorTimeout, GetCategory(wrapped))
	})

	t.Run("plain errors are not retryable", func(t *testing.T) {
		assert.False(t, IsRetryable(errors.New("nope")))
		assert.Equal(t, ErrorInternal, GetCategory(errors.New("nope")))
	})
}
