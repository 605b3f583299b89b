package biometric

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idverify/internal/providers"
	"idverify/pkg/domain"
)

func TestClientVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("assembles all three score envelopes", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			switch r.URL.Path {
			case "/v1/authenticity":
				_ = json.NewEncoder(w).Encode(scorePayload{Score: 0.9, Threshold: 0.7, Passed: true})
			case "/v1/liveness":
				var req struct {
					Challenges []providers.ChallengeResult `json:"challenges"`
				}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Len(t, req.Challenges, 1)
				_ = json.NewEncoder(w).Encode(scorePayload{Score: 0.95, Threshold: 0.8, Passed: true})
			case "/v1/match":
				_ = json.NewEncoder(w).Encode(scorePayload{Score: 0.92, Threshold: 0.85, Passed: true, Faces: 1})
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		}))
		defer srv.Close()

		res, err := New(srv.URL).Verify(ctx, providers.BiometricRequest{
			Selfie:        []byte("selfie"),
			DocumentPhoto: []byte("doc"),
			Challenges:    []providers.ChallengeResult{{Type: domain.ChallengeBlink, Passed: true, Confidence: 0.9}},
		})
		require.NoError(t, err)
		assert.Equal(t, int32(3), calls.Load())
		assert.Equal(t, 0.9, res.DocumentAuthenticity.Score)
		assert.Equal(t, 0.95, res.Liveness.Score)
		assert.Equal(t, 0.92, res.FaceMatch.Score)
		assert.True(t, res.FaceDetected)
	})

	t.Run("no detected face is reported", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/v1/match" {
				_ = json.NewEncoder(w).Encode(scorePayload{Score: 0, Threshold: 0.85, Passed: false, Faces: 0})
				return
			}
			_ = json.NewEncoder(w).Encode(scorePayload{Score: 0.9, Threshold: 0.7, Passed: true})
		}))
		defer srv.Close()

		res, err := New(srv.URL).Verify(ctx, providers.BiometricRequest{})
		require.NoError(t, err)
		assert.False(t, res.FaceDetected)
		assert.False(t, res.FaceMatch.Passed)
	})

	t.Run("single endpoint outage fails the whole call as retryable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/v1/liveness" {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_ = json.NewEncoder(w).Encode(scorePayload{Score: 0.9, Threshold: 0.7, Passed: true})
		}))
		defer srv.Close()

		_, err := New(srv.URL).Verify(ctx, providers.BiometricRequest{})
		require.Error(t, err)
		assert.True(t, providers.IsRetryable(err))
	})
}
