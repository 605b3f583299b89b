// Package biometric implements the HTTP adapter for the liveness and
// face-matching scoring provider. One Verify call fans out to the provider's
// authenticity, liveness, and match endpoints in parallel and assembles the
// three score envelopes.
package biometric

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"idverify/internal/providers"
)

const providerID = "biometric-http"

var tracer = otel.Tracer("idverify/providers/biometric")

// Client calls the biometric provider over HTTP. It owns no persistent state.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithTimeout bounds every provider call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// New creates a biometric client against the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type scorePayload struct {
	Score     float64                 `json:"score"`
	Threshold float64                 `json:"threshold"`
	Passed    bool                    `json:"passed"`
	Details   []providers.CheckDetail `json:"details,omitempty"`
	Faces     int                     `json:"detected_faces,omitempty"`
}

// Verify fans out to the three scoring endpoints concurrently. Any single
// failure aborts the whole call; partial scores are never surfaced.
func (c *Client) Verify(ctx context.Context, req providers.BiometricRequest) (*providers.BiometricResult, error) {
	ctx, span := tracer.Start(ctx, "biometric.verify")
	defer span.End()

	selfie := base64.StdEncoding.EncodeToString(req.Selfie)
	docPhoto := base64.StdEncoding.EncodeToString(req.DocumentPhoto)

	var result providers.BiometricResult

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		out, err := c.post(gctx, "/v1/authenticity", map[string]any{
			"document_image": docPhoto,
		})
		if err != nil {
			return fmt.Errorf("authenticity: %w", err)
		}
		result.DocumentAuthenticity = out.toScoreResult()
		return nil
	})

	g.Go(func() error {
		out, err := c.post(gctx, "/v1/liveness", map[string]any{
			"selfie":     selfie,
			"challenges": req.Challenges,
		})
		if err != nil {
			return fmt.Errorf("liveness: %w", err)
		}
		result.Liveness = out.toScoreResult()
		return nil
	})

	g.Go(func() error {
		out, err := c.post(gctx, "/v1/match", map[string]any{
			"selfie":         selfie,
			"document_image": docPhoto,
		})
		if err != nil {
			return fmt.Errorf("match: %w", err)
		}
		result.FaceMatch = out.toScoreResult()
		result.FaceDetected = out.Faces > 0
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Float64("biometric.face_match", result.FaceMatch.Score),
		attribute.Float64("biometric.liveness", result.Liveness.Score),
		attribute.Float64("biometric.authenticity", result.DocumentAuthenticity.Score),
	)
	return &result, nil
}

func (p scorePayload) toScoreResult() providers.ScoreResult {
	return providers.ScoreResult{
		Score:     p.Score,
		Threshold: p.Threshold,
		Passed:    p.Passed,
		Details:   p.Details,
	}
}

func (c *Client) post(ctx context.Context, path string, body any) (*scorePayload, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorInternal, providerID, "marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorInternal, providerID, "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, providers.NewProviderError(providers.ErrorRateLimited, providerID, "provider rate limited", nil)
	case resp.StatusCode >= 500:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, providers.NewProviderError(providers.ErrorProviderOutage, providerID,
			fmt.Sprintf("provider returned %d: %s", resp.StatusCode, string(payload)), nil)
	default:
		return nil, providers.NewProviderError(providers.ErrorBadData, providerID,
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var out scorePayload
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, providers.NewProviderError(providers.ErrorBadData, providerID, "decode response", err)
	}
	return &out, nil
}

// Health verifies the biometric provider is reachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return providers.NewProviderError(providers.ErrorProviderOutage, providerID,
			fmt.Sprintf("health check returned %d", resp.StatusCode), nil)
	}
	return nil
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return providers.NewProviderError(providers.ErrorTimeout, providerID, "call timed out", err)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return providers.NewProviderError(providers.ErrorTimeout, providerID, "call timed out", err)
	}
	return providers.NewProviderError(providers.ErrorProviderOutage, providerID, "call failed", err)
}
