// Package ocr implements the HTTP adapter for the optical extraction provider.
package ocr

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
	"go.opentelemetry.io/otel/trace"

	"idverify/internal/providers"
)

const providerID = "ocr-http"

var tracer = otel.Tracer("idverify/providers/ocr")

// Client calls the OCR provider over HTTP. It owns no persistent state.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithTimeout bounds every provider call. Provider calls are the only
// operations expected to block for non-trivial time.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient swaps the underlying HTTP client (tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates an OCR client against the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// extractRequest is the provider wire format.
type extractRequest struct {
	DocumentType string `json:"document_type"`
	Side         string `json:"side"`
	Image        string `json:"image"` // base64
}

type extractResponse struct {
	Success       bool                     `json:"success"`
	ExtractedData *providers.ExtractedData `json:"extracted_data,omitempty"`
	Confidence    float64                  `json:"confidence"`
	Errors        []string                 `json:"errors,omitempty"`
}

// Extract sends one document image for optical extraction.
//
// Errors are normalized into the provider taxonomy: timeouts and 5xx map to
// retryable categories, malformed payloads to bad_data. A Success=false result
// with capture errors is NOT an error; it is a valid retake outcome.
func (c *Client) Extract(ctx context.Context, req providers.OCRRequest) (*providers.OCRResult, error) {
	ctx, span := tracer.Start(ctx, "ocr.extract", trace.WithAttributes(
		attribute.String("document.type", req.DocumentType.String()),
		attribute.String("document.side", req.Side.String()),
	))
	defer span.End()

	body, err := json.Marshal(extractRequest{
		DocumentType: req.DocumentType.String(),
		Side:         req.Side.String(),
		Image:        base64.StdEncoding.EncodeToString(req.Image),
	})
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorInternal, providerID, "marshal extract request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/extract", bytes.NewReader(body))
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorInternal, providerID, "build extract request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return nil, err
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, providers.NewProviderError(providers.ErrorBadData, providerID, "decode extract response", err)
	}

	span.SetAttributes(
		attribute.Bool("ocr.success", out.Success),
		attribute.Float64("ocr.confidence", out.Confidence),
	)

	return &providers.OCRResult{
		Success:    out.Success,
		Extracted:  out.ExtractedData,
		Confidence: out.Confidence,
		Errors:     out.Errors,
	}, nil
}

// Health verifies the OCR provider is reachable.
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
		return providers.NewProviderError(providers.ErrorTimeout, providerID, "extract call timed out", err)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return providers.NewProviderError(providers.ErrorTimeout, providerID, "extract call timed out", err)
	}
	return providers.NewProviderError(providers.ErrorProviderOutage, providerID, "extract call failed", err)
}

func classifyStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return providers.NewProviderError(providers.ErrorRateLimited, providerID, "provider rate limited", nil)
	case resp.StatusCode >= 500:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return providers.NewProviderError(providers.ErrorProviderOutage, providerID,
			fmt.Sprintf("provider returned %d: %s", resp.StatusCode, string(body)), nil)
	default:
		return providers.NewProviderError(providers.ErrorBadData, providerID,
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
}
