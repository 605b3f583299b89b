package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idverify/internal/providers"
	"idverify/internal/steptoken"
	"idverify/internal/verification/models"
	"idverify/internal/verification/service"
	"idverify/pkg/domain"
	dErrors "idverify/pkg/domainerrors"
)

type fakeService struct {
	startFn           func(ctx context.Context, input service.StartInput) (*models.Session, error)
	captureDocumentFn func(ctx context.Context, sessionID domain.SessionID, side domain.DocumentSide, image []byte) (*service.CaptureResult, error)
	captureSelfieFn   func(ctx context.Context, sessionID domain.SessionID, selfie []byte, challenges []providers.ChallengeResult) (*models.Session, error)
	retryFn           func(ctx context.Context, sessionID domain.SessionID) (*models.Session, error)
	cancelFn          func(ctx context.Context, sessionID domain.SessionID) (*models.Session, error)
	getFn             func(ctx context.Context, sessionID domain.SessionID) (*models.Session, error)
}

func (f *fakeService) Start(ctx context.Context, input service.StartInput) (*models.Session, error) {
	return f.startFn(ctx, input)
}

func (f *fakeService) CaptureDocument(ctx context.Context, sessionID domain.SessionID, side domain.DocumentSide, image []byte) (*service.CaptureResult, error) {
	return f.captureDocumentFn(ctx, sessionID, side, image)
}

func (f *fakeService) CaptureSelfie(ctx context.Context, sessionID domain.SessionID, selfie []byte, challenges []providers.ChallengeResult) (*models.Session, error) {
	return f.captureSelfieFn(ctx, sessionID, selfie, challenges)
}

func (f *fakeService) Retry(ctx context.Context, sessionID domain.SessionID) (*models.Session, error) {
	return f.retryFn(ctx, sessionID)
}

func (f *fakeService) Cancel(ctx context.Context, sessionID domain.SessionID) (*models.Session, error) {
	return f.cancelFn(ctx, sessionID)
}

func (f *fakeService) Get(ctx context.Context, sessionID domain.SessionID) (*models.Session, error) {
	return f.getFn(ctx, sessionID)
}

func newRouter(svc Service) chi.Router {
	h := New(svc, steptoken.New("test-key"), slog.Default())
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func sampleSession() *models.Session {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	return &models.Session{
		ID:                 domain.NewSessionID(),
		UserID:             domain.UserID(uuid.New()),
		DocumentType:       domain.DocumentTypeNationalID,
		Status:             models.StatusStarted,
		AttemptNumber:      1,
		MaxAttempts:        3,
		RequiredChallenges: []domain.ChallengeType{domain.ChallengeBlink, domain.ChallengeSmile},
		CreatedAt:          now,
		ExpiresAt:          now.Add(30 * time.Minute),
	}
}

func doJSON(t *testing.T, router chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) SessionResponse {
	t.Helper()
	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHandleStart(t *testing.T) {
	session := sampleSession()
	svc := &fakeService{
		startFn: func(_ context.Context, input service.StartInput) (*models.Session, error) {
			assert.Equal(t, domain.DocumentTypeNationalID, input.DocumentType)
			return session, nil
		},
	}
	rec := doJSON(t, newRouter(svc), http.MethodPost, "/verification/start", map[string]string{
		"user_id":       uuid.NewString(),
		"document_type": "national_id",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeSession(t, rec)
	assert.Equal(t, session.ID.String(), resp.ID)
	assert.Equal(t, "started", resp.Status)
	assert.Equal(t, "capture_document_front", resp.NextStep)
	assert.NotEmpty(t, resp.StepToken)
	assert.Equal(t, []string{"blink", "smile"}, resp.RequiredChallenges)
}

func TestHandleStartValidation(t *testing.T) {
	svc := &fakeService{}
	router := newRouter(svc)

	cases := []struct {
		name string
		body map[string]string
	}{
		{"missing user id", map[string]string{"document_type": "passport"}},
		{"malformed user id", map[string]string{"user_id": "nope", "document_type": "passport"}},
		{"unknown document type", map[string]string{"user_id": uuid.NewString(), "document_type": "library_card"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/verification/start", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleStartCooldown(t *testing.T) {
	svc := &fakeService{
		startFn: func(context.Context, service.StartInput) (*models.Session, error) {
			return nil, dErrors.New(dErrors.CodeAttemptBudgetExceeded, "try again later")
		},
	}
	rec := doJSON(t, newRouter(svc), http.MethodPost, "/verification/start", map[string]string{
		"user_id":       uuid.NewString(),
		"document_type": "passport",
	})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHandleCaptureDocument(t *testing.T) {
	session := sampleSession()
	session.Status = models.StatusDocumentFrontCaptured
	session.DocumentFrontCaptured = true

	svc := &fakeService{
		captureDocumentFn: func(_ context.Context, sessionID domain.SessionID, side domain.DocumentSide, image []byte) (*service.CaptureResult, error) {
			assert.Equal(t, session.ID, sessionID)
			assert.Equal(t, domain.DocumentSideFront, side)
			assert.Equal(t, []byte("image-bytes"), image)
			return &service.CaptureResult{Session: session}, nil
		},
	}

	path := fmt.Sprintf("/verification/%s/document/front", session.ID)
	rec := doJSON(t, newRouter(svc), http.MethodPost, path, map[string]string{
		"image": base64.StdEncoding.EncodeToString([]byte("image-bytes")),
	})

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeSession(t, rec)
	assert.Equal(t, "document_front_captured", resp.Status)
	assert.Equal(t, "capture_document_back", resp.NextStep)
	assert.False(t, resp.Retake)
}

func TestHandleCaptureDocumentRetake(t *testing.T) {
	session := sampleSession()
	svc := &fakeService{
		captureDocumentFn: func(context.Context, domain.SessionID, domain.DocumentSide, []byte) (*service.CaptureResult, error) {
			return &service.CaptureResult{
				Session:      session,
				Retake:       true,
				RetakeReason: models.FailureDocumentBlurry,
			}, nil
		},
	}

	path := fmt.Sprintf("/verification/%s/document/front", session.ID)
	rec := doJSON(t, newRouter(svc), http.MethodPost, path, map[string]string{
		"image": base64.StdEncoding.EncodeToString([]byte("blurry")),
	})

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeSession(t, rec)
	assert.True(t, resp.Retake)
	assert.Equal(t, "document_blurry", resp.RetakeReason)
}

func TestHandleCaptureDocumentRejectsBadInput(t *testing.T) {
	session := sampleSession()
	router := newRouter(&fakeService{})

	rec := doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/verification/%s/document/sideways", session.ID),
		map[string]string{"image": base64.StdEncoding.EncodeToString([]byte("x"))})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/verification/%s/document/front", session.ID),
		map[string]string{"image": "!!not-base64!!"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost,
		"/verification/not-a-uuid/document/front",
		map[string]string{"image": base64.StdEncoding.EncodeToString([]byte("x"))})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCaptureDocumentRejectsForeignStepToken(t *testing.T) {
	session := sampleSession()
	tokens := steptoken.New("test-key")
	other, err := tokens.Issue(domain.NewSessionID(), "capture_document_front", time.Now())
	require.NoError(t, err)

	rec := doJSON(t, newRouter(&fakeService{}), http.MethodPost,
		fmt.Sprintf("/verification/%s/document/front", session.ID),
		map[string]string{
			"image":      base64.StdEncoding.EncodeToString([]byte("x")),
			"step_token": other,
		})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleCaptureSelfie(t *testing.T) {
	session := sampleSession()
	session.Status = models.StatusCompleted
	score := 0.91
	session.Scores.Overall = &score
	name := "Jane Q. Applicant"
	session.Profile = &models.ExtractedProfile{FullName: &name}

	svc := &fakeService{
		captureSelfieFn: func(_ context.Context, _ domain.SessionID, _ []byte, challenges []providers.ChallengeResult) (*models.Session, error) {
			require.Len(t, challenges, 1)
			assert.Equal(t, domain.ChallengeBlink, challenges[0].Type)
			return session, nil
		},
	}

	rec := doJSON(t, newRouter(svc), http.MethodPost,
		fmt.Sprintf("/verification/%s/selfie", session.ID),
		map[string]any{
			"image": base64.StdEncoding.EncodeToString([]byte("selfie")),
			"challenges": []map[string]any{
				{"type": "blink", "passed": true, "confidence": 0.93},
			},
		})

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeSession(t, rec)
	assert.Equal(t, "completed", resp.Status)
	require.NotNil(t, resp.Profile)
	assert.Equal(t, "Jane Q. Applicant", *resp.Profile.FullName)
	require.NotNil(t, resp.Scores)
	assert.Equal(t, 0.91, *resp.Scores.Overall)
}

func TestHandleCaptureSelfieFailedHidesProfile(t *testing.T) {
	session := sampleSession()
	session.Status = models.StatusFailed
	session.FailureReason = models.FailureFaceMismatch
	name := "Jane Q. Applicant"
	session.Profile = &models.ExtractedProfile{FullName: &name}

	svc := &fakeService{
		captureSelfieFn: func(context.Context, domain.SessionID, []byte, []providers.ChallengeResult) (*models.Session, error) {
			return session, nil
		},
	}

	rec := doJSON(t, newRouter(svc), http.MethodPost,
		fmt.Sprintf("/verification/%s/selfie", session.ID),
		map[string]any{"image": base64.StdEncoding.EncodeToString([]byte("selfie"))})

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeSession(t, rec)
	assert.Equal(t, "failed", resp.Status)
	assert.Equal(t, "face_mismatch", resp.FailureReason)
	assert.Nil(t, resp.Profile)
	assert.True(t, resp.CanRetry)
}

func TestHandleGetErrors(t *testing.T) {
	svc := &fakeService{
		getFn: func(context.Context, domain.SessionID) (*models.Session, error) {
			return nil, dErrors.New(dErrors.CodeNotFound, "verification session not found")
		},
	}
	rec := doJSON(t, newRouter(svc), http.MethodGet,
		fmt.Sprintf("/verification/%s", domain.NewSessionID()), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleCancelConflict(t *testing.T) {
	svc := &fakeService{
		cancelFn: func(context.Context, domain.SessionID) (*models.Session, error) {
			return nil, dErrors.New(dErrors.CodeConflict, "session is already completed")
		},
	}
	rec := doJSON(t, newRouter(svc), http.MethodPost,
		fmt.Sprintf("/verification/%s/cancel", domain.NewSessionID()), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleRetry(t *testing.T) {
	next := sampleSession()
	next.AttemptNumber = 2
	svc := &fakeService{
		retryFn: func(context.Context, domain.SessionID) (*models.Session, error) {
			return next, nil
		},
	}
	rec := doJSON(t, newRouter(svc), http.MethodPost,
		fmt.Sprintf("/verification/%s/retry", domain.NewSessionID()), nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeSession(t, rec)
	assert.Equal(t, 2, resp.AttemptNumber)
	assert.NotEmpty(t, resp.StepToken)
}
