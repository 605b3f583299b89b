// Package handler exposes the verification flow over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"idverify/internal/providers"
	"idverify/internal/steptoken"
	"idverify/internal/verification/models"
	"idverify/internal/verification/service"
	"idverify/pkg/domain"
	dErrors "idverify/pkg/domainerrors"
	"idverify/pkg/platform/httputil"
	"idverify/pkg/requestcontext"
)

// Service defines the verification operations the handler needs.
type Service interface {
	Start(ctx context.Context, input service.StartInput) (*models.Session, error)
	CaptureDocument(ctx context.Context, sessionID domain.SessionID, side domain.DocumentSide, image []byte) (*service.CaptureResult, error)
	CaptureSelfie(ctx context.Context, sessionID domain.SessionID, selfie []byte, challenges []providers.ChallengeResult) (*models.Session, error)
	Retry(ctx context.Context, sessionID domain.SessionID) (*models.Session, error)
	Cancel(ctx context.Context, sessionID domain.SessionID) (*models.Session, error)
	Get(ctx context.Context, sessionID domain.SessionID) (*models.Session, error)
}

// Handler wires verification endpoints to the orchestrator service.
type Handler struct {
	service Service
	tokens  *steptoken.Issuer
	logger  *slog.Logger
}

func New(svc Service, tokens *steptoken.Issuer, logger *slog.Logger) *Handler {
	return &Handler{
		service: svc,
		tokens:  tokens,
		logger:  logger,
	}
}

// Register mounts verification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/verification/start", h.HandleStart)
	r.Post("/verification/{sessionID}/document/{side}", h.HandleCaptureDocument)
	r.Post("/verification/{sessionID}/selfie", h.HandleCaptureSelfie)
	r.Post("/verification/{sessionID}/retry", h.HandleRetry)
	r.Post("/verification/{sessionID}/cancel", h.HandleCancel)
	r.Get("/verification/{sessionID}", h.HandleGet)
}

// HandleStart handles POST /verification/start.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[StartRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	session, err := h.service.Start(ctx, service.StartInput{
		UserID:            req.ParsedUserID(),
		DocumentType:      req.ParsedDocumentType(),
		DeviceDisplayName: requestcontext.DeviceDisplayName(ctx),
		ClientIP:          requestcontext.ClientIP(ctx),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "verification start failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "verification started",
		"request_id", requestID,
		"session_id", session.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromSession(session, h.issueToken(ctx, session)))
}

// HandleCaptureDocument handles POST /verification/{sessionID}/document/{side}.
func (h *Handler) HandleCaptureDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	sessionID, ok := h.sessionIDFromPath(w, r)
	if !ok {
		return
	}
	side, err := domain.ParseDocumentSide(strings.TrimSpace(chi.URLParam(r, "side")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[CaptureDocumentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if !h.checkStepToken(w, req.StepToken, sessionID) {
		return
	}

	result, err := h.service.CaptureDocument(ctx, sessionID, side, req.DecodedImage())
	if err != nil {
		h.logger.ErrorContext(ctx, "document capture failed",
			"request_id", requestID,
			"session_id", sessionID,
			"side", side,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromCaptureResult(result, h.issueToken(ctx, result.Session)))
}

// HandleCaptureSelfie handles POST /verification/{sessionID}/selfie.
func (h *Handler) HandleCaptureSelfie(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	sessionID, ok := h.sessionIDFromPath(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[CaptureSelfieRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if !h.checkStepToken(w, req.StepToken, sessionID) {
		return
	}

	session, err := h.service.CaptureSelfie(ctx, sessionID, req.DecodedImage(), req.ParsedChallenges())
	if err != nil {
		h.logger.ErrorContext(ctx, "selfie capture failed",
			"request_id", requestID,
			"session_id", sessionID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromSession(session, ""))
}

// HandleRetry handles POST /verification/{sessionID}/retry.
func (h *Handler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionIDFromPath(w, r)
	if !ok {
		return
	}

	session, err := h.service.Retry(ctx, sessionID)
	if err != nil {
		h.logger.ErrorContext(ctx, "verification retry failed",
			"request_id", requestcontext.RequestID(ctx),
			"session_id", sessionID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromSession(session, h.issueToken(ctx, session)))
}

// HandleCancel handles POST /verification/{sessionID}/cancel.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionIDFromPath(w, r)
	if !ok {
		return
	}

	session, err := h.service.Cancel(ctx, sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSession(session, ""))
}

// HandleGet handles GET /verification/{sessionID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionIDFromPath(w, r)
	if !ok {
		return
	}

	session, err := h.service.Get(ctx, sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSession(session, ""))
}

func (h *Handler) sessionIDFromPath(w http.ResponseWriter, r *http.Request) (domain.SessionID, bool) {
	sessionID, err := domain.ParseSessionID(strings.TrimSpace(chi.URLParam(r, "sessionID")))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid session id"))
		return domain.SessionID{}, false
	}
	return sessionID, true
}

// checkStepToken verifies the token when one is presented. Tokens are issued
// with every stage response; clients that omit them still pass, the state
// machine remains the authority on ordering.
func (h *Handler) checkStepToken(w http.ResponseWriter, token string, sessionID domain.SessionID) bool {
	if h.tokens == nil || token == "" {
		return true
	}
	if _, err := h.tokens.Verify(token, sessionID); err != nil {
		httputil.WriteError(w, err)
		return false
	}
	return true
}

func (h *Handler) issueToken(ctx context.Context, session *models.Session) string {
	if h.tokens == nil || session.Status.IsTerminal() {
		return ""
	}
	token, err := h.tokens.Issue(session.ID, session.NextStep(), requestcontext.Now(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue step token",
			"session_id", session.ID,
			"error", err,
		)
		return ""
	}
	return token
}
