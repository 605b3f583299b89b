package service

import (
	"context"
	"fmt"
	"time"

	"idverify/internal/audit"
	"idverify/internal/document"
	"idverify/internal/liveness"
	"idverify/internal/providers"
	"idverify/internal/verification"
	"idverify/internal/verification/models"
	"idverify/pkg/domain"
	dErrors "idverify/pkg/domainerrors"
	"idverify/pkg/requestcontext"
)

// CaptureResult is the outcome of a document capture. Retake means the image
// was rejected for quality and the session stayed where it was; the client
// should submit a new photo of the same side.
type CaptureResult struct {
	Session      *models.Session
	Retake       bool
	RetakeReason models.FailureReason
}

// CaptureDocument ingests one side of the identity document: runs extraction,
// merges the profile, validates it, and advances the session. Passports skip
// the back side entirely. When the captured side completes the document, the
// session moves through processing straight to awaiting the selfie.
func (s *Service) CaptureDocument(ctx context.Context, sessionID domain.SessionID, side domain.DocumentSide, image []byte) (*CaptureResult, error) {
	stage := "document_" + string(side)
	stageStart := time.Now()
	defer s.metrics.ObserveStage(stage, stageStart)

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session, err = s.expireIfNeeded(ctx, session)
	if err != nil {
		return nil, err
	}
	if session.Status == models.StatusExpired {
		return nil, dErrors.New(dErrors.CodeSessionExpired, "verification session has expired")
	}
	if err := s.checkDocumentStage(session, side); err != nil {
		return nil, err
	}

	ocrResult, err := s.extract(ctx, session, side, image)
	if err != nil {
		return nil, err
	}
	if !ocrResult.Success {
		return s.rejectCapture(ctx, session, stage, models.CaptureReasonFor(ocrResult.Errors))
	}

	if session.Profile == nil {
		session.Profile = &models.ExtractedProfile{}
	}
	session.Profile.Merge(ocrResult.Extracted)
	session.Scores.OCRConfidence = mergeConfidence(session.Scores.OCRConfidence, ocrResult.Confidence)

	validation := document.Validate(session.DocumentType, extractionForValidation(session.Profile), document.Policy{
		ExpirationGraceDays: s.cfg.DocumentExpirationDays,
		MinimumAge:          s.cfg.MinimumAge,
	}, requestcontext.Now(ctx))
	session.DocumentValidation = &validation
	if validation.BlocksCapture() {
		return s.rejectCapture(ctx, session, stage, models.FailureInvalidDocumentNumber)
	}

	if side == domain.DocumentSideFront {
		ref, err := s.images.Put(ctx, image)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store document image")
		}
		session.DocumentPhotoRef = ref
		session.DocumentFrontCaptured = true
	} else {
		session.DocumentBackCaptured = true
	}

	expected := session.Version
	if err := s.advanceAfterDocument(session, side); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, session, expected); err != nil {
		return nil, s.mapUpdateError(err)
	}

	s.emitAudit(ctx, session, audit.EventStageCaptured, stage, "")
	s.logger.InfoContext(ctx, "document side captured",
		"session_id", session.ID,
		"side", side,
		"status", session.Status,
		"ocr_confidence", ocrResult.Confidence,
	)
	return &CaptureResult{Session: session}, nil
}

func (s *Service) checkDocumentStage(session *models.Session, side domain.DocumentSide) error {
	if session.Status.IsTerminal() {
		return dErrors.Newf(dErrors.CodeIllegalStageTransition,
			"session is %s, no further captures are accepted", session.Status)
	}
	switch side {
	case domain.DocumentSideFront:
		if session.Status != models.StatusStarted {
			return dErrors.Newf(dErrors.CodeIllegalStageTransition,
				"document front must be captured first, session is %s", session.Status)
		}
	case domain.DocumentSideBack:
		if !session.DocumentType.HasBackSide() {
			return dErrors.Newf(dErrors.CodeInvalidInput,
				"%s has no back side", session.DocumentType)
		}
		if session.Status != models.StatusDocumentFrontCaptured {
			return dErrors.Newf(dErrors.CodeIllegalStageTransition,
				"document back requires a captured front, session is %s", session.Status)
		}
	default:
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown document side %q", side)
	}
	return nil
}

// advanceAfterDocument walks the session through the post-capture statuses.
// Document processing is synchronous, so a completed document lands directly
// in awaiting_selfie.
func (s *Service) advanceAfterDocument(session *models.Session, side domain.DocumentSide) error {
	var path []models.Status
	if side == domain.DocumentSideFront {
		if session.DocumentType.HasBackSide() {
			path = []models.Status{models.StatusDocumentFrontCaptured}
		} else {
			path = []models.Status{
				models.StatusDocumentFrontCaptured,
				models.StatusDocumentProcessing,
				models.StatusAwaitingSelfie,
			}
		}
	} else {
		path = []models.Status{
			models.StatusDocumentBackCaptured,
			models.StatusDocumentProcessing,
			models.StatusAwaitingSelfie,
		}
	}
	return walk(session, path)
}

func walk(session *models.Session, path []models.Status) error {
	for _, next := range path {
		if !session.Status.CanTransitionTo(next) {
			return dErrors.Newf(dErrors.CodeIllegalStageTransition,
				"illegal transition %s -> %s", session.Status, next)
		}
		session.Status = next
	}
	return nil
}

// rejectCapture handles a quality rejection. The session stays at its current
// stage so the client can retake the photo. When configured, the rejection
// also burns an attempt, and burning the last one fails the session.
func (s *Service) rejectCapture(ctx context.Context, session *models.Session, stage string, reason models.FailureReason) (*CaptureResult, error) {
	s.logger.InfoContext(ctx, "capture rejected for quality",
		"session_id", session.ID,
		"stage", stage,
		"reason", reason,
	)

	if !s.cfg.QualityConsumesAttempt {
		return &CaptureResult{Session: session, Retake: true, RetakeReason: reason}, nil
	}

	expected := session.Version
	session.AttemptNumber++
	exhausted := session.AttemptNumber > session.MaxAttempts
	if exhausted {
		session.AttemptNumber = session.MaxAttempts
		session.Status = models.StatusFailed
		session.FailureReason = models.FailureMultipleAttemptsFailed
		session.FailureDetails = reason.Explanation()
	}
	if err := s.store.Update(ctx, session, expected); err != nil {
		return nil, s.mapUpdateError(err)
	}
	if s.attempts != nil {
		if err := s.attempts.RecordFailure(ctx, session.UserID, exhausted); err != nil {
			s.logger.ErrorContext(ctx, "failed to record attempt failure", "error", err)
		}
	}
	if exhausted {
		s.metrics.RecordOutcome(string(models.StatusFailed), string(session.FailureReason))
		s.emitAudit(ctx, session, audit.EventSessionFailed, stage, string(session.FailureReason))
	}
	return &CaptureResult{Session: session, Retake: !exhausted, RetakeReason: reason}, nil
}

func (s *Service) extract(ctx context.Context, session *models.Session, side domain.DocumentSide, image []byte) (*providers.OCRResult, error) {
	callStart := time.Now()
	result, err := s.ocr.Extract(ctx, providers.OCRRequest{
		DocumentType: session.DocumentType,
		Side:         side,
		Image:        image,
	})
	if err != nil {
		s.metrics.RecordProviderCall("ocr", "error", callStart)
		return nil, s.mapProviderError(ctx, err, "ocr")
	}
	s.metrics.RecordProviderCall("ocr", "ok", callStart)
	return result, nil
}

func (s *Service) mapProviderError(ctx context.Context, err error, provider string) error {
	s.logger.ErrorContext(ctx, "provider call failed",
		"provider", provider,
		"retryable", providers.IsRetryable(err),
		"category", providers.GetCategory(err),
		"error", err,
	)
	return dErrors.Wrap(err, dErrors.CodeProviderUnavailable,
		fmt.Sprintf("%s provider is unavailable, retry the capture", provider))
}

// CaptureSelfie ingests the selfie plus recorded challenge results, runs the
// biometric checks, and settles the session with a final decision.
func (s *Service) CaptureSelfie(ctx context.Context, sessionID domain.SessionID, selfie []byte, challengeResults []providers.ChallengeResult) (*models.Session, error) {
	stageStart := time.Now()
	defer s.metrics.ObserveStage("selfie", stageStart)

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session, err = s.expireIfNeeded(ctx, session)
	if err != nil {
		return nil, err
	}
	if session.Status == models.StatusExpired {
		return nil, dErrors.New(dErrors.CodeSessionExpired, "verification session has expired")
	}
	if session.Status != models.StatusAwaitingSelfie {
		return nil, dErrors.Newf(dErrors.CodeIllegalStageTransition,
			"selfie capture requires a completed document, session is %s", session.Status)
	}

	documentPhoto, err := s.images.Get(ctx, session.DocumentPhotoRef)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load document image")
	}

	callStart := time.Now()
	bio, err := s.biometric.Verify(ctx, providers.BiometricRequest{
		Selfie:        selfie,
		DocumentPhoto: documentPhoto,
		Challenges:    challengeResults,
	})
	if err != nil {
		s.metrics.RecordProviderCall("biometric", "error", callStart)
		return nil, s.mapProviderError(ctx, err, "biometric")
	}
	s.metrics.RecordProviderCall("biometric", "ok", callStart)

	livenessScore, livenessPassed := s.effectiveLiveness(session, bio, challengeResults)

	faceMatchScore := bio.FaceMatch.Score
	if !bio.FaceDetected {
		faceMatchScore = 0
	}

	ocrConfidence := 0.0
	if session.Scores.OCRConfidence != nil {
		ocrConfidence = *session.Scores.OCRConfidence
	}

	// Provider pass verdicts are floored by local policy: a provider may run
	// a laxer threshold than this deployment accepts.
	decision := verification.Evaluate(verification.DecisionInput{
		DocumentAuthenticity: bio.DocumentAuthenticity.Score,
		AuthenticityPassed:   bio.DocumentAuthenticity.Passed && bio.DocumentAuthenticity.Score >= s.cfg.AuthenticityThreshold,
		Liveness:             livenessScore,
		LivenessPassed:       livenessPassed,
		FaceMatch:            faceMatchScore,
		FaceMatchPassed:      bio.FaceDetected && bio.FaceMatch.Passed && faceMatchScore >= s.cfg.FaceMatchThreshold,
		FaceDetected:         bio.FaceDetected,
		OCRConfidence:        ocrConfidence,
		Validation:           session.DocumentValidation,
		AttemptNumber:        session.AttemptNumber,
		MaxAttempts:          session.MaxAttempts,
	}, s.cfg.Weights, s.cfg.OverallThreshold)

	expected := session.Version
	if err := walk(session, []models.Status{
		models.StatusSelfieCaptured,
		models.StatusProcessingBiometrics,
	}); err != nil {
		return nil, err
	}

	session.SelfieCaptured = true
	session.Scores.DocumentAuthenticity = &bio.DocumentAuthenticity.Score
	session.Scores.Liveness = &livenessScore
	session.Scores.FaceMatch = &faceMatchScore
	session.Scores.Overall = &decision.OverallScore

	now := requestcontext.Now(ctx)
	session.CompletedAt = &now
	if decision.Verified {
		session.Status = models.StatusCompleted
	} else {
		session.Status = models.StatusFailed
		session.FailureReason = decision.Reason
		session.FailureDetails = decision.Details
	}

	// The single version-checked write is also the cancellation check: a
	// concurrent cancel bumped the version, so this write loses and the
	// decision is discarded.
	if err := s.store.Update(ctx, session, expected); err != nil {
		return nil, s.mapUpdateError(err)
	}

	s.settleAttempts(ctx, session)
	s.metrics.RecordOutcome(string(session.Status), string(session.FailureReason))
	if decision.Verified {
		s.emitAudit(ctx, session, audit.EventSessionVerified, "selfie", "")
	} else {
		s.emitAudit(ctx, session, audit.EventSessionFailed, "selfie", string(session.FailureReason))
	}
	s.logger.InfoContext(ctx, "verification decision settled",
		"session_id", session.ID,
		"status", session.Status,
		"overall_score", decision.OverallScore,
		"reason", session.FailureReason,
	)
	_ = s.images.Delete(ctx, session.DocumentPhotoRef)
	return session, nil
}

// effectiveLiveness folds the provider liveness score with challenge
// validation. Any missing or failed required challenge forces a zero.
func (s *Service) effectiveLiveness(session *models.Session, bio *providers.BiometricResult, results []providers.ChallengeResult) (float64, bool) {
	if !s.cfg.LivenessEnabled {
		return 1.0, true
	}
	outcome := liveness.ValidateAttempt(session.RequiredChallenges, results)
	if !outcome.Passed {
		return 0, false
	}
	score := (outcome.Score + bio.Liveness.Score) / 2
	passed := bio.Liveness.Passed && bio.Liveness.Score >= s.cfg.LivenessThreshold
	return score, passed
}

func (s *Service) settleAttempts(ctx context.Context, session *models.Session) {
	if s.attempts == nil {
		return
	}
	var err error
	if session.Status == models.StatusCompleted {
		err = s.attempts.Clear(ctx, session.UserID)
	} else {
		err = s.attempts.RecordFailure(ctx, session.UserID, session.AttemptsRemaining() == 0)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to settle attempt record",
			"session_id", session.ID,
			"error", err,
		)
	}
}

// mergeConfidence keeps the weakest side's confidence: a document is only as
// readable as its worst photo.
func mergeConfidence(existing *float64, latest float64) *float64 {
	if existing == nil || latest < *existing {
		return &latest
	}
	return existing
}

// extractionForValidation maps the merged profile back into the provider
// shape the validator consumes.
func extractionForValidation(profile *models.ExtractedProfile) *providers.ExtractedData {
	if profile == nil {
		return nil
	}
	return &providers.ExtractedData{
		FullName:       profile.FullName,
		FirstName:      profile.FirstName,
		LastName:       profile.LastName,
		DocumentNumber: profile.DocumentNumber,
		DateOfBirth:    profile.DateOfBirth,
		ExpiryDate:     profile.ExpiryDate,
		Nationality:    profile.Nationality,
		Gender:         profile.Gender,
		Address:        profile.Address,
	}
}
