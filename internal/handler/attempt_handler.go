package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/proctorly/backend/internal/middleware"
	"github.com/proctorly/backend/internal/model"
	"github.com/proctorly/backend/internal/response"
	"github.com/proctorly/backend/internal/service"
	"github.com/proctorly/backend/internal/validator"
)

// AttemptHandler handles the student-facing attempt endpoints.
type AttemptHandler struct {
	attemptService     *service.AttemptService
	malpracticeService *service.MalpracticeService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(
	attemptService *service.AttemptService,
	malpracticeService *service.MalpracticeService,
) *AttemptHandler {
	return &AttemptHandler{
		attemptService:     attemptService,
		malpracticeService: malpracticeService,
	}
}

// GetLobby godoc
// GET /api/v1/student/tests
// Returns live tests overlaid with the student's own attempt state.
func (h *AttemptHandler) GetLobby(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	lobby, err := h.attemptService.GetLobby(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"tests": lobby})
}

// GetCurrentAttempt godoc
// GET /api/v1/student/tests/:test_id/attempt
// Returns the student's attempt for the test, or null if none exists.
func (h *AttemptHandler) GetCurrentAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, ok := parseUUIDParam(c, "test_id")
	if !ok {
		return
	}

	attempt, err := h.attemptService.GetCurrentAttempt(c.Request.Context(), testID, claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrAttemptNotFound) {
			response.Success(c, http.StatusOK, gin.H{"attempt": nil})
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// StartAttempt godoc
// POST /api/v1/student/tests/:test_id/attempt
// Starts (or idempotently resumes) the student's attempt for a live test.
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, ok := parseUUIDParam(c, "test_id")
	if !ok {
		return
	}

	attempt, err := h.attemptService.StartAttempt(c.Request.Context(), testID, claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrTestNotLive) {
			response.Fail(c, http.StatusConflict, response.ErrTestNotLive)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"attempt": attempt})
}

// GetContent godoc
// GET /api/v1/student/attempts/:attempt_id/content
// Returns the attempt's question or problem set plus its countdown and
// violation-budget parameters.
func (h *AttemptHandler) GetContent(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, ok := parseUUIDParam(c, "attempt_id")
	if !ok {
		return
	}

	content, err := h.attemptService.GetContent(c.Request.Context(), attemptID, claims.UserID)
	if err != nil {
		failAttemptError(c, err)
		return
	}

	response.Success(c, http.StatusOK, content)
}

// ListLanguages godoc
// GET /api/v1/student/languages
// Returns the programming-language catalog for coding tests.
func (h *AttemptHandler) ListLanguages(c *gin.Context) {
	languages, err := h.attemptService.ListLanguages(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"languages": languages})
}

// SubmitSolution godoc
// POST /api/v1/student/attempts/:attempt_id/solutions
// Records one problem's code and returns an immediate pass/fail signal.
func (h *AttemptHandler) SubmitSolution(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, ok := parseUUIDParam(c, "attempt_id")
	if !ok {
		return
	}

	var req model.SolutionSubmission
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.attemptService.SubmitSolution(c.Request.Context(), attemptID, claims.UserID, req)
	if err != nil {
		failAttemptError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Submit godoc
// POST /api/v1/student/attempts/:attempt_id/submit
// Concludes the attempt with its final payload.
func (h *AttemptHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, ok := parseUUIDParam(c, "attempt_id")
	if !ok {
		return
	}

	var req model.SubmitAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attemptService.Submit(c.Request.Context(), attemptID, claims.UserID, req); err != nil {
		failAttemptError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": model.AttemptStatusSubmitted})
}

// RecordMalpractice godoc
// POST /api/v1/student/attempts/:attempt_id/malpractice
// Reports one integrity-violation event for the attempt.
func (h *AttemptHandler) RecordMalpractice(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, ok := parseUUIDParam(c, "attempt_id")
	if !ok {
		return
	}

	var req model.MalpracticeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	err := h.malpracticeService.Record(c.Request.Context(), attemptID, claims.UserID, model.ViolationType(req.Type))
	if err != nil {
		failAttemptError(c, err)
		return
	}

	response.Success(c, http.StatusAccepted, gin.H{})
}

// failAttemptError maps attempt-lifecycle service errors onto API codes.
func failAttemptError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAttemptNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrAttemptNotOwned):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrAttemptConcluded):
		response.Fail(c, http.StatusConflict, response.ErrAttemptConcluded)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
