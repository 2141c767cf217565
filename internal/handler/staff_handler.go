package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/proctorly/backend/internal/model"
	"github.com/proctorly/backend/internal/response"
	"github.com/proctorly/backend/internal/service"
	"github.com/proctorly/backend/internal/validator"
)

// StaffHandler handles the staff proctoring endpoints.
type StaffHandler struct {
	attemptService     *service.AttemptService
	malpracticeService *service.MalpracticeService
}

// NewStaffHandler creates a new StaffHandler.
func NewStaffHandler(
	attemptService *service.AttemptService,
	malpracticeService *service.MalpracticeService,
) *StaffHandler {
	return &StaffHandler{
		attemptService:     attemptService,
		malpracticeService: malpracticeService,
	}
}

// IncreaseNavigationOverride godoc
// POST /api/v1/staff/attempts/:attempt_id/navigation-override
// Raises an open attempt's violation budget. The student picks the raise
// up on their next content load.
func (h *StaffHandler) IncreaseNavigationOverride(c *gin.Context) {
	attemptID, ok := parseUUIDParam(c, "attempt_id")
	if !ok {
		return
	}

	var req model.NavigationOverrideRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attempt, err := h.attemptService.ApplyNavigationOverride(c.Request.Context(), attemptID, req.Delta)
	if err != nil {
		failAttemptError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// ListAttemptViolations godoc
// GET /api/v1/staff/attempts/:attempt_id/violations
// Returns an attempt's full violation log, oldest first.
func (h *StaffHandler) ListAttemptViolations(c *gin.Context) {
	attemptID, ok := parseUUIDParam(c, "attempt_id")
	if !ok {
		return
	}

	violations, err := h.malpracticeService.ListByAttempt(c.Request.Context(), attemptID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"violations": violations})
}
