package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/talentrail/talentrail-backend/internal/logger"
	"github.com/talentrail/talentrail-backend/internal/services"
)

type SubmissionHandler struct {
	log           *logger.Logger
	submissionSvc services.SubmissionService
}

func NewSubmissionHandler(log *logger.Logger, submissionSvc services.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{
		log:           log.With("handler", "SubmissionHandler"),
		submissionSvc: submissionSvc,
	}
}

type startStepRequest struct {
	CandidateID uuid.UUID `json:"candidate_id" binding:"required"`
}

type submitStepRequest struct {
	Answers []services.AnswerInput `json:"answers" binding:"required"`
}

// POST /api/steps/:id/questionnaire
// Opens (or resumes) the candidate's submission for a step and returns
// the questionnaire pinned to the version in force when they started.
func (h *SubmissionHandler) StartStep(c *gin.Context) {
	stepID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_step_id", err)
		return
	}
	var req startStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	tree, sub, err := h.submissionSvc.GetTemplateForStep(c.Request.Context(), stepID, req.CandidateID)
	if err != nil {
		h.log.Warn("Step start failed", "step", stepID, "error", err)
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"template": tree, "submission": sub})
}

// POST /api/steps/:id/questionnaire/submit
func (h *SubmissionHandler) SubmitStep(c *gin.Context) {
	stepID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_step_id", err)
		return
	}
	var req submitStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	sub, err := h.submissionSvc.SubmitForStep(c.Request.Context(), stepID, req.Answers)
	if err != nil {
		h.log.Warn("Step submit failed", "step", stepID, "error", err)
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, sub)
}

// GET /api/submissions/:id
func (h *SubmissionHandler) GetSubmission(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_submission_id", err)
		return
	}
	sub, err := h.submissionSvc.GetSubmission(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, sub)
}
