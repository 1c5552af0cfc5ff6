package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/talentrail/talentrail-backend/internal/modules/templatesync"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondDomainError maps sync errors onto HTTP statuses so every
// handler reports them the same way.
func RespondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, templatesync.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, templatesync.ErrValidation):
		RespondError(c, http.StatusBadRequest, "validation_failed", err)
	case errors.Is(err, templatesync.ErrOrphanReference):
		RespondError(c, http.StatusUnprocessableEntity, "orphan_reference", err)
	case errors.Is(err, templatesync.ErrDuplicateNaturalKey):
		RespondError(c, http.StatusConflict, "duplicate_name", err)
	case errors.Is(err, templatesync.ErrConcurrencyConflict):
		RespondError(c, http.StatusConflict, "concurrency_conflict", err)
	case errors.Is(err, templatesync.ErrInvalidVersionTransition):
		RespondError(c, http.StatusConflict, "invalid_transition", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
	}
}
