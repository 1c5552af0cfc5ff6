package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/talentrail/talentrail-backend/internal/modules/templatesync"
)

func TestRespondDomainErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err    error
		status int
		code   string
	}{
		{templatesync.ErrNotFound, http.StatusNotFound, "not_found"},
		{templatesync.ErrValidation, http.StatusBadRequest, "validation_failed"},
		{templatesync.ErrOrphanReference, http.StatusUnprocessableEntity, "orphan_reference"},
		{templatesync.ErrDuplicateNaturalKey, http.StatusConflict, "duplicate_name"},
		{templatesync.ErrConcurrencyConflict, http.StatusConflict, "concurrency_conflict"},
		{templatesync.ErrInvalidVersionTransition, http.StatusConflict, "invalid_transition"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		// Wrapped errors must map the same as bare sentinels.
		RespondDomainError(c, fmt.Errorf("context: %w", tc.err))

		if w.Code != tc.status {
			t.Errorf("%v: status %d, want %d", tc.err, w.Code, tc.status)
		}
		var envelope ErrorEnvelope
		if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("%v: bad body: %v", tc.err, err)
		}
		if envelope.Error.Code != tc.code {
			t.Errorf("%v: code %q, want %q", tc.err, envelope.Error.Code, tc.code)
		}
	}
}
