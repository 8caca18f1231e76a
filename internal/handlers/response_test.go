package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/epesi-labs/epesi-backend/internal/services"
)

func TestRespondServiceError_KindDrivesStatusAndMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{
			"unsupported format",
			&services.UnsupportedFormatError{Reason: "binary blob"},
			http.StatusBadRequest, "unsupported_format", "could not read data source",
		},
		{
			"backend error",
			&services.GenerationBackendError{Err: errors.New("timeout")},
			http.StatusServiceUnavailable, "generation_backend_error", "AI service unavailable, try again",
		},
		{
			"contract violation",
			&services.GenerationContractViolation{Reason: "not json"},
			http.StatusBadGateway, "generation_contract_violation", "could not generate a valid chart",
		},
		{
			"reorder mismatch",
			&services.ReorderMismatchError{DashboardID: uuid.New()},
			http.StatusConflict, "reorder_mismatch", "dashboard changed, please refresh",
		},
		{
			"not found",
			services.NewBlockNotFound(uuid.New()),
			http.StatusNotFound, "not_found", "resource not found",
		},
		{
			"unknown",
			errors.New("boom"),
			http.StatusInternalServerError, "internal_error", "internal error",
		},
	}

	for _, tc := range cases {
		recorder := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(recorder)
		RespondServiceError(c, tc.err)

		if recorder.Code != tc.wantStatus {
			t.Errorf("%s: status %d want %d", tc.name, recorder.Code, tc.wantStatus)
		}
		var envelope ErrorEnvelope
		if err := json.Unmarshal(recorder.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("%s: decode body: %v", tc.name, err)
		}
		if envelope.Error.Code != tc.wantCode {
			t.Errorf("%s: code %q want %q", tc.name, envelope.Error.Code, tc.wantCode)
		}
		if envelope.Error.Message != tc.wantMessage {
			t.Errorf("%s: message %q want %q", tc.name, envelope.Error.Message, tc.wantMessage)
		}
	}
}

func TestRespondServiceError_WrappedErrorsStillMatch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)

	wrapped := errors.Join(errors.New("context"), services.NewDashboardNotFound(uuid.New()))
	RespondServiceError(c, wrapped)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("wrapped NotFoundError must map to 404, got %d", recorder.Code)
	}
}
