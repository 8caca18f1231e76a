package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/epesi-labs/epesi-backend/internal/services"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
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

// RespondServiceError maps an error kind to status + short user message. The
// kind drives the mapping, never the raw error text.
func RespondServiceError(c *gin.Context, err error) {
	var formatErr *services.UnsupportedFormatError
	var backendErr *services.GenerationBackendError
	var contractErr *services.GenerationContractViolation
	var reorderErr *services.ReorderMismatchError
	var notFoundErr *services.NotFoundError

	status := http.StatusInternalServerError
	code := "internal_error"
	switch {
	case errors.As(err, &formatErr):
		status = http.StatusBadRequest
		code = "unsupported_format"
	case errors.As(err, &backendErr):
		status = http.StatusServiceUnavailable
		code = "generation_backend_error"
	case errors.As(err, &contractErr):
		status = http.StatusBadGateway
		code = "generation_contract_violation"
	case errors.As(err, &reorderErr):
		status = http.StatusConflict
		code = "reorder_mismatch"
	case errors.As(err, &notFoundErr):
		status = http.StatusNotFound
		code = "not_found"
	}

	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: services.UserMessage(err),
			Code:    code,
		},
	})
}
