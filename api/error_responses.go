package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	internalErrors "github.com/risseraka/matchmakr/internal/errors"
)

// ErrorCode represents standardized error codes for the API
type ErrorCode string

const (
	// Client Error Codes (4xx)
	ErrorCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrorCodeMissingParameter ErrorCode = "MISSING_PARAMETER"
	ErrorCodeUnknownField     ErrorCode = "UNKNOWN_FIELD"
	ErrorCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrorCodeInvalidJSON      ErrorCode = "INVALID_JSON"

	// Server Error Codes (5xx)
	ErrorCodeInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrorCodeQueryTimeout       ErrorCode = "QUERY_TIMEOUT"
	ErrorCodeCorruptState       ErrorCode = "CORRUPT_STATE"
	ErrorCodeJobExecutionFailed ErrorCode = "JOB_EXECUTION_FAILED"
)

// ErrorDetail provides additional context for an error
type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// APIError represents a standardized API error response
type APIError struct {
	Error     string        `json:"error"`
	Code      ErrorCode     `json:"code"`
	Message   string        `json:"message"`
	Details   []ErrorDetail `json:"details,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIErrorResponse creates a standardized error response
func APIErrorResponse(code ErrorCode, message string, details ...ErrorDetail) *APIError {
	return &APIError{
		Error:     "Request failed",
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
}

// SendError sends a standardized error response
func SendError(c *gin.Context, statusCode int, code ErrorCode, message string, details ...ErrorDetail) {
	errorResponse := APIErrorResponse(code, message, details...)

	if requestID, exists := c.Get(requestIDKey); exists {
		if id, ok := requestID.(string); ok {
			errorResponse.RequestID = id
		}
	}

	c.JSON(statusCode, errorResponse)
}

// SendEngineError maps an engine error onto its status code by kind.
func SendEngineError(c *gin.Context, err error) {
	switch internalErrors.KindOf(err) {
	case internalErrors.KindNotFound:
		SendError(c, http.StatusNotFound, ErrorCodeNotFound, err.Error())
	case internalErrors.KindUnknownField:
		SendError(c, http.StatusNotFound, ErrorCodeUnknownField, err.Error())
	case internalErrors.KindMissingParameter:
		var missing *internalErrors.MissingParameterError
		var details []ErrorDetail
		if errors.As(err, &missing) {
			for _, p := range missing.Params {
				details = append(details, ErrorDetail{Field: p, Message: "parameter is required", Code: "REQUIRED"})
			}
		}
		SendError(c, http.StatusBadRequest, ErrorCodeMissingParameter, err.Error(), details...)
	case internalErrors.KindInvalidInput:
		var verr *internalErrors.ValidationError
		var details []ErrorDetail
		if errors.As(err, &verr) && verr.Field != "" {
			details = append(details, ErrorDetail{Field: verr.Field, Message: verr.Message, Code: "VALIDATION_ERROR"})
		}
		SendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error(), details...)
	case internalErrors.KindCorruptState:
		SendError(c, http.StatusInternalServerError, ErrorCodeCorruptState, err.Error())
	default:
		if errors.Is(err, context.DeadlineExceeded) {
			SendError(c, http.StatusGatewayTimeout, ErrorCodeQueryTimeout, err.Error())
			return
		}
		SendError(c, http.StatusInternalServerError, ErrorCodeInternalError, err.Error())
	}
}

// SendStructuredValidationError sends a validation error with structured details
func SendStructuredValidationError(c *gin.Context, result *ValidationResult) {
	details := make([]ErrorDetail, len(result.Errors))
	for i, err := range result.Errors {
		details[i] = ErrorDetail{
			Field:   err.Field,
			Message: err.Message,
			Code:    "VALIDATION_ERROR",
		}
	}

	SendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, "Request validation failed", details...)
}

// SendInvalidJSONError sends a standardized invalid JSON error
func SendInvalidJSONError(c *gin.Context, err error) {
	SendError(c, http.StatusBadRequest, ErrorCodeInvalidJSON,
		"Invalid JSON in request body: "+err.Error())
}

// SendJobExecutionError sends a standardized job execution error
func SendJobExecutionError(c *gin.Context, operation string, err error) {
	SendError(c, http.StatusInternalServerError, ErrorCodeJobExecutionFailed,
		"Failed to start "+operation+" job: "+err.Error())
}
