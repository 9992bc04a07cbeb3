package api

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/risseraka/matchmakr/store"
)

// ValidationError represents a validation error with field context
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of validation operations
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// AddError adds a validation error to the result
func (vr *ValidationResult) AddError(field, message string) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// ValidateDatasetName validates a dataset name parameter
func ValidateDatasetName(name string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if strings.TrimSpace(name) != name {
		result.AddError("dataset", "Dataset name cannot have leading or trailing whitespace")
		return result
	}
	if err := store.ValidateName(name); err != nil {
		result.AddError("dataset", err.Error())
	}
	return result
}

// ValidateProfileID parses a profile id path parameter.
func ValidateProfileID(raw string) (int64, *ValidationResult) {
	result := &ValidationResult{Valid: true}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		result.AddError("id", "Profile ID must be an integer")
		return 0, result
	}
	return id, result
}

// SendValidationError sends a standardized validation error response
func SendValidationError(c *gin.Context, result *ValidationResult) {
	SendStructuredValidationError(c, result)
}
