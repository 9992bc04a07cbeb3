package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common error conditions
var (
	// ErrUnknownField is returned when a field collection name is not one of the enumerated fields
	ErrUnknownField = errors.New("unknown field")

	// ErrMissingParameter is returned when a persistence call lacks a required parameter
	ErrMissingParameter = errors.New("missing parameters")

	// ErrCorruptState is returned when persisted state cannot be decoded
	ErrCorruptState = errors.New("corrupt state")

	// ErrDatasetNotFound is returned when a named dataset does not exist
	ErrDatasetNotFound = errors.New("dataset not found")

	// ErrProfileNotFound is returned when a profile id is not part of a dataset
	ErrProfileNotFound = errors.New("profile not found")

	// ErrSavedSearchNotFound is returned when a saved search key does not exist
	ErrSavedSearchNotFound = errors.New("saved search not found")

	// ErrValueNotFound is returned when a field map holds no entry for a value
	ErrValueNotFound = errors.New("value not found")

	// ErrJobNotFound is returned when a job is not found
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
)

// Kind classifies an error for callers that map errors onto transport status codes.
type Kind string

const (
	KindUnknown          Kind = ""
	KindUnknownField     Kind = "UnknownField"
	KindMissingParameter Kind = "MissingParameter"
	KindCorruptState     Kind = "CorruptState"
	KindNotFound         Kind = "NotFound"
	KindInvalidInput     Kind = "InvalidInput"
)

// KindOf returns the kind of err, walking wrapped errors.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrUnknownField):
		return KindUnknownField
	case errors.Is(err, ErrMissingParameter):
		return KindMissingParameter
	case errors.Is(err, ErrCorruptState):
		return KindCorruptState
	case errors.Is(err, ErrDatasetNotFound),
		errors.Is(err, ErrProfileNotFound),
		errors.Is(err, ErrSavedSearchNotFound),
		errors.Is(err, ErrValueNotFound),
		errors.Is(err, ErrJobNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	default:
		return KindUnknown
	}
}

// UnknownFieldError represents a lookup of a field collection that does not exist
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field '%s'", e.Field)
}

func (e *UnknownFieldError) Is(target error) bool {
	return target == ErrUnknownField
}

// NewUnknownFieldError creates a new UnknownFieldError
func NewUnknownFieldError(field string) *UnknownFieldError {
	return &UnknownFieldError{Field: field}
}

// MissingParameterError lists the required parameters that were absent
type MissingParameterError struct {
	Params []string
}

func (e *MissingParameterError) Error() string {
	if len(e.Params) == 0 {
		return "missing parameters"
	}
	return fmt.Sprintf("missing parameters: %s", strings.Join(e.Params, ", "))
}

func (e *MissingParameterError) Is(target error) bool {
	return target == ErrMissingParameter
}

// NewMissingParameterError creates a new MissingParameterError
func NewMissingParameterError(params ...string) *MissingParameterError {
	return &MissingParameterError{Params: params}
}

// CorruptStateError wraps a decoding failure of persisted state
type CorruptStateError struct {
	Path string
	Err  error
}

func (e *CorruptStateError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("corrupt state in '%s'", e.Path)
	}
	return fmt.Sprintf("corrupt state in '%s': %v", e.Path, e.Err)
}

func (e *CorruptStateError) Is(target error) bool {
	return target == ErrCorruptState
}

func (e *CorruptStateError) Unwrap() error {
	return e.Err
}

// NewCorruptStateError creates a new CorruptStateError
func NewCorruptStateError(path string, err error) *CorruptStateError {
	return &CorruptStateError{Path: path, Err: err}
}

// DatasetNotFoundError represents a dataset not found error with context
type DatasetNotFoundError struct {
	Name string
}

func (e *DatasetNotFoundError) Error() string {
	return fmt.Sprintf("dataset named '%s' not found", e.Name)
}

func (e *DatasetNotFoundError) Is(target error) bool {
	return target == ErrDatasetNotFound
}

// NewDatasetNotFoundError creates a new DatasetNotFoundError
func NewDatasetNotFoundError(name string) *DatasetNotFoundError {
	return &DatasetNotFoundError{Name: name}
}

// ProfileNotFoundError represents a profile not found error with context
type ProfileNotFoundError struct {
	ID      int64
	Dataset string
}

func (e *ProfileNotFoundError) Error() string {
	if e.Dataset != "" {
		return fmt.Sprintf("profile with ID '%d' not found in dataset '%s'", e.ID, e.Dataset)
	}
	return fmt.Sprintf("profile with ID '%d' not found", e.ID)
}

func (e *ProfileNotFoundError) Is(target error) bool {
	return target == ErrProfileNotFound
}

// NewProfileNotFoundError creates a new ProfileNotFoundError
func NewProfileNotFoundError(id int64, dataset ...string) *ProfileNotFoundError {
	err := &ProfileNotFoundError{ID: id}
	if len(dataset) > 0 {
		err.Dataset = dataset[0]
	}
	return err
}

// SavedSearchNotFoundError represents a missing saved search key
type SavedSearchNotFoundError struct {
	Key string
}

func (e *SavedSearchNotFoundError) Error() string {
	return fmt.Sprintf("saved search '%s' not found", e.Key)
}

func (e *SavedSearchNotFoundError) Is(target error) bool {
	return target == ErrSavedSearchNotFound
}

// NewSavedSearchNotFoundError creates a new SavedSearchNotFoundError
func NewSavedSearchNotFoundError(key string) *SavedSearchNotFoundError {
	return &SavedSearchNotFoundError{Key: key}
}

// ValueNotFoundError represents a field value absent from its field map
type ValueNotFoundError struct {
	Field string
	Value string
}

func (e *ValueNotFoundError) Error() string {
	return fmt.Sprintf("no such %s '%s'", e.Field, e.Value)
}

func (e *ValueNotFoundError) Is(target error) bool {
	return target == ErrValueNotFound
}

// NewValueNotFoundError creates a new ValueNotFoundError
func NewValueNotFoundError(field, value string) *ValueNotFoundError {
	return &ValueNotFoundError{Field: field, Value: value}
}

// JobNotFoundError represents a job not found error with context
type JobNotFoundError struct {
	JobID string
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("job with ID '%s' not found", e.JobID)
}

func (e *JobNotFoundError) Is(target error) bool {
	return target == ErrJobNotFound
}

// NewJobNotFoundError creates a new JobNotFoundError
func NewJobNotFoundError(jobID string) *JobNotFoundError {
	return &JobNotFoundError{JobID: jobID}
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
