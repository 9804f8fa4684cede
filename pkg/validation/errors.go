// Package validation checks request payloads against an endpoint's declared
// field schema. Violations are collected rather than short-circuited so a
// caller sees every problem in one response.
package validation

import "fmt"

// Error code constants for machine-readable error identification.
const (
	ErrCodeRequired       = "required"
	ErrCodeType           = "type"
	ErrCodeInvalidJSON    = "invalid_json"
	ErrCodeUnexpectedFile = "unexpected_file"
	ErrCodeUploadFailed   = "upload_failed"
	ErrCodeMultipart      = "multipart"
)

// FieldError is a single validation violation.
type FieldError struct {
	// Field is the name of the field that failed validation ("" for
	// body-level errors such as malformed JSON)
	Field string `json:"field,omitempty"`

	// Code is a machine-readable error code
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Result accumulates validation errors.
type Result struct {
	Errors []*FieldError `json:"errors,omitempty"`
}

// AddError appends a violation to the result.
func (r *Result) AddError(err *FieldError) {
	r.Errors = append(r.Errors, err)
}

// Addf appends a violation built from a format string.
func (r *Result) Addf(field, code, format string, args ...any) {
	r.AddError(&FieldError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
}

// Valid reports whether no errors were recorded.
func (r *Result) Valid() bool {
	return len(r.Errors) == 0
}

// Merge combines another result into this one.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
}

// Messages returns the human-readable message for every violation, one per
// error, in the order they were recorded.
func (r *Result) Messages() []string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return msgs
}

// NewRequiredError reports a missing or empty required field.
func NewRequiredError(field string) *FieldError {
	return &FieldError{
		Field:   field,
		Code:    ErrCodeRequired,
		Message: fmt.Sprintf("field '%s' is required", field),
	}
}

// NewTypeError reports a value that does not match the declared field type.
func NewTypeError(field, expected string, received any) *FieldError {
	return &FieldError{
		Field:   field,
		Code:    ErrCodeType,
		Message: fmt.Sprintf("field '%s' must be of type %s, got %s", field, expected, jsonTypeName(received)),
	}
}

// NewInvalidJSONError reports a malformed request body.
func NewInvalidJSONError() *FieldError {
	return &FieldError{
		Code:    ErrCodeInvalidJSON,
		Message: "Invalid JSON",
	}
}

// NewUnexpectedFileError reports a file part whose field is not declared as a
// file-kind field in the schema.
func NewUnexpectedFileError(field string) *FieldError {
	return &FieldError{
		Field:   field,
		Code:    ErrCodeUnexpectedFile,
		Message: fmt.Sprintf("unexpected file field '%s'", field),
	}
}

// NewUploadError reports a failed file upload for a single field.
func NewUploadError(field string, err error) *FieldError {
	return &FieldError{
		Field:   field,
		Code:    ErrCodeUploadFailed,
		Message: fmt.Sprintf("failed to upload file for field '%s': %v", field, err),
	}
}
