package response

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wonny/tripsniper/internal/api/middleware"
)

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details
type ErrorDetail struct {
	Code      string       `json:"code"`
	Message   string       `json:"message"`
	Details   string       `json:"details,omitempty"`
	RequestID string       `json:"request_id"`
	Timestamp time.Time    `json:"timestamp"`
	Fields    []FieldError `json:"fields,omitempty"`
}

// FieldError represents a field-level validation error
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeInternalServer   = "INTERNAL_SERVER_ERROR"
	ErrCodeInvalidParameter = "INVALID_PARAMETER"
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeDatabaseError    = "DATABASE_ERROR"
	ErrCodeUnavailable      = "SERVICE_UNAVAILABLE"
)

// Error sends an error response
func Error(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	ErrorWithDetails(w, r, statusCode, code, message, "")
}

// ErrorWithDetails sends an error response with additional details
func ErrorWithDetails(w http.ResponseWriter, r *http.Request, statusCode int, code, message, details string) {
	resp := ErrorResponse{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: middleware.GetRequestID(r.Context()),
			Timestamp: time.Now(),
		},
	}

	event := log.Warn()
	if statusCode >= 500 {
		event = log.Error()
	}
	event.
		Str("request_id", resp.Error.RequestID).
		Str("error_code", code).
		Str("message", message).
		Int("status", statusCode).
		Msg("API error response")

	JSON(w, r, statusCode, resp)
}

// ValidationError sends a validation error response with field errors
func ValidationError(w http.ResponseWriter, r *http.Request, fields []FieldError) {
	resp := ErrorResponse{
		Error: ErrorDetail{
			Code:      ErrCodeValidation,
			Message:   "Request validation failed",
			RequestID: middleware.GetRequestID(r.Context()),
			Timestamp: time.Now(),
			Fields:    fields,
		},
	}

	log.Warn().
		Str("request_id", resp.Error.RequestID).
		Str("error_code", ErrCodeValidation).
		Int("field_count", len(fields)).
		Msg("Validation error")

	JSON(w, r, http.StatusBadRequest, resp)
}

// BadRequest sends a 400 Bad Request error
func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	Error(w, r, http.StatusBadRequest, ErrCodeInvalidParameter, message)
}

// NotFound sends a 404 Not Found error
func NotFound(w http.ResponseWriter, r *http.Request, message string) {
	Error(w, r, http.StatusNotFound, ErrCodeNotFound, message)
}

// DatabaseError sends a database error response
func DatabaseError(w http.ResponseWriter, r *http.Request, err error) {
	details := ""
	if err != nil {
		details = err.Error()
		log.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Msg("Database error")
	}
	ErrorWithDetails(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Database operation failed", details)
}
