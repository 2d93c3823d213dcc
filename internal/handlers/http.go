package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/parlaywatch/parlaywatch/internal/errors"
	"github.com/parlaywatch/parlaywatch/internal/services"
)

// Error codes for standardized API error responses
const (
	ErrCodeBadRequest     = "BAD_REQUEST"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeForbidden      = "FORBIDDEN"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeConflict       = "CONFLICT"
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeRateLimited    = "RATE_LIMITED"
	ErrCodeInternalServer = "INTERNAL_SERVER_ERROR"
)

// APIError represents an error with an HTTP status code and error code
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Common errors
var (
	ErrBadRequest     = &APIError{Status: http.StatusBadRequest, Code: ErrCodeBadRequest, Message: "Bad request"}
	ErrUnauthorized   = &APIError{Status: http.StatusUnauthorized, Code: ErrCodeUnauthorized, Message: "Unauthorized"}
	ErrForbidden      = &APIError{Status: http.StatusForbidden, Code: ErrCodeForbidden, Message: "Forbidden"}
	ErrNotFound       = &APIError{Status: http.StatusNotFound, Code: ErrCodeNotFound, Message: "Not found"}
	ErrInternalServer = &APIError{Status: http.StatusInternalServerError, Code: ErrCodeInternalServer, Message: "Internal server error"}
)

// NewAPIError creates a new API error with custom message and code
func NewAPIError(status int, code, message string) *APIError {
	return &APIError{Status: status, Code: code, Message: message}
}

// BadRequest creates a 400 error with custom message and auto-assigned error code
func BadRequest(message string) *APIError {
	code := ErrCodeBadRequest
	lower := strings.ToLower(message)
	if strings.Contains(lower, "validation") || strings.Contains(lower, "invalid") {
		code = ErrCodeValidation
	}
	return &APIError{Status: http.StatusBadRequest, Code: code, Message: message}
}

// Unauthorized creates a 401 error with custom message
func Unauthorized(message string) *APIError {
	return &APIError{Status: http.StatusUnauthorized, Code: ErrCodeUnauthorized, Message: message}
}

// Forbidden creates a 403 error with custom message
func Forbidden(message string) *APIError {
	return &APIError{Status: http.StatusForbidden, Code: ErrCodeForbidden, Message: message}
}

// NotFound creates a 404 error with custom message
func NotFound(message string) *APIError {
	return &APIError{Status: http.StatusNotFound, Code: ErrCodeNotFound, Message: message}
}

// Conflict creates a 409 error with custom message
func Conflict(message string) *APIError {
	return &APIError{Status: http.StatusConflict, Code: ErrCodeConflict, Message: message}
}

// TooManyRequests creates a 429 error with custom message
func TooManyRequests(message string) *APIError {
	return &APIError{Status: http.StatusTooManyRequests, Code: ErrCodeRateLimited, Message: message}
}

// InternalError creates a 500 error, logs the original error
func InternalError(err error) *APIError {
	log.Printf("Internal error: %v", err)
	return &APIError{Status: http.StatusInternalServerError, Code: ErrCodeInternalServer, Message: "Internal server error"}
}

// respondJSON writes a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondOK writes a 200 OK JSON response
func respondOK(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusOK, data)
}

// respondCreated writes a 201 Created JSON response
func respondCreated(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusCreated, data)
}

// respondAccepted writes a 202 for actions that were dropped without effect
func respondAccepted(w http.ResponseWriter) {
	respondJSON(w, http.StatusAccepted, StatusResponse{Status: "accepted"})
}

// respondSuccess writes a 200 OK with a status
func respondSuccess(w http.ResponseWriter) {
	respondJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// respondError writes an error response. Dropped actions are not errors to
// the client and answer 202.
func respondError(w http.ResponseWriter, err error) {
	if services.IsIgnored(err) {
		respondAccepted(w)
		return
	}
	if apiErr, ok := err.(*APIError); ok {
		respondJSON(w, apiErr.Status, apiErr)
		return
	}
	// Convert service errors to appropriate API errors
	apiErr := ToAPIError(err)
	respondJSON(w, apiErr.Status, apiErr)
}

// decodeJSON decodes JSON from request body into the target
func decodeJSON(r *http.Request, target interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		if err == io.EOF {
			return BadRequest("Request body is empty")
		}
		return BadRequest("Invalid JSON: " + err.Error())
	}
	return nil
}

// decodeOptionalJSON is decodeJSON for bodies that may be empty
func decodeOptionalJSON(r *http.Request, target interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil && err != io.EOF {
		return BadRequest("Invalid JSON: " + err.Error())
	}
	return nil
}

// pathParam extracts a required URL parameter
func pathParam(r *http.Request, name string) (string, error) {
	param := strings.TrimSpace(chi.URLParam(r, name))
	if param == "" {
		return "", BadRequest("Missing " + name + " parameter")
	}
	return param, nil
}

// ToAPIError converts service errors to appropriate API errors
func ToAPIError(err error) *APIError {
	// Check for application errors first
	var appErr *errors.Error
	if stderrors.As(err, &appErr) {
		switch appErr.Kind {
		case errors.ErrNotFound:
			return NotFound(appErr.Message)
		case errors.ErrValidation, errors.ErrInvalidInput:
			return &APIError{Status: http.StatusBadRequest, Code: ErrCodeValidation, Message: appErr.Message}
		case errors.ErrConflict:
			return Conflict(appErr.Message)
		case errors.ErrForbidden:
			return Forbidden(appErr.Message)
		case errors.ErrRateLimited:
			return TooManyRequests(appErr.Message)
		default:
			return InternalError(err)
		}
	}

	var svcErr *services.ServiceError
	if stderrors.As(err, &svcErr) {
		switch svcErr {
		case services.ErrNotHost:
			return Forbidden(svcErr.Message)
		case services.ErrCallRateLimited:
			return TooManyRequests(svcErr.Message)
		}
		return BadRequest(svcErr.Message)
	}

	return InternalError(err)
}
