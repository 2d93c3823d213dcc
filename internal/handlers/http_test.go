package handlers_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/parlaywatch/parlaywatch/internal/errors"
	"github.com/parlaywatch/parlaywatch/internal/handlers"
	"github.com/parlaywatch/parlaywatch/internal/services"
)

func TestAPIError_Error(t *testing.T) {
	err := handlers.NewAPIError(http.StatusBadRequest, "BAD_REQUEST", "test message")

	result := err.Error()

	if result != "test message" {
		t.Errorf("expected 'test message', got %q", result)
	}
	if err.Code != "BAD_REQUEST" {
		t.Errorf("expected code 'BAD_REQUEST', got %q", err.Code)
	}
}

func TestBadRequest_AssignsCode(t *testing.T) {
	tests := []struct {
		message  string
		expected string
	}{
		{"missing field", handlers.ErrCodeBadRequest},
		{"Invalid JSON: unexpected EOF", handlers.ErrCodeValidation},
		{"validation failed", handlers.ErrCodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			err := handlers.BadRequest(tt.message)
			if err.Status != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", err.Status)
			}
			if err.Code != tt.expected {
				t.Errorf("expected code %q, got %q", tt.expected, err.Code)
			}
		})
	}
}

func TestInternalError(t *testing.T) {
	originalErr := fmt.Errorf("db connection failed")
	err := handlers.InternalError(originalErr)

	if err.Status != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", err.Status)
	}
	// Internal errors should not expose the original message
	if err.Message != "Internal server error" {
		t.Errorf("expected generic message, got %q", err.Message)
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		name           string
		err            *handlers.APIError
		expectedStatus int
	}{
		{"ErrBadRequest", handlers.ErrBadRequest, http.StatusBadRequest},
		{"ErrUnauthorized", handlers.ErrUnauthorized, http.StatusUnauthorized},
		{"ErrForbidden", handlers.ErrForbidden, http.StatusForbidden},
		{"ErrNotFound", handlers.ErrNotFound, http.StatusNotFound},
		{"ErrInternalServer", handlers.ErrInternalServer, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Status != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, tt.err.Status)
			}
		})
	}
}

func TestToAPIError_DirectTests(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{"not found", errors.NotFound("room not found"), http.StatusNotFound, handlers.ErrCodeNotFound},
		{"validation", errors.Validation("bad threshold"), http.StatusBadRequest, handlers.ErrCodeValidation},
		{"invalid input", errors.InvalidInput("bad input"), http.StatusBadRequest, handlers.ErrCodeValidation},
		{"conflict", errors.Conflict("taken"), http.StatusConflict, handlers.ErrCodeConflict},
		{"forbidden", errors.Forbidden("no"), http.StatusForbidden, handlers.ErrCodeForbidden},
		{"rate limited", errors.RateLimited("slow down"), http.StatusTooManyRequests, handlers.ErrCodeRateLimited},
		{"internal kind", errors.Internal(fmt.Errorf("boom")), http.StatusInternalServerError, handlers.ErrCodeInternalServer},
		{"not host", services.ErrNotHost, http.StatusForbidden, handlers.ErrCodeForbidden},
		{"call limit", services.ErrCallRateLimited, http.StatusTooManyRequests, handlers.ErrCodeRateLimited},
		{"service error", services.ErrParlayTextRequired, http.StatusBadRequest, handlers.ErrCodeBadRequest},
		{"wrapped service error", fmt.Errorf("submit: %w", services.ErrCallTextRequired), http.StatusBadRequest, handlers.ErrCodeBadRequest},
		{"unknown", fmt.Errorf("disk full"), http.StatusInternalServerError, handlers.ErrCodeInternalServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := handlers.ToAPIError(tt.err)
			if apiErr.Status != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, apiErr.Status)
			}
			if apiErr.Code != tt.expectedCode {
				t.Errorf("expected code %q, got %q", tt.expectedCode, apiErr.Code)
			}
		})
	}
}

func TestDecodeJSON_EmptyBody(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(t, http.MethodPost, "/api/rooms", "", nil)

	expectStatus(t, rec, http.StatusBadRequest)
	if !strings.Contains(strings.ToLower(rec.Body.String()), "empty") {
		t.Errorf("expected error to mention 'empty', got %q", rec.Body.String())
	}
}

func TestDecodeJSON_InvalidJSON(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(t, http.MethodPost, "/api/rooms", "", "{invalid")

	expectStatus(t, rec, http.StatusBadRequest)
	if !strings.Contains(rec.Body.String(), "JSON") {
		t.Errorf("expected error to mention 'JSON', got %q", rec.Body.String())
	}
}

// TestRespondError_IgnoredIsAccepted tests that dropped actions answer 202
func TestRespondError_IgnoredIsAccepted(t *testing.T) {
	setup := newTestSetup(t)
	host := setup.createRoom(t)
	alice := setup.join(t, host.RoomID, "alice")
	roundID := setup.videoRound(t, host, []session{alice}, []string{"cat jumps"})

	// A player may not lock; the round is already locked anyway
	rec := setup.do(t, http.MethodPost, "/api/rounds/"+roundID+"/lock", alice.Token, nil)

	expectStatus(t, rec, http.StatusAccepted)
	if resp := decode[handlers.StatusResponse](t, rec); resp.Status != "accepted" {
		t.Errorf("expected status accepted, got %q", resp.Status)
	}
}
