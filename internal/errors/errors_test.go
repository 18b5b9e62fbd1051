package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestFlourishError_Error(t *testing.T) {
	err := &FlourishError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "plant not found",
	}

	expected := "NOT_FOUND: plant not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *FlourishError
		code     ErrorCode
		status   int
		needHint bool
	}{
		{"configuration", NewConfiguration("plantid_api_key"), ErrConfiguration, 503, true},
		{"validation", NewValidation("file must be an image"), ErrValidation, 400, true},
		{"too large", NewImageTooLarge(5<<20, 6<<20), ErrValidation, 400, true},
		{"processing", NewProcessing(fmt.Errorf("bad header")), ErrProcessing, 422, true},
		{"no plant", NewNoPlantDetected(0.02), ErrNoPlantDetected, 422, true},
		{"no species", NewNoSpeciesIdentified(), ErrNoSpeciesIdentified, 422, true},
		{"invalid input", NewInvalidInput("bad image"), ErrInvalidInput, 400, true},
		{"auth", NewAuth("plant.id"), ErrAuth, 401, true},
		{"not found", NewNotFound("plant", "abc"), ErrNotFound, 404, false},
		{"quota", NewQuotaExceeded("plant.id"), ErrQuotaExceeded, 429, true},
		{"server", NewProviderServer("plant.id"), ErrProviderServer, 502, true},
		{"unknown", NewUnknownProvider("plant.id", 418, "teapot"), ErrUnknownProvider, 502, true},
		{"network", NewNetwork("plant.id", fmt.Errorf("dial tcp: no such host")), ErrNetwork, 503, true},
		{"timeout", NewTimeout("plant.id"), ErrTimeout, 504, true},
		{"invalid request", NewInvalidRequest("name is required"), ErrInvalidRequest, 400, false},
		{"internal", NewInternal(fmt.Errorf("boom")), ErrInternal, 500, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.Status != tt.status {
				t.Errorf("Status = %d, want %d", tt.err.Status, tt.status)
			}
			if tt.needHint && tt.err.Hint == "" {
				t.Error("Hint should not be empty")
			}
		})
	}
}

func TestNewUnknownProvider_Details(t *testing.T) {
	err := NewUnknownProvider("plant.id", 418, "teapot")

	if err.Details["status"] != 418 {
		t.Errorf("Details[status] = %v, want 418", err.Details["status"])
	}
	if !strings.Contains(err.Message, "418") {
		t.Errorf("Message %q should contain status", err.Message)
	}
}

func TestNewImageTooLarge_Hint(t *testing.T) {
	err := NewImageTooLarge(5*1024*1024, 6*1024*1024)
	if !strings.Contains(err.Hint, "5 MB") {
		t.Errorf("Hint = %q, want mention of 5 MB", err.Hint)
	}
}

func TestNewInternal_NilError(t *testing.T) {
	err := NewInternal(nil)
	if err.Message != "internal error" {
		t.Errorf("Message = %q, want %q", err.Message, "internal error")
	}
}

func TestIs(t *testing.T) {
	err := NewNotFound("schedule", "01H")

	if !Is(err, ErrNotFound) {
		t.Error("Is() should return true for matching code")
	}
	if Is(err, ErrInternal) {
		t.Error("Is() should return false for non-matching code")
	}

	wrapped := fmt.Errorf("loading: %w", err)
	if !Is(wrapped, ErrNotFound) {
		t.Error("Is() should see through wrapping")
	}

	if Is(stderrors.New("plain"), ErrNotFound) {
		t.Error("Is() should return false for non-FlourishError")
	}
	if Is(nil, ErrNotFound) {
		t.Error("Is() should return false for nil")
	}
}

func TestAs(t *testing.T) {
	orig := NewAuth("gemini")
	if got := As(fmt.Errorf("wrap: %w", orig)); got != orig {
		t.Errorf("As() = %v, want original error", got)
	}

	got := As(stderrors.New("disk full"))
	if got.Code != ErrInternal {
		t.Errorf("As(plain).Code = %q, want %q", got.Code, ErrInternal)
	}
	if got.Message != "disk full" {
		t.Errorf("As(plain).Message = %q, want %q", got.Message, "disk full")
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestFromTransport(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"deadline", fmt.Errorf("post: %w", context.DeadlineExceeded), ErrTimeout},
		{"net timeout", timeoutErr{}, ErrTimeout},
		{"refused", stderrors.New("dial tcp 127.0.0.1:1: connect: connection refused"), ErrNetwork},
		{"cancelled", context.Canceled, ErrNetwork},
		{"already typed", NewAuth("gemini"), ErrAuth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromTransport("plant.id", tt.err); got.Code != tt.want {
				t.Errorf("FromTransport() code = %q, want %q", got.Code, tt.want)
			}
		})
	}
}
