package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
)

// ErrorCode represents a Flourish error code.
type ErrorCode string

const (
	ErrConfiguration       ErrorCode = "CONFIGURATION"         // 503
	ErrValidation          ErrorCode = "VALIDATION"            // 400
	ErrProcessing          ErrorCode = "PROCESSING"            // 422
	ErrNoPlantDetected     ErrorCode = "NO_PLANT_DETECTED"     // 422
	ErrNoSpeciesIdentified ErrorCode = "NO_SPECIES_IDENTIFIED" // 422
	ErrInvalidInput        ErrorCode = "INVALID_INPUT"         // 400 (provider rejected the input)
	ErrAuth                ErrorCode = "AUTH"                  // 401
	ErrNotFound            ErrorCode = "NOT_FOUND"             // 404
	ErrQuotaExceeded       ErrorCode = "QUOTA_EXCEEDED"        // 429
	ErrProviderServer      ErrorCode = "PROVIDER_SERVER"       // 502
	ErrUnknownProvider     ErrorCode = "UNKNOWN_PROVIDER"      // 502
	ErrNetwork             ErrorCode = "NETWORK"               // 503
	ErrTimeout             ErrorCode = "TIMEOUT"               // 504
	ErrInvalidRequest      ErrorCode = "INVALID_REQUEST"       // 400
	ErrInternal            ErrorCode = "INTERNAL"              // 500
)

// FlourishError represents a structured error with code, status, and details.
type FlourishError struct {
	Code    ErrorCode
	Status  int
	Message string
	// Hint is the actionable, user-facing suggestion shown next to Message.
	Hint    string
	Details map[string]any
}

// Error implements the error interface.
func (e *FlourishError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewConfiguration creates an error for a missing credential or setting.
// It is fatal only to the feature that needs the setting.
func NewConfiguration(setting string) *FlourishError {
	return &FlourishError{
		Code:    ErrConfiguration,
		Status:  503,
		Message: fmt.Sprintf("%s is not configured", setting),
		Hint:    "Add the key to ~/.flourish/config.json or the matching environment variable.",
		Details: map[string]any{"setting": setting},
	}
}

// NewValidation creates a 400 error for an unusable uploaded image.
func NewValidation(msg string) *FlourishError {
	return &FlourishError{
		Code:    ErrValidation,
		Status:  400,
		Message: msg,
		Hint:    "Choose a JPEG, PNG or WebP photo under the size limit.",
	}
}

// NewImageTooLarge creates a validation error carrying the size limit.
func NewImageTooLarge(max, actual int64) *FlourishError {
	return &FlourishError{
		Code:    ErrValidation,
		Status:  400,
		Message: fmt.Sprintf("image is too large: %d bytes (max %d)", actual, max),
		Hint:    fmt.Sprintf("Use an image smaller than %d MB.", max/(1024*1024)),
		Details: map[string]any{"max_bytes": max, "actual_bytes": actual},
	}
}

// NewProcessing creates a 422 error for an image that could not be decoded.
func NewProcessing(err error) *FlourishError {
	msg := "image processing failed"
	if err != nil {
		msg = fmt.Sprintf("image processing failed: %v", err)
	}
	return &FlourishError{
		Code:    ErrProcessing,
		Status:  422,
		Message: msg,
		Hint:    "The file looks corrupt. Re-export or re-take the photo and upload it again.",
	}
}

// NewNoPlantDetected creates an error for images the provider says contain no plant.
func NewNoPlantDetected(probability float64) *FlourishError {
	return &FlourishError{
		Code:    ErrNoPlantDetected,
		Status:  422,
		Message: "no plant detected in the image",
		Hint:    "Upload a clearer photo of the plant, or add it with manual entry.",
		Details: map[string]any{"probability": probability},
	}
}

// NewNoSpeciesIdentified creates an error for a response without classification suggestions.
func NewNoSpeciesIdentified() *FlourishError {
	return &FlourishError{
		Code:    ErrNoSpeciesIdentified,
		Status:  422,
		Message: "no plant species could be identified in this image",
		Hint:    "Try a closer photo of leaves or flowers, or add the plant with manual entry.",
	}
}

// NewInvalidInput creates a 400 error when the identification provider rejects the request.
func NewInvalidInput(providerMsg string) *FlourishError {
	msg := "invalid input data"
	if providerMsg != "" {
		msg = fmt.Sprintf("invalid input data: %s", providerMsg)
	}
	return &FlourishError{
		Code:    ErrInvalidInput,
		Status:  400,
		Message: msg,
		Hint:    "Check the image and try again.",
	}
}

// NewAuth creates a 401 error for a rejected provider credential.
func NewAuth(provider string) *FlourishError {
	return &FlourishError{
		Code:    ErrAuth,
		Status:  401,
		Message: fmt.Sprintf("%s rejected the API key", provider),
		Hint:    "Verify the API key is correct and active.",
		Details: map[string]any{"provider": provider},
	}
}

// NewNotFound creates a 404 error for a missing record.
func NewNotFound(kind, identifier string) *FlourishError {
	return &FlourishError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewQuotaExceeded creates a 429 error for an exhausted provider credit balance.
func NewQuotaExceeded(provider string) *FlourishError {
	return &FlourishError{
		Code:    ErrQuotaExceeded,
		Status:  429,
		Message: fmt.Sprintf("%s credits exhausted", provider),
		Hint:    "Check your account credits, or add the plant with manual entry.",
		Details: map[string]any{"provider": provider},
	}
}

// NewProviderServer creates a 502 error for a provider-side failure.
func NewProviderServer(provider string) *FlourishError {
	return &FlourishError{
		Code:    ErrProviderServer,
		Status:  502,
		Message: fmt.Sprintf("%s server error", provider),
		Hint:    "Try again later.",
		Details: map[string]any{"provider": provider},
	}
}

// NewUnknownProvider creates a 502 error for an unexpected provider status.
func NewUnknownProvider(provider string, status int, body string) *FlourishError {
	return &FlourishError{
		Code:    ErrUnknownProvider,
		Status:  502,
		Message: fmt.Sprintf("%s error (%d): %s", provider, status, body),
		Hint:    "Try again. If it keeps happening, check the provider status page.",
		Details: map[string]any{"provider": provider, "status": status, "body": body},
	}
}

// NewNetwork creates a 503 error for connection-level failures.
func NewNetwork(provider string, err error) *FlourishError {
	return &FlourishError{
		Code:    ErrNetwork,
		Status:  503,
		Message: fmt.Sprintf("unable to reach %s: %v", provider, err),
		Hint:    "Check your internet connection and try again.",
		Details: map[string]any{"provider": provider},
	}
}

// NewTimeout creates a 504 error for an aborted request.
func NewTimeout(provider string) *FlourishError {
	return &FlourishError{
		Code:    ErrTimeout,
		Status:  504,
		Message: fmt.Sprintf("request to %s timed out", provider),
		Hint:    "Try again, ideally with a smaller image or a better connection.",
		Details: map[string]any{"provider": provider},
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *FlourishError {
	return &FlourishError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewSnapshotTooNew creates an error for stored data written by a newer build.
// Callers must not overwrite such data.
func NewSnapshotTooNew(key string, version, supported int) *FlourishError {
	return &FlourishError{
		Code:    ErrConfiguration,
		Status:  503,
		Message: fmt.Sprintf("%s was saved by a newer version of Flourish (format %d, this build reads up to %d)", key, version, supported),
		Hint:    "Upgrade Flourish to open this data. Nothing was changed.",
		Details: map[string]any{"key": key, "version": version, "supported": supported},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *FlourishError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &FlourishError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is (or wraps) a FlourishError with the given code.
func Is(err error, code ErrorCode) bool {
	var fErr *FlourishError
	if stderrors.As(err, &fErr) {
		return fErr.Code == code
	}
	return false
}

// As returns the FlourishError in err's chain, converting anything else to INTERNAL.
func As(err error) *FlourishError {
	var fErr *FlourishError
	if stderrors.As(err, &fErr) {
		return fErr
	}
	return NewInternal(err)
}

// FromTransport classifies a failed HTTP round trip.
// Deadlines and net timeouts become TIMEOUT; everything else is NETWORK.
func FromTransport(provider string, err error) *FlourishError {
	if fErr, ok := err.(*FlourishError); ok {
		return fErr
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return NewTimeout(provider)
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeout(provider)
	}
	return NewNetwork(provider, err)
}
