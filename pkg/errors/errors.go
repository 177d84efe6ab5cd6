package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeDiscovery means no vendor platform or booking URL could be resolved
	ErrorTypeDiscovery ErrorType = "discovery_failure"
	// ErrorTypeExtractionTimeout means a page or network call did not answer in time
	ErrorTypeExtractionTimeout ErrorType = "extraction_timeout"
	// ErrorTypeParseAmbiguous means a candidate listing failed a required-field check
	ErrorTypeParseAmbiguous ErrorType = "parse_ambiguous"
	// ErrorTypeIdentityCollision means two listings in one pass share a key with different data
	ErrorTypeIdentityCollision ErrorType = "identity_collision"
	// ErrorTypeWrite means the store rejected an upsert
	ErrorTypeWrite ErrorType = "write_failure"
	// ErrorTypeNetwork represents network-related errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeRateLimit represents remote throttling
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// PipelineError is an ingestion failure attributed to one target
type PipelineError struct {
	Type    ErrorType
	Target  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Target, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Target, e.Message)
}

// Unwrap returns the underlying error
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if retrying the same target later may succeed
func (e *PipelineError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeExtractionTimeout, ErrorTypeWrite:
		return true
	default:
		return false
	}
}

// New creates a new PipelineError
func New(errType ErrorType, target, message string, err error) *PipelineError {
	return &PipelineError{
		Type:    errType,
		Target:  target,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewDiscovery creates a discovery failure
func NewDiscovery(target, message string) *PipelineError {
	return New(ErrorTypeDiscovery, target, message, nil)
}

// NewExtractionTimeout creates an extraction timeout
func NewExtractionTimeout(target string, limit time.Duration, err error) *PipelineError {
	return New(ErrorTypeExtractionTimeout, target, fmt.Sprintf("no response within %v", limit), err)
}

// NewParseAmbiguous creates a parse failure for a single candidate listing
func NewParseAmbiguous(target, message string) *PipelineError {
	return New(ErrorTypeParseAmbiguous, target, message, nil)
}

// NewIdentityCollision creates an identity collision warning
func NewIdentityCollision(target, key string) *PipelineError {
	return New(ErrorTypeIdentityCollision, target, "conflicting listings for "+key, nil)
}

// NewWrite creates a store write failure
func NewWrite(target, message string, err error) *PipelineError {
	return New(ErrorTypeWrite, target, message, err)
}

// NewNetwork creates a new network error
func NewNetwork(target, message string, err error) *PipelineError {
	return New(ErrorTypeNetwork, target, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(target string, duration time.Duration) *PipelineError {
	return New(ErrorTypeRateLimit, target, fmt.Sprintf("rate limited for %v", duration), nil)
}

// NewCache creates a new cache error
func NewCache(target, message string, err error) *PipelineError {
	return New(ErrorTypeCache, target, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(target, message string, err error) *PipelineError {
	return New(ErrorTypePublisher, target, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *PipelineError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// TypeOf returns the type of the first PipelineError in err's chain, or "" if none
func TypeOf(err error) ErrorType {
	var pe *PipelineError
	if stderrors.As(err, &pe) {
		return pe.Type
	}
	return ""
}

// Is reports whether err carries a PipelineError of the given type
func Is(err error, errType ErrorType) bool {
	return TypeOf(err) == errType
}
