package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNavigation represents browser navigation failures
	ErrorTypeNavigation ErrorType = "navigation"
	// ErrorTypeChallenge represents persistent bot-challenge pages
	ErrorTypeChallenge ErrorType = "challenge"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypeSink represents record sink errors
	ErrorTypeSink ErrorType = "sink"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// ScrapeError represents a scraper-specific error
type ScrapeError struct {
	Type     ErrorType
	Category string
	Message  string
	Err      error
	Time     time.Time
}

// Error implements the error interface
func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Category, e.Message)
}

// Unwrap returns the underlying error
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *ScrapeError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNavigation:
		return true
	case ErrorTypeChallenge:
		return false
	case ErrorTypeRateLimit:
		return false
	default:
		return false
	}
}

// New creates a new ScrapeError
func New(errType ErrorType, category, message string, err error) *ScrapeError {
	return &ScrapeError{
		Type:     errType,
		Category: category,
		Message:  message,
		Err:      err,
		Time:     time.Now(),
	}
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(category string, duration time.Duration) *ScrapeError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, category, message, nil)
}

// NewCache creates a new cache error
func NewCache(category, message string, err error) *ScrapeError {
	return New(ErrorTypeCache, category, message, err)
}

// NewSink creates a new sink error
func NewSink(category, message string, err error) *ScrapeError {
	return New(ErrorTypeSink, category, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ScrapeError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// NavigationError is the terminal failure for a single URL once the retry
// budget is exhausted. It is the only error type the navigation layer
// surfaces to callers.
type NavigationError struct {
	URL      string
	Attempts int
	Err      error
}

// Error implements the error interface
func (e *NavigationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("navigation failed after %d attempts: %s: %v", e.Attempts, e.URL, e.Err)
	}
	return fmt.Sprintf("navigation failed after %d attempts: %s", e.Attempts, e.URL)
}

// Unwrap returns the underlying error
func (e *NavigationError) Unwrap() error {
	return e.Err
}

// ChallengeError marks a bot-challenge page that persisted past the extra
// wait. It is treated as a navigation failure for the attempt it occurred on.
type ChallengeError struct {
	URL    string
	Marker string
}

// Error implements the error interface
func (e *ChallengeError) Error() string {
	return fmt.Sprintf("bot challenge persists: %s (marker %q)", e.URL, e.Marker)
}
