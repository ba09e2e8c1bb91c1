package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeSourceUnreachable means the fetch step failed
	ErrorTypeSourceUnreachable ErrorType = "source_unreachable"
	// ErrorTypeNoPriceFound means no locator produced a candidate
	ErrorTypeNoPriceFound ErrorType = "no_price_found"
	// ErrorTypeUnparseablePrice means the winning candidate is not a valid amount
	ErrorTypeUnparseablePrice ErrorType = "unparseable_price"

	// ErrorTypeNetwork represents network-related errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeTimeout represents a request that exceeded its deadline
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeNotFound represents a missing tracked item or unknown source
	ErrorTypeNotFound ErrorType = "not_found"
)

// ExtractionError is the typed error returned by the fetch layer and the price pipeline
type ExtractionError struct {
	Type    ErrorType
	Source  string
	Message string
	Err     error
	Time    time.Time

	// RetryAfter is how long the source asked to be left alone (rate_limit only).
	RetryAfter time.Duration
}

// Error implements the error interface
func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Kind folds transport detail types into SourceUnreachable.
func (e *ExtractionError) Kind() ErrorType {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeTimeout:
		return ErrorTypeSourceUnreachable
	default:
		return e.Type
	}
}

// IsRetryable returns true if the caller may retry the same request later
func (e *ExtractionError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeTimeout, ErrorTypeSourceUnreachable:
		return true
	case ErrorTypeRateLimit:
		return false
	default:
		return false
	}
}

// New creates a new ExtractionError
func New(errType ErrorType, source, message string, err error) *ExtractionError {
	return &ExtractionError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewSourceUnreachable wraps a fetch failure
func NewSourceUnreachable(source string, err error) *ExtractionError {
	return New(ErrorTypeSourceUnreachable, source, "source unreachable", err)
}

// NewNoPriceFound creates a new no-price error
func NewNoPriceFound(source string) *ExtractionError {
	return New(ErrorTypeNoPriceFound, source, "no price candidate found", nil)
}

// NewUnparseablePrice creates a new unparseable price error
func NewUnparseablePrice(source, text string, err error) *ExtractionError {
	return New(ErrorTypeUnparseablePrice, source, fmt.Sprintf("cannot parse price %q", text), err)
}

// NewNetwork creates a new network error
func NewNetwork(source, message string, err error) *ExtractionError {
	return New(ErrorTypeNetwork, source, message, err)
}

// NewTimeout creates a new timeout error
func NewTimeout(source string, err error) *ExtractionError {
	return New(ErrorTypeTimeout, source, "request timed out", err)
}

// NewRateLimit creates a new rate limit error. duration is the source's
// Retry-After, zero when it gave none.
func NewRateLimit(source string, duration time.Duration) *ExtractionError {
	message := "rate limited"
	if duration > 0 {
		message = fmt.Sprintf("rate limited for %v", duration)
	}
	e := New(ErrorTypeRateLimit, source, message, nil)
	e.RetryAfter = duration
	return e
}

// NewValidation creates a new validation error
func NewValidation(source, message string) *ExtractionError {
	return New(ErrorTypeValidation, source, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ExtractionError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// NewNotFound creates a new not-found error
func NewNotFound(source, message string) *ExtractionError {
	return New(ErrorTypeNotFound, source, message, nil)
}

// KindOf returns the folded kind of err, or "" when err is not an ExtractionError.
func KindOf(err error) ErrorType {
	var e *ExtractionError
	if stderrors.As(err, &e) {
		return e.Kind()
	}
	return ""
}

// IsKind reports whether err is an ExtractionError of the given folded kind.
func IsKind(err error, kind ErrorType) bool {
	return err != nil && KindOf(err) == kind
}

// TypeOf returns the unfolded type of the innermost ExtractionError in err's
// chain, which names the transport failure behind a SourceUnreachable.
func TypeOf(err error) ErrorType {
	if e := innermost(err); e != nil {
		return e.Type
	}
	return ""
}

// Retryable reports whether the innermost ExtractionError in err's chain may
// be retried straight away.
func Retryable(err error) bool {
	if e := innermost(err); e != nil {
		return e.IsRetryable()
	}
	return false
}

// RetryAfterOf returns the first RetryAfter set along err's chain, or zero.
func RetryAfterOf(err error) time.Duration {
	for err != nil {
		var e *ExtractionError
		if !stderrors.As(err, &e) {
			return 0
		}
		if e.RetryAfter > 0 {
			return e.RetryAfter
		}
		err = e.Err
	}
	return 0
}

func innermost(err error) *ExtractionError {
	var found *ExtractionError
	for err != nil {
		var e *ExtractionError
		if !stderrors.As(err, &e) {
			break
		}
		found = e
		err = e.Err
	}
	return found
}

// IsType reports whether any ExtractionError in err's chain has type t.
func IsType(err error, t ErrorType) bool {
	for err != nil {
		var e *ExtractionError
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Type == t {
			return true
		}
		err = e.Err
	}
	return false
}
