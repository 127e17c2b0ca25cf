package auth

import (
	"fmt"
	"net/http"
	"time"
)

// Kind classifies a lifecycle failure so the HTTP layer can map it to a
// status code without inspecting message text.
type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindUnverified
	KindRateLimited
	KindLocked
	KindIncorrectCredential
	KindConflict
	KindInvalidToken
	KindExpired
	KindSamePassword
	KindDelivery
	KindInternal
)

// Error is the typed failure returned by every Service operation. Business
// failures are built at the point of detection; only KindInternal wraps an
// unexpected store/IO cause.
type Error struct {
	Kind       Kind
	Message    string
	Violations []string
	RetryAfter time.Duration

	// Attempt budgets remaining, when the failure consumed an attempt.
	OTPAttemptsLeft   *int
	LoginAttemptsLeft *int

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// HTTPStatus maps the failure kind onto the REST surface.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindInvalidToken, KindExpired, KindSamePassword,
		KindUnverified, KindNotFound:
		return http.StatusBadRequest
	case KindIncorrectCredential:
		return http.StatusUnauthorized
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited, KindLocked:
		return http.StatusTooManyRequests
	case KindDelivery, KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func validationError(violations []string) *Error {
	return &Error{
		Kind:       KindValidation,
		Message:    "validation failed",
		Violations: violations,
	}
}

func notFoundError() *Error {
	return &Error{Kind: KindNotFound, Message: "account not found"}
}

func unverifiedError() *Error {
	return &Error{Kind: KindUnverified, Message: "account not verified"}
}

func lockedError(remaining time.Duration) *Error {
	return &Error{
		Kind:       KindLocked,
		Message:    "account temporarily locked",
		RetryAfter: remaining,
	}
}

func rateLimitedError(msg string, remaining time.Duration) *Error {
	return &Error{Kind: KindRateLimited, Message: msg, RetryAfter: remaining}
}

func invalidTokenError(msg string) *Error {
	return &Error{Kind: KindInvalidToken, Message: msg}
}

func expiredError(msg string) *Error {
	return &Error{Kind: KindExpired, Message: msg}
}

func deliveryError(msg string, cause error) *Error {
	return &Error{Kind: KindDelivery, Message: msg, cause: cause}
}

func internalError(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", cause: cause}
}

func intPtr(n int) *int { return &n }
