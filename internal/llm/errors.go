package llm

import "fmt"

// ClientError is the base error type for everything this package returns.
type ClientError struct {
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// APIError represents a non-success HTTP status from the endpoint. It
// carries the status code and the best-effort parsed error message.
type APIError struct {
	ClientError
	Provider   string
	StatusCode int
	Retryable  bool
	RetryAfter *float64 // seconds, from the Retry-After header when present
}

func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s (status=%d, retryable=%v)", e.Provider, e.Message, e.StatusCode, e.Retryable)
}

// Concrete endpoint error types.

type AuthenticationError struct{ APIError }
type AccessDeniedError struct{ APIError }
type NotFoundError struct{ APIError }
type InvalidRequestError struct{ APIError }
type RateLimitError struct{ APIError }
type ServerError struct{ APIError }
type ContextLengthError struct{ APIError }

// Non-endpoint errors.

type RequestTimeoutError struct{ ClientError }
type NetworkError struct{ ClientError }
type ConfigurationError struct{ ClientError }

// ErrorFromStatusCode maps an HTTP status code to the appropriate error type.
func ErrorFromStatusCode(statusCode int, message, provider string, retryAfter *float64) error {
	ae := APIError{
		ClientError: ClientError{Message: message},
		Provider:    provider,
		StatusCode:  statusCode,
		RetryAfter:  retryAfter,
	}

	switch statusCode {
	case 400, 422:
		return &InvalidRequestError{APIError: ae}
	case 401:
		return &AuthenticationError{APIError: ae}
	case 403:
		return &AccessDeniedError{APIError: ae}
	case 404:
		return &NotFoundError{APIError: ae}
	case 408:
		ae.Retryable = true
		return &RequestTimeoutError{ClientError: ClientError{Message: message}}
	case 413:
		return &ContextLengthError{APIError: ae}
	case 429:
		ae.Retryable = true
		return &RateLimitError{APIError: ae}
	case 500, 502, 503, 504:
		ae.Retryable = true
		return &ServerError{APIError: ae}
	default:
		// Unknown statuses default to retryable.
		ae.Retryable = true
		return &ae
	}
}

// StatusCode extracts the HTTP status from an endpoint error, or 0.
func StatusCode(err error) int {
	switch e := err.(type) {
	case *APIError:
		return e.StatusCode
	case *AuthenticationError:
		return e.StatusCode
	case *AccessDeniedError:
		return e.StatusCode
	case *NotFoundError:
		return e.StatusCode
	case *InvalidRequestError:
		return e.StatusCode
	case *RateLimitError:
		return e.StatusCode
	case *ServerError:
		return e.StatusCode
	case *ContextLengthError:
		return e.StatusCode
	default:
		return 0
	}
}

// IsRetryable reports whether the error is safe to retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch e := err.(type) {
	case *APIError:
		return e.Retryable
	case *AuthenticationError, *AccessDeniedError, *NotFoundError,
		*InvalidRequestError, *ContextLengthError, *ConfigurationError:
		return false
	case *RateLimitError, *ServerError, *NetworkError, *RequestTimeoutError:
		return true
	default:
		return true
	}
}
