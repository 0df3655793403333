package email

import "errors"

// SendError wraps a mail provider failure with classification metadata.
// The delivery worker's retry-vs-discard decision hinges on Permanent.
type SendError struct {
	// StatusCode is the HTTP status returned by the provider API,
	// or 0 for transport-level failures.
	StatusCode int
	// Message is the provider's error description.
	Message string
	// Permanent indicates the send will not succeed on retry.
	Permanent bool
}

func (e *SendError) Error() string {
	return "email provider: " + e.Message
}

// IsPermanent reports whether err is a permanent failure that should be
// discarded rather than retried.
func IsPermanent(err error) bool {
	var se *SendError
	if errors.As(err, &se) {
		return se.Permanent
	}
	return false
}

// IsTransient reports whether err may succeed on retry.
// Unknown errors (network, timeouts) are treated as transient so no
// recipient is dropped on an ambiguous failure.
func IsTransient(err error) bool {
	var se *SendError
	if errors.As(err, &se) {
		return !se.Permanent
	}
	return true
}

// classifyStatus turns a non-2xx provider status into a SendError.
// 408 and 429 are retried; any other 4xx means the request itself is
// rejected and retrying is futile. 5xx is the provider's problem.
func classifyStatus(statusCode int, body string) *SendError {
	se := &SendError{StatusCode: statusCode, Message: body}
	switch {
	case statusCode == 408 || statusCode == 429:
		se.Permanent = false
	case statusCode >= 400 && statusCode < 500:
		se.Permanent = true
	default:
		se.Permanent = false
	}
	return se
}
