package pipeline

import "net/http"

// Error kinds the pipeline distinguishes when surfacing failures.
const (
	KindInvalidRequest = "invalid_request"
	KindUpstreamError  = "upstream_error"
	KindUpstreamShape  = "upstream_shape_error"
	KindTransport      = "transport_error"
	KindInternal       = "internal_error"
)

// RequestError carries an error kind and the HTTP status to surface.
type RequestError struct {
	Kind       string
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	return e.Message
}

// upstreamStatus preserves an upstream 4xx-5xx status and maps anything
// else to 502.
func upstreamStatus(status int) int {
	if status >= 400 && status < 600 {
		return status
	}
	return http.StatusBadGateway
}

func upstreamError(status int, message string) *RequestError {
	return &RequestError{
		Kind:       KindUpstreamError,
		StatusCode: upstreamStatus(status),
		Message:    message,
	}
}

func shapeError(message string) *RequestError {
	return &RequestError{
		Kind:       KindUpstreamShape,
		StatusCode: http.StatusBadGateway,
		Message:    message,
	}
}

func transportError(message string) *RequestError {
	return &RequestError{
		Kind:       KindTransport,
		StatusCode: http.StatusBadGateway,
		Message:    message,
	}
}
