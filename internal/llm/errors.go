package llm

import (
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// HTTPError is a transport failure or a non-2xx response from a provider.
// These are retryable by the caller; adapters never retry on their own.
type HTTPError struct {
	Provider   string
	StatusCode int // 0 when the request never got a response
	Body       string
	Err        error
}

func (e *HTTPError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, truncate(e.Body, 300))
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s returned status %d: %v", e.Provider, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s returned status %d", e.Provider, e.StatusCode)
	default:
		return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
	}
}

func (e *HTTPError) Unwrap() error { return e.Err }

// ResponseShapeError means the provider answered but the payload was not
// in a shape the adapter understands.
type ResponseShapeError struct {
	Provider string
	Reason   string
}

func (e *ResponseShapeError) Error() string {
	return fmt.Sprintf("%s: unexpected response shape: %s", e.Provider, e.Reason)
}

// IsShapeError reports whether err is or wraps a *ResponseShapeError.
func IsShapeError(err error) bool {
	var se *ResponseShapeError
	return errors.As(err, &se)
}

// wrapOpenAIError converts a go-openai client error into an *HTTPError,
// keeping the status code when the API returned one.
func wrapOpenAIError(provider string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &HTTPError{Provider: provider, StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &HTTPError{Provider: provider, StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	return &HTTPError{Provider: provider, Err: err}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
