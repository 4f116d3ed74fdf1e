package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// SuggestionUnavailableError reports that the provider could not produce a
// suggestion. It is per-request and never fatal to an annotation session.
type SuggestionUnavailableError struct {
	Object     string
	Column     string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *SuggestionUnavailableError) Error() string {
	target := e.Object
	if e.Column != "" {
		target += "." + e.Column
	}
	msg := "suggestion unavailable for " + target
	if e.StatusCode > 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SuggestionUnavailableError) Unwrap() error {
	return e.Err
}

// IsRetryable implements retry.RetryableError
func (e *SuggestionUnavailableError) IsRetryable() bool {
	return e.Retryable
}

// ErrEmptyResponse is returned when the provider answers with no usable text
var ErrEmptyResponse = errors.New("empty response from model")

// classify wraps a provider failure for req, deciding whether it is worth retrying
func classify(req Request, err error) *SuggestionUnavailableError {
	var sue *SuggestionUnavailableError
	if errors.As(err, &sue) {
		return sue
	}

	out := &SuggestionUnavailableError{Object: req.Object, Column: req.Column, Err: err}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		out.StatusCode = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		out.StatusCode = reqErr.HTTPStatusCode
	}

	if out.StatusCode > 0 {
		out.Retryable = out.StatusCode == http.StatusTooManyRequests || out.StatusCode >= 500
		return out
	}

	lower := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"connection reset",
		"no such host",
		"timeout",
		"deadline exceeded",
		"rate limit",
		"rate_limit",
		"overloaded",
		"503",
		"502",
		"500",
		"429",
	} {
		if strings.Contains(lower, pattern) {
			out.Retryable = true
			break
		}
	}
	return out
}
