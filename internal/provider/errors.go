package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// Kind classifies a backend failure for routing decisions.
type Kind int

const (
	KindOther Kind = iota
	KindRateLimited
	KindAuth
	KindEmptyResponse
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindAuth:
		return "auth"
	case KindEmptyResponse:
		return "empty_response"
	case KindTimeout:
		return "timeout"
	default:
		return "other"
	}
}

// Error is a classified backend failure. Classification happens at the
// transport boundary from typed API errors; string matching is only a
// fallback for errors that arrive untyped.
type Error struct {
	Backend     string
	Kind        Kind
	Status      int
	Remediation string
	Err         error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d): %v", e.Backend, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Backend, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a classified backend error of the given
// kind.
func IsKind(err error, kind Kind) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == kind
}

// keyConsoleURL is where new Gemini API keys are issued.
const keyConsoleURL = "https://aistudio.google.com/app/apikey"

const authRemediation = "The API key was rejected. Generate a new key at " +
	keyConsoleURL + " and update GEMINI_API_KEY."

// classify wraps a transport error with its failure kind. Errors that are
// already classified pass through unchanged.
func classify(backend string, err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Backend: backend, Kind: KindTimeout, Err: err}
	}

	var gerr genai.APIError
	if errors.As(err, &gerr) {
		return fromStatus(backend, gerr.Code, err)
	}
	var oerr *openai.APIError
	if errors.As(err, &oerr) {
		return fromStatus(backend, oerr.HTTPStatusCode, err)
	}

	// Untyped transport error: fall back to inspecting the rendered text.
	msg := err.Error()
	switch {
	case containsAny(msg, "429", "RESOURCE_EXHAUSTED", "rate limit", "503", "UNAVAILABLE", "overloaded"):
		return &Error{Backend: backend, Kind: KindRateLimited, Err: err}
	case containsAny(msg, "401", "403", "UNAUTHENTICATED", "PERMISSION_DENIED", "API key not valid", "invalid api key"):
		return &Error{Backend: backend, Kind: KindAuth, Remediation: authRemediation, Err: err}
	default:
		return &Error{Backend: backend, Kind: KindOther, Err: err}
	}
}

func fromStatus(backend string, status int, err error) *Error {
	e := &Error{Backend: backend, Status: status, Err: err}
	switch status {
	case 429, 503:
		e.Kind = KindRateLimited
	case 401, 403:
		e.Kind = KindAuth
		e.Remediation = authRemediation
	default:
		e.Kind = KindOther
	}
	return e
}

func containsAny(s string, subs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}
