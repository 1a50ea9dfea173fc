package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// ErrorKind classifies a failed model call.
type ErrorKind string

const (
	KindTransport    ErrorKind = "transport"
	KindAuth         ErrorKind = "auth"
	KindQuota        ErrorKind = "quota"
	KindMalformed    ErrorKind = "malformed"
	KindUnknownModel ErrorKind = "unknown_model"
	KindCanceled     ErrorKind = "canceled"
)

// Error is the only failure the Adapter returns.
type Error struct {
	Model   string
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

var errEmptyChoices = errors.New("provider returned no choices")

// AsError converts any error into an *Error for the given model.
func AsError(model string, err error) *Error {
	if err == nil {
		return nil
	}
	var le *Error
	if errors.As(err, &le) {
		return le
	}
	return &Error{Model: model, Kind: classify(err), Message: err.Error(), Err: err}
}

func classify(err error) ErrorKind {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	if errors.Is(err, errEmptyChoices) {
		return KindMalformed
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return kindForStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if k := kindForStatus(reqErr.HTTPStatusCode); k != KindTransport {
			return k
		}
		// non-JSON error bodies and undecodable payloads
		if reqErr.HTTPStatusCode == http.StatusOK {
			return KindMalformed
		}
	}
	return KindTransport
}

func kindForStatus(code int) ErrorKind {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	case http.StatusTooManyRequests, http.StatusPaymentRequired:
		return KindQuota
	default:
		return KindTransport
	}
}

func unknownModel(model string) *Error {
	return &Error{
		Model:   model,
		Kind:    KindUnknownModel,
		Message: fmt.Sprintf("model %q is not available", model),
	}
}
