package dashboard

import (
	"context"
	"errors"

	"crypto-analyst/internal/llm"
	"crypto-analyst/internal/model"
	"crypto-analyst/internal/recommendation"
	"crypto-analyst/internal/snapshot"
)

var (
	// ErrUnknownPair is returned by Select for pairs not in the list.
	ErrUnknownPair = errors.New("pair is not in the list")

	// ErrSuperseded is returned by a refresh whose results were discarded
	// because a newer selection or refresh started.
	ErrSuperseded = errors.New("refresh superseded by a newer one")
)

// ErrorKind is the user-facing classification of a pipeline failure.
type ErrorKind string

const (
	KindInsufficientHistory ErrorKind = "insufficient_history"
	KindNonFinite           ErrorKind = "non_finite"
	KindUpstream            ErrorKind = "upstream_request_failed"
	KindAPIKey              ErrorKind = "api_key"
	KindMalformedResponse   ErrorKind = "malformed_response"
	KindIncompleteResponse  ErrorKind = "incomplete_response"
	KindEmptyResponse       ErrorKind = "empty_response"
	KindTimeout             ErrorKind = "timeout"
	KindCanceled            ErrorKind = "canceled"
	KindUnknown             ErrorKind = "unknown"
)

// Classify maps a pipeline error to its kind. Order matters: ErrAPIKey
// wraps an UpstreamError and must win over the generic upstream kind.
func Classify(err error) ErrorKind {
	var upstream *model.UpstreamError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, snapshot.ErrInsufficientHistory):
		return KindInsufficientHistory
	case errors.Is(err, snapshot.ErrNonFinite):
		return KindNonFinite
	case errors.Is(err, llm.ErrAPIKey):
		return KindAPIKey
	case errors.As(err, &upstream):
		return KindUpstream
	case errors.Is(err, recommendation.ErrMalformedResponse):
		return KindMalformedResponse
	case errors.Is(err, recommendation.ErrIncompleteResponse):
		return KindIncompleteResponse
	case errors.Is(err, llm.ErrEmptyResponse):
		return KindEmptyResponse
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	default:
		return KindUnknown
	}
}

// ViewError is an error as shown to the browser.
type ViewError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func newViewError(err error) *ViewError {
	if err == nil {
		return nil
	}
	return &ViewError{Kind: Classify(err), Message: err.Error()}
}
