package model

import "fmt"

// UpstreamError is returned when an external service answers with a
// non-2xx status. Message carries the upstream's own error text when the
// response had one.
type UpstreamError struct {
	Service    string // "exchange", "llm", "feed"
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: upstream status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s: upstream status %d: %s", e.Service, e.StatusCode, e.Message)
}
