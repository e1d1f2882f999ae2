// Package llm abstracts the hosted text-generation endpoint used to convert
// support articles into executable routines.
package llm

import (
	"context"
	"errors"
)

// Prompt carries the system and user messages for a single completion call.
type Prompt struct {
	System string
	User   string
}

// Completer issues one completion request and returns its single textual
// response. Implementations must honor ctx cancellation.
type Completer interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// Settings configures the concrete client.
type Settings struct {
	APIKey     string
	Model      string
	BaseURL    string  // optional override for OpenAI-compatible endpoints
	RequestsPS float64 // client-side rate limit toward the vendor
	Burst      int
}

// Sentinel errors for errors.Is checks at the boundary.
var (
	ErrEmptyResponse = errors.New("llm: empty response from endpoint")
	ErrNotConfigured = errors.New("llm: client not configured")
)
