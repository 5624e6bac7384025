// Package provider defines the LLM backend interface the job processor
// calls, the typed error classification that drives its retry policy, and
// the concrete Anthropic-backed implementation.
package provider

import (
	"context"

	"github.com/pawtograder/triage/internal/types"
)

// Message is one chat turn sent to the backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RoleUser and RoleAssistant are the supported message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Request is one backend call: a model, an ordered message list, and
// optional sampling parameters (zero values mean backend defaults).
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int64
}

// Response carries the backend's text plus optional usage accounting.
// Usage is nil when the backend does not report it.
type Response struct {
	Content string
	Usage   *types.UsageMetadata
}

// newUsage builds usage metadata from backend token counts. Cost is left
// zero here; the ledger prices usage per model when recording it.
func newUsage(promptTokens, completionTokens int64, responseID string) *types.UsageMetadata {
	return &types.UsageMetadata{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		ResponseID:       responseID,
	}
}

// Client is the pluggable LLM backend boundary. Implementations must
// return a *Error with a populated Class on failure so the processor can
// apply its retry policy without inspecting message strings.
type Client interface {
	// Process sends one request and returns the backend's response.
	Process(ctx context.Context, req Request) (*Response, error)

	// Name identifies the backend for logging.
	Name() string
}
