// Package llm turns a vendor text-completion endpoint into a core.Provider.
// Vendor packages only implement Completer; prompting and response parsing live here.
package llm

import "context"

// CompletionRequest is one prompt sent to a vendor model
type CompletionRequest struct {
	System string
	Prompt string
	// JSON asks the vendor for a JSON object where it supports a structured output mode
	JSON bool
}

// Completer sends a single prompt to a vendor model and returns the raw text reply
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompleterFunc adapts a function to the Completer interface
type CompleterFunc func(ctx context.Context, req CompletionRequest) (string, error)

// Complete calls f
func (f CompleterFunc) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return f(ctx, req)
}
