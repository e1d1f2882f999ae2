package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Mock is a Completer for tests and local runs without vendor credentials.
// CompleteFn overrides the default behavior when set.
type Mock struct {
	CompleteFn func(ctx context.Context, prompt Prompt) (string, error)

	mu    sync.Mutex
	calls int
}

// Complete returns a canned step-numbered routine echoing the prompt, or
// delegates to CompleteFn.
func (m *Mock) Complete(ctx context.Context, prompt Prompt) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.CompleteFn != nil {
		return m.CompleteFn(ctx, prompt)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("1. Greet the customer.\n")
	sb.WriteString("2. Apply the policy from the article.\n")
	fmt.Fprintf(&sb, "3. Confirm resolution. (source length: %d)\n", len(prompt.User))
	return sb.String(), nil
}

// Calls reports how many completions were requested.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
