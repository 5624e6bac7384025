package provider

import (
	"context"
	"sync"

	"github.com/pawtograder/triage/internal/types"
)

// MockClient is a scriptable Client for tests and dry runs. Each call pops
// the next scripted error (nil means success) and returns the configured
// content. Calls are recorded for assertion.
type MockClient struct {
	mu sync.Mutex

	// Content is returned on every successful call.
	Content string

	// Usage, when set, is attached to successful responses.
	Usage *types.UsageMetadata

	// Errs is consumed one per call; nil entries succeed. When the script
	// is exhausted subsequent calls succeed.
	Errs []error

	calls []Request
}

var _ Client = (*MockClient)(nil)

// Name implements Client.
func (m *MockClient) Name() string {
	return "mock"
}

// Process implements Client.
func (m *MockClient) Process(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)

	if len(m.Errs) > 0 {
		err := m.Errs[0]
		m.Errs = m.Errs[1:]
		if err != nil {
			return nil, err
		}
	}

	var usage *types.UsageMetadata
	if m.Usage != nil {
		u := *m.Usage
		usage = &u
	}
	content := m.Content
	if content == "" {
		content = "mock response"
	}
	return &Response{Content: content, Usage: usage}, nil
}

// CallCount returns how many times Process was invoked.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns a copy of the recorded requests.
func (m *MockClient) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}
