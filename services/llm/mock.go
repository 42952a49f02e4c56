package llm

import (
	"context"
	"sync"
)

// MockClient is a deterministic LLMClient for tests.
//
// Responses are returned in order; once exhausted, the last response
// repeats. Every call is recorded for assertions.
type MockClient struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	calls     [][]Message
}

func (m *MockClient) Chat(ctx context.Context, messages []Message,
	params GenerationParams) (string, error) {

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, messages)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", nil
	}
	idx := len(m.calls) - 1
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	return m.Responses[idx], nil
}

// Calls returns a copy of all recorded message batches.
func (m *MockClient) Calls() [][]Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]Message, len(m.calls))
	copy(out, m.calls)
	return out
}

var _ LLMClient = (*MockClient)(nil)
