package llm

import (
	"context"
	"errors"
	"sync"
)

// MockResponse is a canned reply for the MockBackend.
type MockResponse struct {
	Text string
	Err  error
}

// MockBackend is a deterministic Backend for tests. It returns canned
// responses in FIFO order and records every call it receives.
type MockBackend struct {
	mu        sync.Mutex
	name      ProviderName
	responses []MockResponse
	Calls     []Call

	// Handler, when set, is consulted instead of the response queue.
	Handler func(Call) (string, error)
}

// NewMockBackend creates a MockBackend registered under name.
func NewMockBackend(name ProviderName, responses ...MockResponse) *MockBackend {
	return &MockBackend{name: name, responses: responses}
}

func (m *MockBackend) Name() ProviderName { return m.name }

// Generate returns the next canned response.
func (m *MockBackend) Generate(_ context.Context, call Call) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, call)

	if m.Handler != nil {
		return m.Handler(call)
	}
	if len(m.responses) == 0 {
		return "", errors.New("mock backend: no response queued")
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp.Text, resp.Err
}

// AddResponse appends a canned response to the queue.
func (m *MockBackend) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

// CallCount returns the number of Generate calls made.
func (m *MockBackend) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// KeysUsed returns the API keys of all recorded calls, in order.
func (m *MockBackend) KeysUsed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, len(m.Calls))
	for i, c := range m.Calls {
		keys[i] = c.APIKey
	}
	return keys
}
