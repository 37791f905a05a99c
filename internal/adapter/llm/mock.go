package llm

import (
	"context"
	"sync"

	"docintel/internal/port"
)

// MockChat returns a canned reply and records every request.
type MockChat struct {
	Reply string

	mu    sync.Mutex
	calls [][]port.ChatMessage
}

func NewMockChat(reply string) *MockChat {
	return &MockChat{Reply: reply}
}

func (m *MockChat) Complete(ctx context.Context, apiKey string, messages []port.ChatMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	m.calls = append(m.calls, append([]port.ChatMessage(nil), messages...))
	m.mu.Unlock()
	return m.Reply, nil
}

// Calls returns the message lists received so far.
func (m *MockChat) Calls() [][]port.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]port.ChatMessage(nil), m.calls...)
}

func (m *MockChat) ModelName() string {
	return "mock"
}
