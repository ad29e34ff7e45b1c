package provider

import (
	"context"
	"sync"
)

// MockProvider is a test provider that returns predefined responses.
type MockProvider struct {
	name     string
	response string
	chatErr  error

	mu   sync.Mutex
	last []Message
}

// NewMock creates a new mock provider.
func NewMock(name, response string) *MockProvider {
	return &MockProvider{
		name:     name,
		response: response,
	}
}

// WithChatError sets an error to return from Chat.
func (p *MockProvider) WithChatError(err error) *MockProvider {
	p.chatErr = err
	return p
}

// Name returns the provider identifier.
func (p *MockProvider) Name() string {
	return p.name
}

// Chat returns the predefined response or error.
func (p *MockProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	p.mu.Lock()
	p.last = append([]Message(nil), messages...)
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.chatErr != nil {
		return "", p.chatErr
	}
	return p.response, nil
}

// LastMessages returns the messages from the most recent Chat call.
func (p *MockProvider) LastMessages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.last...)
}
