package ai

import (
	"context"
	"fmt"
	"sync"
)

// MockReply is one scripted outcome of MockTransport
type MockReply struct {
	Reply *RawReply
	Err   error
}

// FunctionCallReply scripts a structured answer through the named function
func FunctionCallReply(name, arguments string) MockReply {
	return MockReply{Reply: &RawReply{
		FunctionCall: &FunctionCall{Name: name, Arguments: arguments},
		FinishReason: "function_call",
		Model:        "mock",
	}}
}

// ContentReply scripts a plain content answer
func ContentReply(content string) MockReply {
	return MockReply{Reply: &RawReply{Content: content, FinishReason: "stop", Model: "mock"}}
}

// ErrorReply scripts a failed call
func ErrorReply(err error) MockReply {
	return MockReply{Err: err}
}

// MockTransport replays scripted replies in order and records every request.
// When the script runs out, Responder is consulted if set.
type MockTransport struct {
	Responder func(req *ChatRequest) (*RawReply, error)

	mu       sync.Mutex
	script   []MockReply
	requests []*ChatRequest
}

// NewMockTransport creates a mock with the given script
func NewMockTransport(script ...MockReply) *MockTransport {
	return &MockTransport{script: script}
}

// Enqueue appends replies to the script
func (m *MockTransport) Enqueue(replies ...MockReply) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, replies...)
}

// Send implements Transport
func (m *MockTransport) Send(ctx context.Context, req *ChatRequest) (*RawReply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.requests = append(m.requests, req)
	if len(m.script) == 0 {
		responder := m.Responder
		m.mu.Unlock()
		if responder != nil {
			return responder(req)
		}
		return nil, fmt.Errorf("mock transport: no scripted reply for request %d", len(m.requests))
	}
	next := m.script[0]
	m.script = m.script[1:]
	m.mu.Unlock()

	if next.Err != nil {
		return nil, next.Err
	}
	return next.Reply, nil
}

// Calls returns the number of requests received
func (m *MockTransport) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns the recorded requests in order
func (m *MockTransport) Requests() []*ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*ChatRequest(nil), m.requests...)
}

// LastRequest returns the most recent request, or nil
func (m *MockTransport) LastRequest() *ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}
