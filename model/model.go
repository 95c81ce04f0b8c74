package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/yoyo-67/ai-agent-mvp/core"
)

// Finish reasons terminating a turn. Providers with different vocabularies
// map onto these; anything else is treated as plain completion.
const (
	FinishStop      = "stop"
	FinishToolCalls = "tool_calls"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object (minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Request captures the normalized model input produced by the agent loop.
type Request struct {
	Model    string           `json:"model"`
	Contents []core.Content   `json:"contents"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
	Stream   bool             `json:"stream,omitempty"`
}

// ToolCallDelta is one fragment of a tool invocation under reconstruction.
// Fragments key on the per-turn positional Index, not the invocation id: ID
// and Name are expected present only on the first fragment for an index, and
// ArgumentsDelta strictly appends to that index's argument text.
type ToolCallDelta struct {
	Index          int64  `json:"index"`
	ID             string `json:"id,omitempty"`
	Name           string `json:"name,omitempty"`
	ArgumentsDelta string `json:"arguments_delta,omitempty"`
}

// Response is one fragment of a streamed turn. FinishReason is empty on
// intermediate fragments and set exactly once on the terminal fragment,
// carrying the turn's disposition.
type Response struct {
	TextDelta    string          `json:"text_delta,omitempty"`
	ToolCalls    []ToolCallDelta `json:"tool_calls,omitempty"`
	FinishReason string          `json:"finish_reason,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by the agent loop to drive
// generation. Generate returns a fragment channel and an error channel; both
// are closed when the turn ends. An error on the error channel is fatal for
// the turn.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
// Turns are scripted in advance with QueueTurn and replayed in order; every
// request is recorded for later inspection.
type MockModel struct {
	info Info

	mu       sync.Mutex
	turns    [][]Response
	call     int
	requests []Request
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{Name: name, Provider: provider, SupportsTools: true},
	}
}

// QueueTurn appends one scripted turn; its fragments are replayed verbatim
// when the corresponding Generate call arrives.
func (m *MockModel) QueueTurn(fragments ...Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, fragments)
}

// Requests returns a copy of all requests seen so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Generate implements Model by replaying the next scripted turn.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.requests = append(m.requests, req)
	var fragments []Response
	exhausted := m.call >= len(m.turns)
	if !exhausted {
		fragments = m.turns[m.call]
		m.call++
	}
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)
		if exhausted {
			errCh <- fmt.Errorf("mock model: no scripted turn for call %d", m.call+1)
			return
		}
		for _, f := range fragments {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case respCh <- f:
			}
		}
	}()
	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
