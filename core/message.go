package core

import "github.com/google/uuid"

// Conversation roles. A Content value carries exactly one of these.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Part represents a polymorphic segment of role-based content. Concrete part
// types implement the unexported isPart marker enabling a closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text string // Plain UTF-8 text
}

// isPart implements the Part interface for TextPart.
func (TextPart) isPart() {}

// FunctionCall describes a tool/function invocation request.
//
// Arguments holds the serialized JSON argument payload. During streaming it
// exists in a partial state (raw accumulating text); it is promoted to a
// parseable record only once the turn's terminal disposition is observed.
type FunctionCall struct {
	ID        string `json:"id,omitempty"`        // Opaque id assigned by the provider
	Name      string `json:"name"`                // Tool / function name
	Arguments string `json:"arguments,omitempty"` // Serialized JSON argument payload
}

// FunctionCallPart wraps a FunctionCall as a content part.
type FunctionCallPart struct {
	FunctionCall FunctionCall
}

// isPart implements the Part interface for FunctionCallPart.
func (FunctionCallPart) isPart() {}

// FunctionResponse describes the outcome of a function call. Tool failures
// are carried in Response as ordinary error-prefixed text, never as a
// separate error channel, so the model can observe and react to them.
type FunctionResponse struct {
	ID       string `json:"id"`       // Matches originating FunctionCall ID
	Name     string `json:"name"`     // Function name
	Response string `json:"response"` // Result text (error-prefixed on failure)
}

// FunctionResponsePart wraps a FunctionResponse as a content part.
type FunctionResponsePart struct {
	FunctionResponse FunctionResponse
}

// isPart implements the Part interface for FunctionResponsePart.
func (FunctionResponsePart) isPart() {}

// Content holds role + ordered parts. A slice of Content is the
// conversation history owned by the loop for the duration of one run.
type Content struct {
	Role  string // Conversation role (system, user, assistant, tool)
	Parts []Part // Ordered heterogeneous parts
}

// NewTextContent builds a single-text-part message for the given role.
func NewTextContent(role, text string) Content {
	return Content{Role: role, Parts: []Part{TextPart{Text: text}}}
}

// Text concatenates all text parts preserving their order.
func (c Content) Text() string {
	var out string
	for _, p := range c.Parts {
		if tp, ok := p.(TextPart); ok {
			out += tp.Text
		}
	}
	return out
}

// FunctionCalls returns any FunctionCall parts contained within the content
// preserving their original order.
func (c Content) FunctionCalls() []FunctionCall {
	var calls []FunctionCall
	for _, p := range c.Parts {
		if fc, ok := p.(FunctionCallPart); ok {
			calls = append(calls, fc.FunctionCall)
		}
	}
	return calls
}

// FunctionResponses returns any FunctionResponse parts contained within the
// content preserving their original order.
func (c Content) FunctionResponses() []FunctionResponse {
	var responses []FunctionResponse
	for _, p := range c.Parts {
		if fr, ok := p.(FunctionResponsePart); ok {
			responses = append(responses, fr.FunctionResponse)
		}
	}
	return responses
}

// NewID generates a new unique identifier for runs.
func NewID() string { return uuid.NewString() }
