package core

import "encoding/json"

// EventKind identifies the type of a stream event.
type EventKind string

// Wire-level event kinds emitted by the agent loop, in the order a consumer
// observes them: zero or more content deltas and tool call start/result
// pairs, then exactly one done event for a successfully completed run.
const (
	EventContentDelta   EventKind = "content_delta"
	EventToolCallStart  EventKind = "tool_call_start"
	EventToolCallResult EventKind = "tool_call_result"
	EventDone           EventKind = "done"
	EventError          EventKind = "error"
)

// StreamEvent is the unit of output of a run: a kind label plus a structured
// payload. After emission it should be treated as immutable. Events reach
// the consumer in the exact sequence generated by the loop; transports must
// not reorder, drop or coalesce them.
type StreamEvent struct {
	Kind EventKind
	Data any
}

// ContentDeltaData carries one streamed text increment. Concatenating the
// deltas of a turn in emission order reconstructs the assistant's text for
// that turn exactly.
type ContentDeltaData struct {
	Delta string `json:"delta"`
}

// ToolCallStartData announces a tool invocation about to execute. Arguments
// is the parsed argument record; Error is set instead when the accumulated
// argument payload failed to parse (the invocation still produces a result
// event carrying the same failure).
type ToolCallStartData struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	Error     string         `json:"error,omitempty"`
}

// ToolCallResultData carries the outcome of a tool invocation. IsError is
// derived from the reserved error-prefix convention, not provider-supplied.
type ToolCallResultData struct {
	ID      string `json:"id"`
	Result  string `json:"result"`
	IsError bool   `json:"is_error"`
}

// DoneData is the terminal payload of a successful run. It serializes to an
// empty JSON object.
type DoneData struct{}

// ErrorData carries a run-level failure surfaced to the consumer. A run that
// ends with an error event never emits done.
type ErrorData struct {
	Error string `json:"error"`
}

// NewContentDeltaEvent builds a content_delta event.
func NewContentDeltaEvent(delta string) StreamEvent {
	return StreamEvent{Kind: EventContentDelta, Data: ContentDeltaData{Delta: delta}}
}

// NewToolCallStartEvent builds a tool_call_start event.
func NewToolCallStartEvent(id, name string, args map[string]any) StreamEvent {
	if args == nil {
		args = map[string]any{}
	}
	return StreamEvent{Kind: EventToolCallStart, Data: ToolCallStartData{ID: id, Name: name, Arguments: args}}
}

// NewToolCallErrorStartEvent builds a tool_call_start event for an
// invocation whose arguments could not be parsed.
func NewToolCallErrorStartEvent(id, name, errMsg string) StreamEvent {
	return StreamEvent{Kind: EventToolCallStart, Data: ToolCallStartData{ID: id, Name: name, Arguments: map[string]any{}, Error: errMsg}}
}

// NewToolCallResultEvent builds a tool_call_result event.
func NewToolCallResultEvent(id, result string, isError bool) StreamEvent {
	return StreamEvent{Kind: EventToolCallResult, Data: ToolCallResultData{ID: id, Result: result, IsError: isError}}
}

// NewDoneEvent builds the terminal done event.
func NewDoneEvent() StreamEvent {
	return StreamEvent{Kind: EventDone, Data: DoneData{}}
}

// NewErrorEvent builds a run-level failure event.
func NewErrorEvent(err error) StreamEvent {
	return StreamEvent{Kind: EventError, Data: ErrorData{Error: err.Error()}}
}

// MarshalData serializes the event payload deterministically with respect to
// key presence: absent optional fields are omitted rather than emitted as
// null, matching the canonical wire shapes.
func (e StreamEvent) MarshalData() ([]byte, error) {
	return json.Marshal(e.Data)
}
