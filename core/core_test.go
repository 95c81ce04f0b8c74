package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContent_Helpers(t *testing.T) {
	c := Content{
		Role: RoleAssistant,
		Parts: []Part{
			TextPart{Text: "Let me "},
			FunctionCallPart{FunctionCall: FunctionCall{ID: "c1", Name: "read", Arguments: `{"path":"a"}`}},
			TextPart{Text: "check"},
			FunctionCallPart{FunctionCall: FunctionCall{ID: "c2", Name: "list"}},
		},
	}

	assert.Equal(t, "Let me check", c.Text())

	calls := c.FunctionCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "c1", calls[0].ID)
	assert.Equal(t, "c2", calls[1].ID)

	assert.Empty(t, c.FunctionResponses())

	resp := Content{Role: RoleTool, Parts: []Part{
		FunctionResponsePart{FunctionResponse: FunctionResponse{ID: "c1", Name: "read", Response: "data"}},
	}}
	resps := resp.FunctionResponses()
	require.Len(t, resps, 1)
	assert.Equal(t, "data", resps[0].Response)
}

func TestNewTextContent(t *testing.T) {
	c := NewTextContent(RoleUser, "hello")
	assert.Equal(t, RoleUser, c.Role)
	assert.Equal(t, "hello", c.Text())
}

func TestNewID_Unique(t *testing.T) {
	a, b := NewID(), NewID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestStreamEvent_WirePayloads(t *testing.T) {
	cases := []struct {
		name string
		ev   StreamEvent
		kind EventKind
		json string
	}{
		{
			name: "content delta",
			ev:   NewContentDeltaEvent("hel"),
			kind: EventContentDelta,
			json: `{"delta":"hel"}`,
		},
		{
			name: "tool call start",
			ev:   NewToolCallStartEvent("c1", "read", map[string]any{"path": "a.txt"}),
			kind: EventToolCallStart,
			json: `{"id":"c1","name":"read","arguments":{"path":"a.txt"}}`,
		},
		{
			name: "tool call start with nil args",
			ev:   NewToolCallStartEvent("c1", "list", nil),
			kind: EventToolCallStart,
			json: `{"id":"c1","name":"list","arguments":{}}`,
		},
		{
			name: "tool call start parse failure",
			ev:   NewToolCallErrorStartEvent("c1", "read", "invalid JSON arguments: unexpected end"),
			kind: EventToolCallStart,
			json: `{"id":"c1","name":"read","arguments":{},"error":"invalid JSON arguments: unexpected end"}`,
		},
		{
			name: "tool call result",
			ev:   NewToolCallResultEvent("c1", "Error: file not found: x", true),
			kind: EventToolCallResult,
			json: `{"id":"c1","result":"Error: file not found: x","is_error":true}`,
		},
		{
			name: "done",
			ev:   NewDoneEvent(),
			kind: EventDone,
			json: `{}`,
		},
		{
			name: "error",
			ev:   NewErrorEvent(errors.New("upstream failed")),
			kind: EventError,
			json: `{"error":"upstream failed"}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, tc.ev.Kind)
			data, err := tc.ev.MarshalData()
			require.NoError(t, err)
			assert.JSONEq(t, tc.json, string(data))
		})
	}
}
