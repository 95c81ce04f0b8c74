package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoyo-67/ai-agent-mvp/core"
	"github.com/yoyo-67/ai-agent-mvp/model"
	"github.com/yoyo-67/ai-agent-mvp/tool"
)

// echoTool returns a canned result regardless of arguments.
func echoTool(name, result string) tool.Tool {
	return tool.NewFunctionTool(
		name, "test tool",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(ctx context.Context, args map[string]any) (string, error) {
			return result, nil
		},
	)
}

// runLoop drives one run to completion and collects everything it emitted.
func runLoop(t *testing.T, l *Loop, history []core.Content) ([]core.StreamEvent, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	events, errCh := l.Run(ctx, history, "test-model")
	var out []core.StreamEvent
	for ev := range events {
		out = append(out, ev)
	}
	return out, <-errCh
}

func userHistory(text string) []core.Content {
	return []core.Content{core.NewTextContent(core.RoleUser, text)}
}

func TestLoop_ToolTurnThenTextTurn(t *testing.T) {
	m := model.NewMockModel("mock", "mock")

	// Turn 1: a list invocation assembled from split fragments.
	m.QueueTurn(
		model.Response{ToolCalls: []model.ToolCallDelta{
			{Index: 0, ID: "call_1", Name: "list", ArgumentsDelta: `{"patt`},
		}},
		model.Response{ToolCalls: []model.ToolCallDelta{
			{Index: 0, ArgumentsDelta: `ern": "*"}`},
		}},
		model.Response{FinishReason: model.FinishToolCalls},
	)
	// Turn 2: plain text completion.
	m.QueueTurn(
		model.Response{TextDelta: "two"},
		model.Response{TextDelta: " files"},
		model.Response{FinishReason: model.FinishStop},
	)

	registry := tool.NewRegistry(echoTool("list", "a.txt\nb.txt"))
	loop := New(m, registry)

	events, err := runLoop(t, loop, userHistory("what files are there?"))
	require.NoError(t, err)
	require.Len(t, events, 5)

	assert.Equal(t, core.EventToolCallStart, events[0].Kind)
	start := events[0].Data.(core.ToolCallStartData)
	assert.Equal(t, "call_1", start.ID)
	assert.Equal(t, "list", start.Name)
	assert.Equal(t, map[string]any{"pattern": "*"}, start.Arguments)

	assert.Equal(t, core.EventToolCallResult, events[1].Kind)
	result := events[1].Data.(core.ToolCallResultData)
	assert.Equal(t, "call_1", result.ID)
	assert.Equal(t, "a.txt\nb.txt", result.Result)
	assert.False(t, result.IsError)

	assert.Equal(t, core.EventContentDelta, events[2].Kind)
	assert.Equal(t, "two", events[2].Data.(core.ContentDeltaData).Delta)
	assert.Equal(t, core.EventContentDelta, events[3].Kind)
	assert.Equal(t, " files", events[3].Data.(core.ContentDeltaData).Delta)

	assert.Equal(t, core.EventDone, events[4].Kind)
}

func TestLoop_SystemPromptSynthesizedOnce(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	m.QueueTurn(
		model.Response{ToolCalls: []model.ToolCallDelta{
			{Index: 0, ID: "c1", Name: "list", ArgumentsDelta: `{}`},
		}},
		model.Response{FinishReason: model.FinishToolCalls},
	)
	m.QueueTurn(model.Response{TextDelta: "ok", FinishReason: model.FinishStop})

	registry := tool.NewRegistry(echoTool("list", "nothing"))
	loop := New(m, registry, func(o *Options) { o.SystemPrompt = "be terse" })

	_, err := runLoop(t, loop, userHistory("hi"))
	require.NoError(t, err)

	reqs := m.Requests()
	require.Len(t, reqs, 2)
	for _, req := range reqs {
		count := 0
		for _, c := range req.Contents {
			if c.Role == core.RoleSystem {
				count++
			}
		}
		assert.Equal(t, 1, count)
		assert.Equal(t, core.RoleSystem, req.Contents[0].Role)
		assert.Equal(t, "be terse", req.Contents[0].Text())
	}
}

func TestLoop_ExistingSystemPromptPreserved(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	m.QueueTurn(model.Response{TextDelta: "hi", FinishReason: model.FinishStop})

	loop := New(m, tool.NewRegistry())
	history := []core.Content{
		core.NewTextContent(core.RoleSystem, "custom"),
		core.NewTextContent(core.RoleUser, "hello"),
	}
	_, err := runLoop(t, loop, history)
	require.NoError(t, err)

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	require.Len(t, reqs[0].Contents, 2)
	assert.Equal(t, "custom", reqs[0].Contents[0].Text())
}

func TestLoop_TranscriptGrowsByToolTurn(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	m.QueueTurn(
		model.Response{ToolCalls: []model.ToolCallDelta{
			{Index: 0, ID: "c1", Name: "read", ArgumentsDelta: `{"path":"a.txt"}`},
			{Index: 1, ID: "c2", Name: "read", ArgumentsDelta: `{"path":"b.txt"}`},
		}},
		model.Response{FinishReason: model.FinishToolCalls},
	)
	m.QueueTurn(model.Response{TextDelta: "done", FinishReason: model.FinishStop})

	registry := tool.NewRegistry(echoTool("read", "contents"))
	loop := New(m, registry)

	_, err := runLoop(t, loop, userHistory("read both"))
	require.NoError(t, err)

	reqs := m.Requests()
	require.Len(t, reqs, 2)

	// Second request: system, user, one assistant message carrying both
	// invocations, then one tool message per invocation.
	second := reqs[1].Contents
	require.Len(t, second, 5)
	assert.Equal(t, core.RoleAssistant, second[2].Role)
	assert.Len(t, second[2].FunctionCalls(), 2)
	assert.Equal(t, core.RoleTool, second[3].Role)
	assert.Equal(t, "c1", second[3].FunctionResponses()[0].ID)
	assert.Equal(t, core.RoleTool, second[4].Role)
	assert.Equal(t, "c2", second[4].FunctionResponses()[0].ID)
}

func TestLoop_ToolErrorFedBackNotFatal(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	m.QueueTurn(
		model.Response{ToolCalls: []model.ToolCallDelta{
			{Index: 0, ID: "c1", Name: "nonexistent", ArgumentsDelta: `{}`},
		}},
		model.Response{FinishReason: model.FinishToolCalls},
	)
	m.QueueTurn(model.Response{TextDelta: "sorry", FinishReason: model.FinishStop})

	loop := New(m, tool.NewRegistry())
	events, err := runLoop(t, loop, userHistory("go"))
	require.NoError(t, err)

	require.Len(t, events, 4)
	result := events[1].Data.(core.ToolCallResultData)
	assert.True(t, result.IsError)
	assert.Equal(t, "Error: unknown tool: nonexistent", result.Result)
	assert.Equal(t, core.EventDone, events[3].Kind)

	// The failure reaches the model as an ordinary tool response.
	reqs := m.Requests()
	require.Len(t, reqs, 2)
	toolMsg := reqs[1].Contents[len(reqs[1].Contents)-1]
	assert.Equal(t, "Error: unknown tool: nonexistent", toolMsg.FunctionResponses()[0].Response)
}

func TestLoop_MalformedArgumentsProduceBothEvents(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	m.QueueTurn(
		model.Response{ToolCalls: []model.ToolCallDelta{
			{Index: 0, ID: "c1", Name: "list", ArgumentsDelta: `{"pattern": `},
		}},
		model.Response{FinishReason: model.FinishToolCalls},
	)
	m.QueueTurn(model.Response{TextDelta: "hm", FinishReason: model.FinishStop})

	registry := tool.NewRegistry(echoTool("list", "should not run"))
	loop := New(m, registry)

	events, err := runLoop(t, loop, userHistory("go"))
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(events), 2)
	start := events[0].Data.(core.ToolCallStartData)
	assert.Equal(t, "c1", start.ID)
	assert.NotEmpty(t, start.Error)

	result := events[1].Data.(core.ToolCallResultData)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Result, "Error: invalid JSON arguments")
}

func TestLoop_MaxToolTurnsExceeded(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	// Script one more tool-call turn than the cap allows.
	for i := 0; i < 4; i++ {
		m.QueueTurn(
			model.Response{ToolCalls: []model.ToolCallDelta{
				{Index: 0, ID: "c1", Name: "list", ArgumentsDelta: `{}`},
			}},
			model.Response{FinishReason: model.FinishToolCalls},
		)
	}

	registry := tool.NewRegistry(echoTool("list", "x"))
	loop := New(m, registry, func(o *Options) { o.MaxToolTurns = 3 })

	events, err := runLoop(t, loop, userHistory("loop forever"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMaxTurnsExceeded))

	// Three full tool turns streamed before the cap fired, no done event.
	for _, ev := range events {
		assert.NotEqual(t, core.EventDone, ev.Kind)
	}
	starts := 0
	for _, ev := range events {
		if ev.Kind == core.EventToolCallStart {
			starts++
		}
	}
	assert.Equal(t, 3, starts)
	assert.Len(t, m.Requests(), 4)
}

func TestLoop_UpstreamFailureSurfacesWithoutDone(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	// No scripted turns: the first Generate call fails.

	loop := New(m, tool.NewRegistry())
	events, err := runLoop(t, loop, userHistory("hi"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "completion stream failed")
	for _, ev := range events {
		assert.NotEqual(t, core.EventDone, ev.Kind)
	}
}

func TestLoop_CancelledContextAbandonsRun(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	m.QueueTurn(model.Response{TextDelta: "never", FinishReason: model.FinishStop})

	loop := New(m, tool.NewRegistry())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events, errCh := loop.Run(ctx, userHistory("hi"), "test-model")
	var got []core.StreamEvent
	for ev := range events {
		got = append(got, ev)
	}
	err := <-errCh
	require.Error(t, err)
	for _, ev := range got {
		assert.NotEqual(t, core.EventDone, ev.Kind)
	}
}

func TestLoop_EventOrderingInvariant(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	m.QueueTurn(
		model.Response{TextDelta: "Let me look. "},
		model.Response{ToolCalls: []model.ToolCallDelta{
			{Index: 0, ID: "c1", Name: "list", ArgumentsDelta: `{}`},
		}},
		model.Response{FinishReason: model.FinishToolCalls},
	)
	m.QueueTurn(model.Response{TextDelta: "Empty.", FinishReason: model.FinishStop})

	registry := tool.NewRegistry(echoTool("list", "No files found matching pattern"))
	loop := New(m, registry)

	events, err := runLoop(t, loop, userHistory("list"))
	require.NoError(t, err)

	kinds := make([]core.EventKind, 0, len(events))
	for _, ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []core.EventKind{
		core.EventContentDelta,
		core.EventToolCallStart,
		core.EventToolCallResult,
		core.EventContentDelta,
		core.EventDone,
	}, kinds)

	// Exactly one terminal event, last.
	assert.Equal(t, core.EventDone, kinds[len(kinds)-1])
}

func TestLoop_ToolDefinitionsSentToModel(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	m.QueueTurn(model.Response{TextDelta: "hi", FinishReason: model.FinishStop})

	registry := tool.NewRegistry(echoTool("read", ""), echoTool("write", ""))
	loop := New(m, registry)

	_, err := runLoop(t, loop, userHistory("hi"))
	require.NoError(t, err)

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	require.Len(t, reqs[0].Tools, 2)
	assert.Equal(t, "read", reqs[0].Tools[0].Function.Name)
	assert.Equal(t, "write", reqs[0].Tools[1].Function.Name)
	assert.True(t, reqs[0].Stream)
}
