package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/yoyo-67/ai-agent-mvp/core"
	"github.com/yoyo-67/ai-agent-mvp/internal/observability"
	"github.com/yoyo-67/ai-agent-mvp/logging"
	"github.com/yoyo-67/ai-agent-mvp/model"
	"github.com/yoyo-67/ai-agent-mvp/tool"
)

// ErrMaxTurnsExceeded terminates a run whose consecutive tool-call turns
// exceed the configured ceiling. Distinguishable from upstream failures via
// errors.Is.
var ErrMaxTurnsExceeded = errors.New("maximum tool-call turns exceeded")

// DefaultSystemPrompt is synthesized as the leading system message when the
// provided history does not carry one.
const DefaultSystemPrompt = `You are a helpful AI assistant with access to file operation tools.
You can read, write, edit, list, and search files in the workspace.
Always use the tools when the user asks about files or needs file operations.
Be concise and helpful in your responses.`

// Options configures a Loop instance.
type Options struct {
	// SystemPrompt is prepended when the history has no leading system message.
	SystemPrompt string
	// MaxToolTurns caps consecutive tool-call turns within a single run.
	MaxToolTurns int
	// EventBufferSize sets channel buffering for emitted events.
	EventBufferSize int
	// TurnTimeout bounds each completion request; 0 disables the bound.
	TurnTimeout time.Duration
	// Logger receives structured diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Loop drives one model against the fixed tool set. A Loop holds no
// per-run state; Run may be called concurrently for independent runs, which
// share nothing except the workspace filesystem.
type Loop struct {
	model        model.Model
	registry     *tool.Registry
	systemPrompt string
	maxToolTurns int
	bufferSize   int
	turnTimeout  time.Duration
	logger       logging.Logger
}

// New constructs a Loop with optional overrides.
func New(m model.Model, registry *tool.Registry, optFns ...func(o *Options)) *Loop {
	opts := Options{
		SystemPrompt:    DefaultSystemPrompt,
		MaxToolTurns:    16,
		EventBufferSize: 64,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Loop{
		model:        m,
		registry:     registry,
		systemPrompt: opts.SystemPrompt,
		maxToolTurns: opts.MaxToolTurns,
		bufferSize:   opts.EventBufferSize,
		turnTimeout:  opts.TurnTimeout,
		logger:       opts.Logger,
	}
}

// Run starts one orchestration run over the given history. Events arrive on
// the returned channel in generation order; the channel is closed when the
// run ends. A fatal failure is delivered on the error channel and the run
// ends without a done event. Cancelling ctx abandons the run: no further
// completion requests are made and no done event is flushed.
func (l *Loop) Run(ctx context.Context, history []core.Content, modelID string) (<-chan core.StreamEvent, <-chan error) {
	events := make(chan core.StreamEvent, l.bufferSize)
	errCh := make(chan error, 1)
	go func() {
		defer close(events)
		defer close(errCh)
		if err := l.run(ctx, history, modelID, events); err != nil {
			errCh <- err
		}
	}()
	return events, errCh
}

func (l *Loop) run(ctx context.Context, history []core.Content, modelID string, events chan<- core.StreamEvent) error {
	runID := core.NewID()
	l.logger.Info("agent.run.start", "run", runID, "model", modelID, "history", len(history))

	// System prompt synthesis happens exactly once per run, never on
	// subsequent loop iterations.
	contents := make([]core.Content, 0, len(history)+1)
	if len(history) == 0 || history[0].Role != core.RoleSystem {
		contents = append(contents, core.NewTextContent(core.RoleSystem, l.systemPrompt))
	}
	contents = append(contents, history...)

	tools := l.toolDefinitions()

	emit := func(ev core.StreamEvent) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case events <- ev:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	toolTurns := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		acc := NewAccumulator()
		if err := l.streamTurn(ctx, contents, modelID, tools, acc, emit); err != nil {
			l.logger.Error("agent.run.stream_failed", "run", runID, "error", err.Error())
			return err
		}

		calls := acc.ToolCalls()
		if acc.FinishReason() != model.FinishToolCalls || len(calls) == 0 {
			l.logger.Info("agent.run.complete", "run", runID, "tool_turns", toolTurns)
			return emit(core.NewDoneEvent())
		}

		toolTurns++
		if toolTurns > l.maxToolTurns {
			l.logger.Warn("agent.run.turn_limit", "run", runID, "max_tool_turns", l.maxToolTurns)
			return fmt.Errorf("run %s: %w", runID, ErrMaxTurnsExceeded)
		}

		responses, err := l.dispatch(ctx, calls, emit)
		if err != nil {
			return err
		}

		// One assistant message carrying all invocations, then one
		// tool-result message per invocation, in execution order.
		assistant := core.Content{Role: core.RoleAssistant}
		for _, fc := range calls {
			assistant.Parts = append(assistant.Parts, core.FunctionCallPart{FunctionCall: fc})
		}
		contents = append(contents, assistant)
		for _, fr := range responses {
			contents = append(contents, core.Content{
				Role:  core.RoleTool,
				Parts: []core.Part{core.FunctionResponsePart{FunctionResponse: fr}},
			})
		}
	}
}

// streamTurn issues one streaming completion request and drives the
// accumulator over the fragment sequence, emitting content deltas
// immediately as they arrive.
func (l *Loop) streamTurn(
	ctx context.Context,
	contents []core.Content,
	modelID string,
	tools []model.ToolDefinition,
	acc *Accumulator,
	emit func(core.StreamEvent) error,
) error {
	turnCtx := ctx
	if l.turnTimeout > 0 {
		var cancel context.CancelFunc
		turnCtx, cancel = context.WithTimeout(ctx, l.turnTimeout)
		defer cancel()
	}

	turnStart := time.Now()
	defer func() { observability.RecordTurnLatency(time.Since(turnStart).Seconds()) }()

	respCh, errCh := l.model.Generate(turnCtx, model.Request{
		Model:    modelID,
		Contents: contents,
		Tools:    tools,
		Stream:   true,
	})

	for frag := range respCh {
		if frag.TextDelta != "" {
			if err := emit(core.NewContentDeltaEvent(frag.TextDelta)); err != nil {
				return err
			}
		}
		acc.Add(frag)
	}
	if err := <-errCh; err != nil {
		return fmt.Errorf("completion stream failed: %w", err)
	}
	return nil
}

// dispatch executes the turn's invocations sequentially in discovery order,
// emitting a start and a result event per invocation. Invocations whose
// accumulated arguments fail to parse still produce both events, with the
// parse failure rendered as an error result.
func (l *Loop) dispatch(
	ctx context.Context,
	calls []core.FunctionCall,
	emit func(core.StreamEvent) error,
) ([]core.FunctionResponse, error) {
	responses := make([]core.FunctionResponse, 0, len(calls))
	for _, fc := range calls {
		var result string

		args, parseErr := parseArguments(fc.Arguments)
		if parseErr != nil {
			msg := fmt.Sprintf("invalid JSON arguments: %v", parseErr)
			if err := emit(core.NewToolCallErrorStartEvent(fc.ID, fc.Name, msg)); err != nil {
				return nil, err
			}
			result = tool.ErrorPrefix + msg
		} else {
			if err := emit(core.NewToolCallStartEvent(fc.ID, fc.Name, args)); err != nil {
				return nil, err
			}
			start := time.Now()
			result = l.registry.Execute(ctx, fc.Name, args)
			observability.RecordToolExecution(fc.Name, tool.IsErrorResult(result))
			l.logger.Info(
				"agent.tool.executed",
				"tool", fc.Name,
				"duration_ms", time.Since(start).Milliseconds(),
				"error", tool.IsErrorResult(result),
			)
		}

		if err := emit(core.NewToolCallResultEvent(fc.ID, result, tool.IsErrorResult(result))); err != nil {
			return nil, err
		}
		responses = append(responses, core.FunctionResponse{ID: fc.ID, Name: fc.Name, Response: result})
	}
	return responses, nil
}

// toolDefinitions exposes the registry as provider tool declarations in
// registration order.
func (l *Loop) toolDefinitions() []model.ToolDefinition {
	tools := l.registry.Tools()
	defs := make([]model.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// parseArguments decodes an accumulated argument payload. An empty payload
// is a valid empty record.
func parseArguments(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
