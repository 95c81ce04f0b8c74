// Package tool implements the function calling subsystem: a small fixed set
// of file operation tools with schema validated arguments and a registry
// that executes them by name.
//
// Failures never propagate to the caller as Go errors. Every failure mode is
// rendered as a result string carrying the reserved ErrorPrefix so the model
// can observe the failure and react to it within the loop, and so consumers
// can classify a result without semantic parsing.
package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/yoyo-67/ai-agent-mvp/internal/util"
)

// ErrorPrefix marks a tool result as failed. The prefix is a fixed
// convention shared with every event consumer.
const ErrorPrefix = "Error: "

// Tool defines a callable capability exposed to the model.
//
// Tool implementations should provide clear, descriptive names, define a
// proper JSON schema for parameters, handle errors gracefully and be safe
// for concurrent use.
type Tool interface {
	// Name returns the unique identifier for this tool (snake_case).
	Name() string

	// Description returns a human-readable description provided to the
	// model to help it decide when to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool with an already-validated argument record.
	Call(ctx context.Context, args map[string]any) (string, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`    // Name of the tool that failed
	Message string `json:"message"` // Error message
	Code    string `json:"code"`    // Error code for categorization
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}

// IsErrorResult reports whether a tool result string represents a failure
// according to the reserved prefix convention.
func IsErrorResult(result string) bool {
	return strings.HasPrefix(result, ErrorPrefix)
}

// Registry holds the fixed tool set and dispatches invocations by name.
// Registration order is preserved so tool definitions reach the model in a
// stable order.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry creates a Registry containing the given tools.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds a tool, replacing any previous tool of the same name.
func (r *Registry) Register(t Tool) {
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Tools returns the registered tools in registration order.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Execute resolves a tool name and argument record to a result string. It
// never returns an error: unknown tools, validation failures, execution
// failures and panics are all rendered as ErrorPrefix results.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (result string) {
	defer func() {
		if rec := recover(); rec != nil {
			result = fmt.Sprintf("%sinternal failure in %s: %v", ErrorPrefix, name, rec)
		}
	}()

	t, ok := r.tools[name]
	if !ok {
		return fmt.Sprintf("%sunknown tool: %s", ErrorPrefix, name)
	}
	if args == nil {
		args = map[string]any{}
	}

	out, err := t.Call(ctx, args)
	if err != nil {
		return ErrorPrefix + errorMessage(err)
	}
	return out
}

// errorMessage unwraps ToolError values to their bare message so results
// stay readable for the model.
func errorMessage(err error) string {
	if te, ok := err.(*ToolError); ok {
		return te.Message
	}
	return err.Error()
}
