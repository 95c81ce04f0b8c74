package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/yoyo-67/ai-agent-mvp/core"
	"github.com/yoyo-67/ai-agent-mvp/internal/observability"
)

// ToolCallFunction carries the function details within a wire tool call.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string
}

// ToolCall is an assistant tool call as it appears on the wire.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

// Message is one history entry of an inbound chat request.
type Message struct {
	Role       string     `json:"role"`
	Content    *string    `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // for tool responses
}

// ChatRequest is the body of POST /api/chat (and the opening WebSocket frame).
type ChatRequest struct {
	Messages []Message `json:"messages"`
	Model    string    `json:"model,omitempty"`
}

// validate rejects structurally invalid histories before they reach the loop.
func (r *ChatRequest) validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("messages must not be empty")
	}
	for i, m := range r.Messages {
		switch m.Role {
		case core.RoleSystem, core.RoleUser, core.RoleAssistant:
		case core.RoleTool:
			if m.ToolCallID == "" {
				return fmt.Errorf("messages[%d]: tool message requires tool_call_id", i)
			}
		default:
			return fmt.Errorf("messages[%d]: unknown role %q", i, m.Role)
		}
	}
	return nil
}

// toContents converts wire messages into loop conversation history.
func toContents(messages []Message) []core.Content {
	contents := make([]core.Content, 0, len(messages))
	for _, m := range messages {
		c := core.Content{Role: m.Role}
		if m.Role == core.RoleTool {
			var text string
			if m.Content != nil {
				text = *m.Content
			}
			c.Parts = append(c.Parts, core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{
				ID:       m.ToolCallID,
				Response: text,
			}})
			contents = append(contents, c)
			continue
		}
		if m.Content != nil && *m.Content != "" {
			c.Parts = append(c.Parts, core.TextPart{Text: *m.Content})
		}
		for _, tc := range m.ToolCalls {
			c.Parts = append(c.Parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			}})
		}
		contents = append(contents, c)
	}
	return contents
}

// handleChat runs one orchestration and streams its events as Server-Sent
// Events, one frame per event, flushed immediately to preserve timing
// granularity for live-typing consumers.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if err := req.validate(); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httpError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	modelID := req.Model
	if modelID == "" {
		modelID = s.defaultModel
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	start := time.Now()
	observability.RecordRunStart()

	events, errs := s.loop.Run(r.Context(), toContents(req.Messages), modelID)
	for ev := range events {
		if err := writeSSE(w, ev); err != nil {
			s.logger.Warn("server.chat.write_failed", "error", err.Error())
			observability.RecordRunEnd("aborted", time.Since(start).Seconds())
			return
		}
		flusher.Flush()
		observability.RecordEvent(string(ev.Kind))
	}
	if err := <-errs; err != nil {
		s.logger.Error("server.chat.run_failed", "error", err.Error())
		observability.RecordRunEnd("error", time.Since(start).Seconds())
		if werr := writeSSE(w, core.NewErrorEvent(err)); werr == nil {
			flusher.Flush()
		}
		return
	}
	observability.RecordRunEnd("ok", time.Since(start).Seconds())
}

// writeSSE serializes one event as an SSE frame.
func writeSSE(w http.ResponseWriter, ev core.StreamEvent) error {
	data, err := ev.MarshalData()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
	return err
}
