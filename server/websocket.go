package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yoyo-67/ai-agent-mvp/core"
	"github.com/yoyo-67/ai-agent-mvp/internal/observability"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // same-origin policy is enforced by the deployment, not here
	},
}

// wsFrame is the WebSocket representation of one stream event.
type wsFrame struct {
	Event core.EventKind `json:"event"`
	Data  any            `json:"data"`
}

// handleChatWS serves the chat event stream over a WebSocket. The client
// sends one ChatRequest frame; the server answers with the run's event
// sequence, one JSON frame per event, in generation order.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("server.ws.upgrade_failed", "error", err.Error())
		return
	}
	defer ws.Close()

	var req ChatRequest
	if err := ws.ReadJSON(&req); err != nil {
		_ = ws.WriteJSON(wsFrame{Event: core.EventError, Data: core.ErrorData{Error: "invalid request frame"}})
		return
	}
	if err := req.validate(); err != nil {
		_ = ws.WriteJSON(wsFrame{Event: core.EventError, Data: core.ErrorData{Error: err.Error()}})
		return
	}

	modelID := req.Model
	if modelID == "" {
		modelID = s.defaultModel
	}

	start := time.Now()
	observability.RecordRunStart()

	events, errs := s.loop.Run(r.Context(), toContents(req.Messages), modelID)
	for ev := range events {
		if err := ws.WriteJSON(wsFrame{Event: ev.Kind, Data: ev.Data}); err != nil {
			s.logger.Warn("server.ws.write_failed", "error", err.Error())
			observability.RecordRunEnd("aborted", time.Since(start).Seconds())
			return
		}
		observability.RecordEvent(string(ev.Kind))
	}
	if err := <-errs; err != nil {
		s.logger.Error("server.ws.run_failed", "error", err.Error())
		observability.RecordRunEnd("error", time.Since(start).Seconds())
		_ = ws.WriteJSON(wsFrame{Event: core.EventError, Data: core.ErrorData{Error: err.Error()}})
		return
	}
	observability.RecordRunEnd("ok", time.Since(start).Seconds())
}
