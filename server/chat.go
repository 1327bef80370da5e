package server

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/tailored-agentic-units/spicy/core/protocol"
	"github.com/tailored-agentic-units/spicy/observability"
)

// chat upgrades to a WebSocket and serves chat requests sequentially. Each
// text frame carries one protocol.ChatRequest; the reply is the request's
// event sequence, one JSON frame per event, ending with a done or error frame.
// Closing the socket cancels the request in flight.
func (s *Server) chat(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.emit(c.Request.Context(), EventChatFailure, observability.LevelWarning, map[string]any{
			"error": err.Error(),
		})
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.emit(ctx, EventChatOpen, observability.LevelInfo, map[string]any{"remote": conn.RemoteAddr().String()})

	requests := make(chan protocol.ChatRequest)
	go s.readRequests(ctx, cancel, conn, requests)

	for {
		select {
		case <-ctx.Done():
			s.emit(ctx, EventChatClose, observability.LevelInfo, nil)
			return
		case req := <-requests:
			if err := s.serveRequest(ctx, conn, req); err != nil {
				s.emit(ctx, EventChatFailure, observability.LevelWarning, map[string]any{
					"error": err.Error(),
				})
				return
			}
		}
	}
}

func (s *Server) readRequests(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out chan<- protocol.ChatRequest) {
	defer cancel()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.emit(ctx, EventChatFailure, observability.LevelWarning, map[string]any{
					"error": err.Error(),
				})
			}
			return
		}

		var req protocol.ChatRequest
		if err := json.Unmarshal(data, &req); err != nil {
			s.emit(ctx, EventChatFailure, observability.LevelWarning, map[string]any{
				"error": "invalid chat request: " + err.Error(),
			})
			continue
		}

		select {
		case out <- req:
		case <-ctx.Done():
			return
		}
	}
}

// serveRequest streams one request's events to conn. Only a write failure is
// returned; agent failures are reported to the client as error frames.
func (s *Server) serveRequest(ctx context.Context, conn *websocket.Conn, req protocol.ChatRequest) error {
	events, err := s.streamer.StreamChat(ctx, req)
	if err != nil {
		return conn.WriteJSON(protocol.Failure(err.Error()))
	}

	for ev := range events {
		if err := conn.WriteJSON(ev); err != nil {
			return err
		}
		if ev.Type.IsTerminal() {
			return nil
		}
	}

	if ctx.Err() != nil {
		return nil
	}
	return conn.WriteJSON(protocol.Failure("stream ended without a result"))
}
