package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
	"github.com/m-mizutani/goerr/v2"
	"github.com/xhad/copilot/internal/models"
	"github.com/xhad/copilot/pkg/copilot"
	"github.com/xhad/copilot/pkg/logging"
)

const (
	MessageQuery    = "query"
	MessageStatus   = "status"
	MessageResponse = "response"
	MessageError    = "error"
)

// Message is one websocket frame in either direction.
type Message struct {
	Type      string      `json:"type"`
	Content   string      `json:"content,omitempty"`
	SessionID string      `json:"session_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
}

// checkOrigin accepts same-host requests, requests without an Origin header
// and the configured CORS origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.From(ctx)
	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("websocket read ended", "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.send(ctx, conn, Message{Type: MessageError, Content: "invalid message: " + err.Error()})
			continue
		}

		// frames are answered in order; gorilla connections allow one writer
		s.handleMessage(ctx, conn, msg)
	}
}

func (s *Server) handleMessage(ctx context.Context, conn *websocket.Conn, msg Message) {
	if msg.Type != MessageQuery {
		s.send(ctx, conn, Message{Type: MessageError, Content: "unsupported message type: " + msg.Type})
		return
	}

	s.send(ctx, conn, Message{Type: MessageStatus, Content: "processing", SessionID: msg.SessionID})

	resp, err := s.config.Copilot.Query(ctx, models.QueryRequest{
		Query:     msg.Content,
		Channel:   "websocket",
		SessionID: msg.SessionID,
	})
	if err != nil {
		content := "failed to answer query"
		if errors.Is(err, copilot.ErrInvalidRequest) {
			content = err.Error()
		}
		logging.From(ctx).Warn("websocket query failed", "error", err)
		s.send(ctx, conn, Message{Type: MessageError, Content: content, SessionID: msg.SessionID})
		return
	}

	s.send(ctx, conn, Message{Type: MessageResponse, SessionID: resp.SessionID, Data: resp})
}

func (s *Server) send(ctx context.Context, conn *websocket.Conn, msg Message) {
	if err := conn.WriteJSON(msg); err != nil {
		logging.From(ctx).Warn("failed to send websocket message",
			"type", msg.Type, "error", goerr.Wrap(err, "websocket write"))
	}
}
