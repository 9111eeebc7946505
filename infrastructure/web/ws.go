package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"parley/domain/event"
	"parley/sink"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Same-origin policy is enforced upstream; the token already gates access.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// inboundFrame is what a connected client sends: a message for one of its
// conversations.
type inboundFrame struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

// outboundFrame is pushed to the client whenever a message lands in a
// conversation it belongs to. Clients needing the full conversation state
// re-fetch the detail endpoint.
type outboundFrame struct {
	Type           string    `json:"type"`
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id"`
	Author         string    `json:"author"`
	AuthorName     string    `json:"author_name"`
	Content        string    `json:"content"`
	Lang           string    `json:"lang,omitempty"`
	At             time.Time `json:"at"`
}

// handleConnect upgrades the connection and registers a session sink in
// the registry. The identity was resolved once by the auth middleware and
// is carried through the whole session; it is never re-derived.
//
// Cleanup is ensured via deferred unregistration to prevent leaks in the
// registry when a client drops.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	sessionID := uuid.NewString()
	sessionSink := sink.NewSessionSink(s.sinkBuffer)
	s.chatService.Connect(sessionID, claims.UserID, sessionSink)
	s.log.Info("Session connected", "session", sessionID, "user", claims.Username)

	ctx, cancel := context.WithCancel(r.Context())
	defer func() {
		cancel()
		s.chatService.Disconnect(sessionID)
		_ = conn.Close()
		s.log.Info("Session disconnected", "session", sessionID, "user", claims.Username)
	}()

	go s.readLoop(ctx, cancel, conn, claims.UserID)
	s.writeLoop(ctx, conn, sessionSink)
}

// readLoop consumes inbound frames and turns each into a SendMessage call
// attributed to the session's identity. Any read error ends the session.
func (s *Server) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, userID string) {
	defer cancel()
	conn.SetReadLimit(maxInboundSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("WebSocket read error", "error", err)
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.log.Debug("Invalid inbound frame", "error", err)
			continue
		}

		if _, err := s.chatService.SendMessage(ctx, frame.ConversationID, userID, frame.Content); err != nil {
			// Report the rejection only to this session; the message never
			// reached the log so there is nothing to broadcast.
			s.log.Debug("Inbound message rejected", "user", userID, "error", err)
		}
	}
}

// writeLoop pushes broadcast events to the client and keeps the
// connection alive with pings.
func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, sessionSink *sink.SessionSink) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case evt := <-sessionSink.Events:
			sanitized, ok := evt.(event.SanitizedMessage)
			if !ok {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := conn.WriteJSON(toOutboundFrame(sanitized)); err != nil {
				s.log.Debug("WebSocket write failed", "error", err)
				return
			}
		}
	}
}

func toOutboundFrame(e event.SanitizedMessage) outboundFrame {
	return outboundFrame{
		Type:           "conversation_updated",
		ConversationID: e.Conversation,
		MessageID:      e.ID.String(),
		Author:         e.Author,
		AuthorName:     e.AuthorName,
		Content:        e.Content,
		Lang:           e.Lang,
		At:             e.At,
	}
}
