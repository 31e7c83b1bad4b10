package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/wecubehq/wecube-backend/internal/realtime"
	"github.com/wecubehq/wecube-backend/internal/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS is enforced by the HTTP middleware; the websocket
		// endpoint applies the same open policy.
		return true
	},
}

// WSHandler streams conversation-list and message resyncs. Every pushed
// frame carries the full current result set, never a diff; the client
// replaces its state wholesale on each frame.
type WSHandler struct {
	hub *realtime.Hub
	svc service.MessagingService
}

func NewWSHandler(hub *realtime.Hub, svc service.MessagingService) *WSHandler {
	return &WSHandler{hub: hub, svc: svc}
}

type wsClientFrame struct {
	Action         string `json:"action"` // watch | unwatch
	ConversationID uint64 `json:"conversationId"`
}

type wsServerFrame struct {
	Type           string      `json:"type"`
	ConversationID uint64      `json:"conversationId,omitempty"`
	Data           interface{} `json:"data"`
}

func (h *WSHandler) Serve(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	sub := h.hub.Subscribe(uid)
	go h.writeLoop(conn, sub, uid)
	h.readLoop(conn, sub, uid)
	return nil
}

// readLoop handles watch/unwatch frames until the client disconnects, then
// tears the subscription down. Closing the subscription ends the write loop.
func (h *WSHandler) readLoop(conn *websocket.Conn, sub *realtime.Subscription, uid string) {
	defer func() {
		sub.Unsubscribe()
		conn.Close()
	}()
	for {
		var frame wsClientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		switch frame.Action {
		case "watch":
			// Participant check before granting the topic.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_, err := h.svc.GetConversationMessages(ctx, frame.ConversationID, uid)
			cancel()
			if err != nil {
				continue
			}
			sub.WatchConversation(frame.ConversationID)
			h.hub.MessagesChanged(frame.ConversationID)
		case "unwatch":
			sub.UnwatchConversation(frame.ConversationID)
		}
	}
}

func (h *WSHandler) writeLoop(conn *websocket.Conn, sub *realtime.Subscription, uid string) {
	// Initial push so the client starts from the authoritative list.
	h.pushConversations(conn, uid)
	for ev := range sub.Events() {
		switch ev.Kind {
		case realtime.EventConversations:
			h.pushConversations(conn, uid)
		case realtime.EventMessages:
			h.pushMessages(conn, uid, ev.ConversationID)
		}
	}
}

func (h *WSHandler) pushConversations(conn *websocket.Conn, uid string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	views, err := h.svc.GetUserConversations(ctx, uid)
	if err != nil {
		log.Printf("resync conversations for %s: %v", uid, err)
		return
	}
	if err := conn.WriteJSON(wsServerFrame{Type: "conversations", Data: views}); err != nil {
		log.Printf("push conversations to %s: %v", uid, err)
	}
}

func (h *WSHandler) pushMessages(conn *websocket.Conn, uid string, convID uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	msgs, err := h.svc.GetConversationMessages(ctx, convID, uid)
	if err != nil {
		// A rejected conversation disappears; tell the client the
		// thread is gone instead of going silent.
		if errors.Is(err, service.ErrNotFound) {
			_ = conn.WriteJSON(wsServerFrame{Type: "conversation_gone", ConversationID: convID, Data: nil})
		}
		return
	}
	if err := conn.WriteJSON(wsServerFrame{Type: "messages", ConversationID: convID, Data: msgs}); err != nil {
		log.Printf("push messages to %s: %v", uid, err)
	}
}
