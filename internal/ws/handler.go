package ws

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yati-kasera/chat-app/internal/domain"
	"github.com/yati-kasera/chat-app/internal/security"
	"github.com/yati-kasera/chat-app/internal/service"
)

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return false
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

func extractToken(r *http.Request) string {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		if token := strings.TrimSpace(authHeader[len("Bearer "):]); token != "" {
			return token
		}
	}

	// Browsers cannot set headers on websocket requests; the token rides in
	// the subprotocol list instead: Sec-WebSocket-Protocol: bearer, <token>.
	protocolHeader := r.Header.Get("Sec-WebSocket-Protocol")
	if protocolHeader != "" {
		parts := strings.Split(protocolHeader, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) >= 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}

	return ""
}

// MakeHandler returns the HTTP handler for the /ws endpoint. It
// authenticates the bearer token, registers the connection with the hub,
// and dispatches validated client events to the routing engine:
//
//	private-message     -> SendDirect
//	group-message       -> SendGroup
//	join-group          -> JoinGroupRoom
//	leave-group         -> LeaveGroupRoom
//	typing              -> Typing
//	message-delivered   -> MarkDelivered
//	message-read        -> MarkRead
func MakeHandler(
	hub *Hub,
	tokens *security.TokenService,
	users domain.UserRepository,
	chatSvc *service.ChatService,
	allowedOrigins []string,
) http.HandlerFunc {
	checkOrigin := makeCheckOrigin(allowedOrigins)
	upgrader := websocket.Upgrader{
		CheckOrigin: checkOrigin,
		Subprotocols: []string{
			"bearer",
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		tokenStr := extractToken(r)
		if tokenStr == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		identity, err := tokens.Parse(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		user, err := users.GetByID(r.Context(), identity.UserID)
		if err != nil || user == nil || !user.IsActive {
			http.Error(w, "user not found or inactive", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		client := NewClient(conn, user.ID, user.Username)
		go client.writePump()
		hub.OnConnect(client)
		defer hub.OnDisconnect(client)

		conn.SetReadLimit(maxMessageSize)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})

		ctx := r.Context()
		for {
			var env Envelope
			if err := conn.ReadJSON(&env); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("ws: read from %s: %v", user.ID, err)
				}
				return
			}
			conn.SetReadDeadline(time.Now().Add(pongWait))

			decoded, err := DecodeClientEvent(env)
			if err != nil {
				sendError(client, env.Event, domain.ErrValidation, err.Error())
				continue
			}
			if err := dispatch(ctx, chatSvc, client, env.Event, decoded); err != nil {
				log.Printf("ws: %s from %s: %v", env.Event, user.ID, err)
				sendError(client, env.Event, err, "request failed")
			}
		}
	}
}

func dispatch(ctx context.Context, chatSvc *service.ChatService, c *Client, event string, decoded payload) error {
	switch p := decoded.(type) {
	case *PrivateMessagePayload:
		_, err := chatSvc.SendDirect(ctx, c.UserID, service.SendDirectInput{
			RecipientID: p.Recipient,
			Content:     p.Content,
			ReplyTo:     p.ReplyTo,
		})
		return err
	case *GroupMessagePayload:
		_, err := chatSvc.SendGroup(ctx, c.UserID, service.SendGroupInput{
			GroupID: p.GroupID,
			Content: p.Content,
			ReplyTo: p.ReplyTo,
		})
		return err
	case *GroupRoomPayload:
		if event == "leave-group" {
			return chatSvc.LeaveGroupRoom(ctx, c.UserID, c.ID, p.GroupID)
		}
		return chatSvc.JoinGroupRoom(ctx, c.UserID, c.ID, p.GroupID)
	case *TypingPayload:
		return chatSvc.Typing(ctx, c.UserID, c.ID, service.TypingInput{
			RecipientID: p.Recipient,
			GroupID:     p.GroupID,
			IsGroup:     p.IsGroup,
		})
	case *ReceiptPayload:
		if event == service.EventMessageRead {
			return chatSvc.MarkRead(ctx, p.MessageID)
		}
		return chatSvc.MarkDelivered(ctx, p.MessageID)
	}
	return fmt.Errorf("unhandled payload %T", decoded)
}

type errorEvent struct {
	Event   string `json:"event,omitempty"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// sendError reports a failed request back on the same socket. Persistence
// already succeeded or failed by this point, so this never affects siblings.
func sendError(c *Client, event string, err error, msg string) {
	kind := "internal"
	switch {
	case errors.Is(err, domain.ErrValidation):
		kind = "validation_error"
	case errors.Is(err, domain.ErrForbidden):
		kind = "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		kind = "not_found"
	case errors.Is(err, domain.ErrConflict):
		kind = "conflict"
	case errors.Is(err, domain.ErrDependency):
		kind = "dependency_error"
	}
	if data, ok := encodeEvent("error", errorEvent{Event: event, Kind: kind, Message: msg}); ok {
		c.trySend(data)
	}
}
