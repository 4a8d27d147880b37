package ws

import (
	"encoding/json"
	"fmt"

	"github.com/yati-kasera/chat-app/internal/service"
)

// Envelope frames every event on the real-time channel, both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client-to-server payloads form a closed set of typed variants, validated
// at the boundary before anything reaches the routing engine. The sender is
// never taken from the payload; it is always the authenticated connection.

type PrivateMessagePayload struct {
	Recipient string  `json:"recipient"`
	Content   string  `json:"content"`
	ReplyTo   *string `json:"reply_to,omitempty"`
}

func (p *PrivateMessagePayload) Validate() error {
	if p.Recipient == "" {
		return fmt.Errorf("recipient is required")
	}
	return nil
}

type GroupMessagePayload struct {
	GroupID string  `json:"group_id"`
	Content string  `json:"content"`
	ReplyTo *string `json:"reply_to,omitempty"`
}

func (p *GroupMessagePayload) Validate() error {
	if p.GroupID == "" {
		return fmt.Errorf("group_id is required")
	}
	return nil
}

type GroupRoomPayload struct {
	GroupID string `json:"group_id"`
}

func (p *GroupRoomPayload) Validate() error {
	if p.GroupID == "" {
		return fmt.Errorf("group_id is required")
	}
	return nil
}

type TypingPayload struct {
	Recipient string `json:"recipient,omitempty"`
	GroupID   string `json:"group_id,omitempty"`
	IsGroup   bool   `json:"is_group,omitempty"`
}

func (p *TypingPayload) Validate() error {
	if p.IsGroup {
		if p.GroupID == "" {
			return fmt.Errorf("group_id is required for group typing")
		}
		return nil
	}
	if p.Recipient == "" {
		return fmt.Errorf("recipient is required")
	}
	return nil
}

type ReceiptPayload struct {
	MessageID string `json:"message_id"`
	SenderID  string `json:"sender_id,omitempty"`
}

func (p *ReceiptPayload) Validate() error {
	if p.MessageID == "" {
		return fmt.Errorf("message_id is required")
	}
	return nil
}

type payload interface {
	Validate() error
}

// DecodeClientEvent maps an inbound envelope to its typed, validated
// payload. Unknown event names are rejected.
func DecodeClientEvent(env Envelope) (payload, error) {
	var p payload
	switch env.Event {
	case service.EventPrivateMessage:
		p = &PrivateMessagePayload{}
	case service.EventGroupMessage:
		p = &GroupMessagePayload{}
	case "join-group", "leave-group":
		p = &GroupRoomPayload{}
	case service.EventTyping:
		p = &TypingPayload{}
	case service.EventMessageDelivered, service.EventMessageRead:
		p = &ReceiptPayload{}
	default:
		return nil, fmt.Errorf("unknown event %q", env.Event)
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Event, err)
		}
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", env.Event, err)
	}
	return p, nil
}
