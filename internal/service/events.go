package service

// Event names on the real-time channel. The routing engine decides which
// rooms receive which outbound event; the connection manager only delivers.
const (
	EventUserOnline  = "user-online"
	EventUserOffline = "user-offline"

	EventPrivateMessage = "private-message"
	EventGroupMessage   = "group-message"

	EventMessageEdited       = "message-edited"
	EventGroupMessageEdited  = "group-message-edited"
	EventMessageDeleted      = "message-deleted"
	EventGroupMessageDeleted = "group-message-deleted"
	EventMessageReaction     = "message-reaction"

	EventMessageDelivered = "message-delivered"
	EventMessageRead      = "message-read"

	EventTyping          = "typing"
	EventUserJoinedGroup = "user-joined-group"
	EventUserLeftGroup   = "user-left-group"
)

// Fanout is the slice of the connection manager the routing engine drives.
// Delivery is best-effort; implementations must never propagate a
// per-connection failure back to the caller.
type Fanout interface {
	EmitToRoom(roomID, event string, payload any)
	EmitToRoomExcept(roomID, exceptConnID, event string, payload any)
	JoinRoom(connID, roomID string)
	LeaveRoom(connID, roomID string)
}

// ReceiptEvent notifies the original sender of a delivery/read transition.
type ReceiptEvent struct {
	MessageID string `json:"message_id"`
}

// TypingEvent is the ephemeral typing indicator.
type TypingEvent struct {
	Sender  string  `json:"sender"`
	GroupID *string `json:"group_id,omitempty"`
}

// GroupMembershipEvent announces a join/leave of a group room.
type GroupMembershipEvent struct {
	UserID  string `json:"user_id"`
	GroupID string `json:"group_id"`
}
