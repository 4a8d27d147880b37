package domain

import "time"

// User represents an application user.
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          *string   `json:"email,omitempty"`
	HashedPassword string    `json:"-"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// Group represents a named group chat. The creator becomes the admin and
// only the admin may change membership or delete the group.
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	AdminID   string    `json:"admin_id"`
	MemberIDs []string  `json:"member_ids"`
	CreatedAt time.Time `json:"created_at"`
}

// RecipientKind says whether a message targets a single user or a group.
// It never changes after creation.
type RecipientKind string

const (
	RecipientUser  RecipientKind = "user"
	RecipientGroup RecipientKind = "group"
)

// MessageStatus is the delivery state of a direct message. It only moves
// forward: sent -> delivered -> read. Group messages keep the zero state.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

// Rank orders statuses for forward-only transitions. Unknown values rank
// below StatusSent so they can never overwrite a real state.
func (s MessageStatus) Rank() int {
	switch s {
	case StatusSent:
		return 0
	case StatusDelivered:
		return 1
	case StatusRead:
		return 2
	}
	return -1
}

// Attachment is an already-resolved file reference carried by a message.
type Attachment struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
}

// Reaction is a single (user, emoji) pair on a message. The pair is unique
// per message; re-adding an existing pair removes it (toggle semantics).
type Reaction struct {
	UserID string `json:"user_id"`
	Emoji  string `json:"emoji"`
}

// Message is the central persisted entity. Content is stored encrypted at
// rest; the routing engine decrypts on the read side.
type Message struct {
	ID            string        `json:"id"`
	SenderID      string        `json:"sender_id"`
	RecipientKind RecipientKind `json:"recipient_kind"`
	RecipientID   string        `json:"recipient_id"`
	Content       string        `json:"content"`
	Attachment    *Attachment   `json:"attachment,omitempty"`
	ReplyTo       *string       `json:"reply_to,omitempty"`
	Status        MessageStatus `json:"status"`
	Edited        bool          `json:"edited"`
	Deleted       bool          `json:"deleted"`
	DeletedAt     *time.Time    `json:"deleted_at,omitempty"`
	Reactions     []Reaction    `json:"reactions"`
	CreatedAt     time.Time     `json:"created_at"`
}

// HasReaction reports whether the (userID, emoji) pair is present.
func (m *Message) HasReaction(userID, emoji string) bool {
	for _, r := range m.Reactions {
		if r.UserID == userID && r.Emoji == emoji {
			return true
		}
	}
	return false
}
