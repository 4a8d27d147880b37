package domain

import "context"

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListActive(ctx context.Context, offset, limit int) ([]*User, error)
}

// GroupRepository defines persistence operations for the group directory.
type GroupRepository interface {
	Create(ctx context.Context, g *Group) error
	GetByID(ctx context.Context, id string) (*Group, error)
	ListForUser(ctx context.Context, userID string) ([]*Group, error)
	AddMember(ctx context.Context, groupID, userID string) error
	RemoveMember(ctx context.Context, groupID, userID string) error
	Rename(ctx context.Context, groupID, name string) error
	Delete(ctx context.Context, groupID string) error
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
}

// MessageStore is the contract the routing engine holds against the
// persistent message store: single round-trip create/read/update by id plus
// the two history queries, both ordered by created_at ascending.
type MessageStore interface {
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id string) (*Message, error)
	Update(ctx context.Context, m *Message) error
	ListDirect(ctx context.Context, userA, userB string) ([]*Message, error)
	ListGroup(ctx context.Context, groupID string) ([]*Message, error)
}
