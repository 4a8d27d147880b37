package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yati-kasera/chat-app/internal/domain"
	"github.com/yati-kasera/chat-app/internal/security"
)

// ChatService is the message routing engine. Every mutation validates,
// persists through the message store, and only then fans out the resulting
// event ("write then notify"): a failed store write surfaces to the caller
// and suppresses fan-out entirely. The service holds no state of its own.
type ChatService struct {
	store  domain.MessageStore
	users  domain.UserRepository
	groups domain.GroupRepository
	fanout Fanout
	enc    *security.Encryptor

	maxContentRunes int
}

func NewChatService(
	store domain.MessageStore,
	users domain.UserRepository,
	groups domain.GroupRepository,
	fanout Fanout,
	enc *security.Encryptor,
	maxContentRunes int,
) *ChatService {
	return &ChatService{
		store:           store,
		users:           users,
		groups:          groups,
		fanout:          fanout,
		enc:             enc,
		maxContentRunes: maxContentRunes,
	}
}

type SendDirectInput struct {
	RecipientID string
	Content     string
	Attachment  *domain.Attachment
	ReplyTo     *string
}

type SendGroupInput struct {
	GroupID    string
	Content    string
	Attachment *domain.Attachment
	ReplyTo    *string
}

type TypingInput struct {
	RecipientID string
	GroupID     string
	IsGroup     bool
}

// MessageResponse is the denormalized message document pushed to clients
// and returned by the request/response surface. Content is decrypted and
// sender names are resolved here, on the read side only.
type MessageResponse struct {
	ID             string               `json:"id"`
	SenderID       string               `json:"sender_id"`
	SenderUsername string               `json:"sender_username"`
	RecipientKind  domain.RecipientKind `json:"recipient_kind"`
	RecipientID    string               `json:"recipient_id"`
	Content        string               `json:"content"`
	Attachment     *domain.Attachment   `json:"attachment,omitempty"`
	ReplyTo        *ReplyPreview        `json:"reply_to,omitempty"`
	Status         domain.MessageStatus `json:"status,omitempty"`
	Edited         bool                 `json:"edited"`
	Deleted        bool                 `json:"deleted"`
	DeletedAt      *time.Time           `json:"deleted_at,omitempty"`
	Reactions      []domain.Reaction    `json:"reactions"`
	CreatedAt      time.Time            `json:"created_at"`
}

// ReplyPreview is the denormalized view of a replied-to message. A deleted
// target still resolves, with empty content and the deleted flag set.
type ReplyPreview struct {
	ID             string `json:"id"`
	SenderID       string `json:"sender_id"`
	SenderUsername string `json:"sender_username"`
	Content        string `json:"content"`
	Deleted        bool   `json:"deleted"`
}

// SendDirect creates a direct message and fans it out to both the sender's
// and the recipient's user rooms. The sender echo is intentional: it keeps
// the sender's other connections consistent.
func (s *ChatService) SendDirect(ctx context.Context, senderID string, in SendDirectInput) (*MessageResponse, error) {
	if in.RecipientID == "" {
		return nil, fmt.Errorf("%w: recipient is required", domain.ErrValidation)
	}
	if err := s.validateContent(in.Content, in.Attachment); err != nil {
		return nil, err
	}
	recipient, err := s.users.GetByID(ctx, in.RecipientID)
	if err != nil {
		return nil, fmt.Errorf("%w: get recipient: %v", domain.ErrDependency, err)
	}
	if recipient == nil {
		return nil, fmt.Errorf("%w: recipient %s", domain.ErrNotFound, in.RecipientID)
	}
	if err := s.checkReplyTarget(ctx, in.ReplyTo); err != nil {
		return nil, err
	}

	msg, err := s.newMessage(senderID, domain.RecipientUser, in.RecipientID, in.Content, in.Attachment, in.ReplyTo)
	if err != nil {
		return nil, err
	}
	msg.Status = domain.StatusSent

	if err := s.store.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("%w: create message: %v", domain.ErrDependency, err)
	}

	resp, err := s.toResponse(ctx, msg, nil)
	if err != nil {
		return nil, err
	}
	s.fanout.EmitToRoom(senderID, EventPrivateMessage, resp)
	s.fanout.EmitToRoom(in.RecipientID, EventPrivateMessage, resp)
	return resp, nil
}

// SendGroup creates a group message and fans it out to the group room.
// Only current members may send.
func (s *ChatService) SendGroup(ctx context.Context, senderID string, in SendGroupInput) (*MessageResponse, error) {
	if in.GroupID == "" {
		return nil, fmt.Errorf("%w: group is required", domain.ErrValidation)
	}
	if err := s.validateContent(in.Content, in.Attachment); err != nil {
		return nil, err
	}
	if err := s.requireMembership(ctx, in.GroupID, senderID); err != nil {
		return nil, err
	}
	if err := s.checkReplyTarget(ctx, in.ReplyTo); err != nil {
		return nil, err
	}

	msg, err := s.newMessage(senderID, domain.RecipientGroup, in.GroupID, in.Content, in.Attachment, in.ReplyTo)
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("%w: create message: %v", domain.ErrDependency, err)
	}

	resp, err := s.toResponse(ctx, msg, nil)
	if err != nil {
		return nil, err
	}
	s.fanout.EmitToRoom(in.GroupID, EventGroupMessage, resp)
	return resp, nil
}

// EditMessage replaces the content of a message. Only the sender may edit,
// group senders must still be members at edit time, and a deleted message
// can never be edited again.
func (s *ChatService) EditMessage(ctx context.Context, actorID, messageID, newContent string) (*MessageResponse, error) {
	msg, err := s.getMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.Deleted {
		return nil, fmt.Errorf("%w: message is deleted", domain.ErrConflict)
	}
	if err := s.authorizeMutation(ctx, msg, actorID); err != nil {
		return nil, err
	}
	if err := s.validateContent(newContent, msg.Attachment); err != nil {
		return nil, err
	}

	encrypted, err := s.enc.Encrypt(newContent)
	if err != nil {
		return nil, fmt.Errorf("encrypt content: %w", err)
	}
	msg.Content = encrypted
	msg.Edited = true
	if err := s.store.Update(ctx, msg); err != nil {
		return nil, fmt.Errorf("%w: update message: %v", domain.ErrDependency, err)
	}

	resp, err := s.toResponse(ctx, msg, nil)
	if err != nil {
		return nil, err
	}
	s.emitToMessageParties(msg, EventMessageEdited, EventGroupMessageEdited, resp)
	return resp, nil
}

// DeleteMessage marks a message deleted and clears its content. Deletion is
// terminal. The attachment reference is retained for audit purposes.
func (s *ChatService) DeleteMessage(ctx context.Context, actorID, messageID string) (*MessageResponse, error) {
	msg, err := s.getMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.Deleted {
		return nil, fmt.Errorf("%w: message is already deleted", domain.ErrConflict)
	}
	if err := s.authorizeMutation(ctx, msg, actorID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	msg.Deleted = true
	msg.Content = ""
	msg.DeletedAt = &now
	if err := s.store.Update(ctx, msg); err != nil {
		return nil, fmt.Errorf("%w: update message: %v", domain.ErrDependency, err)
	}

	resp, err := s.toResponse(ctx, msg, nil)
	if err != nil {
		return nil, err
	}
	s.emitToMessageParties(msg, EventMessageDeleted, EventGroupMessageDeleted, resp)
	return resp, nil
}

// ToggleReaction adds the (actor, emoji) pair to the message, or removes it
// when already present. Any user may react, including the sender.
func (s *ChatService) ToggleReaction(ctx context.Context, actorID, messageID, emoji string) (*MessageResponse, error) {
	if emoji == "" {
		return nil, fmt.Errorf("%w: emoji is required", domain.ErrValidation)
	}
	msg, err := s.getMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}

	if msg.HasReaction(actorID, emoji) {
		kept := msg.Reactions[:0]
		for _, r := range msg.Reactions {
			if r.UserID == actorID && r.Emoji == emoji {
				continue
			}
			kept = append(kept, r)
		}
		msg.Reactions = kept
	} else {
		msg.Reactions = append(msg.Reactions, domain.Reaction{UserID: actorID, Emoji: emoji})
	}

	if err := s.store.Update(ctx, msg); err != nil {
		return nil, fmt.Errorf("%w: update message: %v", domain.ErrDependency, err)
	}

	resp, err := s.toResponse(ctx, msg, nil)
	if err != nil {
		return nil, err
	}
	// The message's room: the sender's user room for direct messages, the
	// group room for group messages.
	switch msg.RecipientKind {
	case domain.RecipientGroup:
		s.fanout.EmitToRoom(msg.RecipientID, EventMessageReaction, resp)
	default:
		s.fanout.EmitToRoom(msg.SenderID, EventMessageReaction, resp)
	}
	return resp, nil
}

// MarkDelivered advances a direct message to delivered and notifies the
// original sender. Re-applying a state the message already passed is a
// silent no-op. Group messages ignore receipts entirely.
func (s *ChatService) MarkDelivered(ctx context.Context, messageID string) error {
	return s.advanceStatus(ctx, messageID, domain.StatusDelivered, EventMessageDelivered)
}

// MarkRead advances a direct message to read, skipping through delivered if
// needed: status is a single forward-only scalar, not independent flags.
func (s *ChatService) MarkRead(ctx context.Context, messageID string) error {
	return s.advanceStatus(ctx, messageID, domain.StatusRead, EventMessageRead)
}

func (s *ChatService) advanceStatus(ctx context.Context, messageID string, target domain.MessageStatus, event string) error {
	msg, err := s.getMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.RecipientKind != domain.RecipientUser {
		return nil
	}
	if target.Rank() <= msg.Status.Rank() {
		return nil
	}
	msg.Status = target
	if err := s.store.Update(ctx, msg); err != nil {
		return fmt.Errorf("%w: update message: %v", domain.ErrDependency, err)
	}
	// The receipt goes to the original sender only.
	s.fanout.EmitToRoom(msg.SenderID, event, ReceiptEvent{MessageID: msg.ID})
	return nil
}

// Typing fans out an ephemeral typing indicator. Nothing is persisted. For
// groups the sender's own connection is excluded to avoid self-notification.
func (s *ChatService) Typing(ctx context.Context, senderID, connID string, in TypingInput) error {
	if in.IsGroup {
		if in.GroupID == "" {
			return fmt.Errorf("%w: group is required", domain.ErrValidation)
		}
		if err := s.requireMembership(ctx, in.GroupID, senderID); err != nil {
			return err
		}
		groupID := in.GroupID
		s.fanout.EmitToRoomExcept(in.GroupID, connID, EventTyping, TypingEvent{Sender: senderID, GroupID: &groupID})
		return nil
	}
	if in.RecipientID == "" {
		return fmt.Errorf("%w: recipient is required", domain.ErrValidation)
	}
	s.fanout.EmitToRoom(in.RecipientID, EventTyping, TypingEvent{Sender: senderID})
	return nil
}

// JoinGroupRoom subscribes a connection to a group room after checking the
// user currently belongs to the group, then announces the join to the room.
func (s *ChatService) JoinGroupRoom(ctx context.Context, userID, connID, groupID string) error {
	if err := s.requireMembership(ctx, groupID, userID); err != nil {
		return err
	}
	s.fanout.JoinRoom(connID, groupID)
	s.fanout.EmitToRoom(groupID, EventUserJoinedGroup, GroupMembershipEvent{UserID: userID, GroupID: groupID})
	return nil
}

// LeaveGroupRoom unsubscribes a connection from a group room and announces
// the leave to the remaining members.
func (s *ChatService) LeaveGroupRoom(ctx context.Context, userID, connID, groupID string) error {
	s.fanout.LeaveRoom(connID, groupID)
	s.fanout.EmitToRoom(groupID, EventUserLeftGroup, GroupMembershipEvent{UserID: userID, GroupID: groupID})
	return nil
}

// GetHistory returns all direct messages between two users in creation
// order, denormalized with sender names and reply previews.
func (s *ChatService) GetHistory(ctx context.Context, userA, userB string) ([]*MessageResponse, error) {
	msgs, err := s.store.ListDirect(ctx, userA, userB)
	if err != nil {
		return nil, fmt.Errorf("%w: list direct messages: %v", domain.ErrDependency, err)
	}
	return s.toResponses(ctx, msgs)
}

// GetGroupHistory returns all messages of a group in creation order. The
// requesting user must be a member of the group.
func (s *ChatService) GetGroupHistory(ctx context.Context, userID, groupID string) ([]*MessageResponse, error) {
	if err := s.requireMembership(ctx, groupID, userID); err != nil {
		return nil, err
	}
	msgs, err := s.store.ListGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("%w: list group messages: %v", domain.ErrDependency, err)
	}
	return s.toResponses(ctx, msgs)
}

func (s *ChatService) newMessage(senderID string, kind domain.RecipientKind, recipientID, content string, att *domain.Attachment, replyTo *string) (*domain.Message, error) {
	encrypted, err := s.enc.Encrypt(content)
	if err != nil {
		return nil, fmt.Errorf("encrypt content: %w", err)
	}
	return &domain.Message{
		ID:            uuid.NewString(),
		SenderID:      senderID,
		RecipientKind: kind,
		RecipientID:   recipientID,
		Content:       encrypted,
		Attachment:    att,
		ReplyTo:       replyTo,
		Reactions:     []domain.Reaction{},
		CreatedAt:     time.Now().UTC(),
	}, nil
}

func (s *ChatService) validateContent(content string, att *domain.Attachment) error {
	if content == "" && att == nil {
		return fmt.Errorf("%w: message needs content or an attachment", domain.ErrValidation)
	}
	if s.maxContentRunes > 0 && len([]rune(content)) > s.maxContentRunes {
		return fmt.Errorf("%w: content exceeds %d characters", domain.ErrValidation, s.maxContentRunes)
	}
	return nil
}

func (s *ChatService) checkReplyTarget(ctx context.Context, replyTo *string) error {
	if replyTo == nil || *replyTo == "" {
		return nil
	}
	// A deleted target is still a valid reply target; only a missing one is
	// rejected.
	target, err := s.store.GetByID(ctx, *replyTo)
	if err != nil {
		return fmt.Errorf("%w: get reply target: %v", domain.ErrDependency, err)
	}
	if target == nil {
		return fmt.Errorf("%w: reply target %s", domain.ErrNotFound, *replyTo)
	}
	return nil
}

func (s *ChatService) getMessage(ctx context.Context, messageID string) (*domain.Message, error) {
	msg, err := s.store.GetByID(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("%w: get message: %v", domain.ErrDependency, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: message %s", domain.ErrNotFound, messageID)
	}
	return msg, nil
}

// authorizeMutation enforces the edit/delete rules: sender only, and for
// group messages the sender must still be a member at action time.
func (s *ChatService) authorizeMutation(ctx context.Context, msg *domain.Message, actorID string) error {
	if msg.SenderID != actorID {
		return fmt.Errorf("%w: only the sender may modify a message", domain.ErrForbidden)
	}
	if msg.RecipientKind == domain.RecipientGroup {
		return s.requireMembership(ctx, msg.RecipientID, actorID)
	}
	return nil
}

func (s *ChatService) requireMembership(ctx context.Context, groupID, userID string) error {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return fmt.Errorf("%w: get group: %v", domain.ErrDependency, err)
	}
	if group == nil {
		return fmt.Errorf("%w: group %s", domain.ErrNotFound, groupID)
	}
	ok, err := s.groups.IsMember(ctx, groupID, userID)
	if err != nil {
		return fmt.Errorf("%w: check membership: %v", domain.ErrDependency, err)
	}
	if !ok {
		return fmt.Errorf("%w: not a member of group %s", domain.ErrForbidden, groupID)
	}
	return nil
}

func (s *ChatService) emitToMessageParties(msg *domain.Message, directEvent, groupEvent string, payload any) {
	if msg.RecipientKind == domain.RecipientGroup {
		s.fanout.EmitToRoom(msg.RecipientID, groupEvent, payload)
		return
	}
	s.fanout.EmitToRoom(msg.SenderID, directEvent, payload)
	s.fanout.EmitToRoom(msg.RecipientID, directEvent, payload)
}

// toResponse decrypts and denormalizes one message. usernames caches
// resolved display names across a batch.
func (s *ChatService) toResponse(ctx context.Context, m *domain.Message, usernames map[string]string) (*MessageResponse, error) {
	resp := &MessageResponse{
		ID:            m.ID,
		SenderID:      m.SenderID,
		RecipientKind: m.RecipientKind,
		RecipientID:   m.RecipientID,
		Attachment:    m.Attachment,
		Status:        m.Status,
		Edited:        m.Edited,
		Deleted:       m.Deleted,
		DeletedAt:     m.DeletedAt,
		Reactions:     m.Reactions,
		CreatedAt:     m.CreatedAt,
	}
	if resp.Reactions == nil {
		resp.Reactions = []domain.Reaction{}
	}
	if !m.Deleted && m.Content != "" {
		plain, err := s.enc.Decrypt(m.Content)
		if err != nil {
			return nil, fmt.Errorf("decrypt content: %w", err)
		}
		resp.Content = plain
	}
	resp.SenderUsername = s.resolveUsername(ctx, m.SenderID, usernames)

	if m.ReplyTo != nil && *m.ReplyTo != "" {
		target, err := s.store.GetByID(ctx, *m.ReplyTo)
		if err != nil {
			return nil, fmt.Errorf("%w: get reply target: %v", domain.ErrDependency, err)
		}
		if target != nil {
			preview := &ReplyPreview{
				ID:             target.ID,
				SenderID:       target.SenderID,
				SenderUsername: s.resolveUsername(ctx, target.SenderID, usernames),
				Deleted:        target.Deleted,
			}
			if !target.Deleted && target.Content != "" {
				if plain, err := s.enc.Decrypt(target.Content); err == nil {
					preview.Content = plain
				}
			}
			resp.ReplyTo = preview
		}
	}
	return resp, nil
}

func (s *ChatService) toResponses(ctx context.Context, msgs []*domain.Message) ([]*MessageResponse, error) {
	usernames := make(map[string]string)
	res := make([]*MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		resp, err := s.toResponse(ctx, m, usernames)
		if err != nil {
			return nil, err
		}
		res = append(res, resp)
	}
	return res, nil
}

func (s *ChatService) resolveUsername(ctx context.Context, userID string, cache map[string]string) string {
	if cache != nil {
		if name, ok := cache[userID]; ok {
			return name
		}
	}
	var name string
	if u, err := s.users.GetByID(ctx, userID); err == nil && u != nil {
		name = u.Username
	}
	if cache != nil {
		cache[userID] = name
	}
	return name
}
