package service_test

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yati-kasera/chat-app/internal/domain"
	"github.com/yati-kasera/chat-app/internal/security"
	"github.com/yati-kasera/chat-app/internal/service"
)

// memStore is an in-memory MessageStore preserving insertion order.
type memStore struct {
	mu    sync.Mutex
	msgs  map[string]*domain.Message
	order []string
}

func newMemStore() *memStore {
	return &memStore{msgs: make(map[string]*domain.Message)}
}

func (s *memStore) Create(ctx context.Context, m *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.msgs[m.ID] = &cp
	s.order = append(s.order, m.ID)
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	cp.Reactions = append([]domain.Reaction(nil), m.Reactions...)
	return &cp, nil
}

func (s *memStore) Update(ctx context.Context, m *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.msgs[m.ID]; !ok {
		return nil
	}
	cp := *m
	cp.Reactions = append([]domain.Reaction(nil), m.Reactions...)
	s.msgs[m.ID] = &cp
	return nil
}

func (s *memStore) ListDirect(ctx context.Context, userA, userB string) ([]*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Message
	for _, id := range s.order {
		m := s.msgs[id]
		if m.RecipientKind != domain.RecipientUser {
			continue
		}
		if (m.SenderID == userA && m.RecipientID == userB) || (m.SenderID == userB && m.RecipientID == userA) {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) ListGroup(ctx context.Context, groupID string) ([]*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Message
	for _, id := range s.order {
		m := s.msgs[id]
		if m.RecipientKind == domain.RecipientGroup && m.RecipientID == groupID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeUsers struct {
	byID map[string]*domain.User
}

func newFakeUsers(ids ...string) *fakeUsers {
	f := &fakeUsers{byID: make(map[string]*domain.User)}
	for _, id := range ids {
		f.byID[id] = &domain.User{ID: id, Username: "name-" + id, IsActive: true}
	}
	return f
}

func (f *fakeUsers) Create(ctx context.Context, u *domain.User) error {
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return f.byID[id], nil
}

func (f *fakeUsers) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	for _, u := range f.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return nil, nil
}

func (f *fakeUsers) ListActive(ctx context.Context, offset, limit int) ([]*domain.User, error) {
	return nil, nil
}

type fakeGroups struct {
	byID map[string]*domain.Group
}

func newFakeGroups(groups ...*domain.Group) *fakeGroups {
	f := &fakeGroups{byID: make(map[string]*domain.Group)}
	for _, g := range groups {
		f.byID[g.ID] = g
	}
	return f
}

func (f *fakeGroups) Create(ctx context.Context, g *domain.Group) error {
	f.byID[g.ID] = g
	return nil
}

func (f *fakeGroups) GetByID(ctx context.Context, id string) (*domain.Group, error) {
	return f.byID[id], nil
}

func (f *fakeGroups) ListForUser(ctx context.Context, userID string) ([]*domain.Group, error) {
	return nil, nil
}

func (f *fakeGroups) AddMember(ctx context.Context, groupID, userID string) error {
	g := f.byID[groupID]
	g.MemberIDs = append(g.MemberIDs, userID)
	return nil
}

func (f *fakeGroups) RemoveMember(ctx context.Context, groupID, userID string) error {
	g := f.byID[groupID]
	kept := g.MemberIDs[:0]
	for _, id := range g.MemberIDs {
		if id != userID {
			kept = append(kept, id)
		}
	}
	g.MemberIDs = kept
	return nil
}

func (f *fakeGroups) Rename(ctx context.Context, groupID, name string) error {
	f.byID[groupID].Name = name
	return nil
}

func (f *fakeGroups) Delete(ctx context.Context, groupID string) error {
	delete(f.byID, groupID)
	return nil
}

func (f *fakeGroups) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	g, ok := f.byID[groupID]
	if !ok {
		return false, nil
	}
	for _, id := range g.MemberIDs {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

// emitRecord captures one fan-out call.
type emitRecord struct {
	Room    string
	Event   string
	Payload any
}

// recorderFanout records emits and room operations instead of delivering.
type recorderFanout struct {
	mu     sync.Mutex
	emits  []emitRecord
	joins  []string
	leaves []string
}

func (r *recorderFanout) EmitToRoom(roomID, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emits = append(r.emits, emitRecord{Room: roomID, Event: event, Payload: payload})
}

func (r *recorderFanout) EmitToRoomExcept(roomID, exceptConnID, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emits = append(r.emits, emitRecord{Room: roomID + "!" + exceptConnID, Event: event, Payload: payload})
}

func (r *recorderFanout) JoinRoom(connID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joins = append(r.joins, connID+"/"+roomID)
}

func (r *recorderFanout) LeaveRoom(connID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaves = append(r.leaves, connID+"/"+roomID)
}

func (r *recorderFanout) records() []emitRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]emitRecord(nil), r.emits...)
}

func (r *recorderFanout) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emits = nil
}

type chatFixture struct {
	svc    *service.ChatService
	store  *memStore
	users  *fakeUsers
	groups *fakeGroups
	fanout *recorderFanout
}

func newChatFixture(t *testing.T, groups ...*domain.Group) *chatFixture {
	t.Helper()
	enc, err := security.NewEncryptor([]byte("unit-test-key"))
	require.NoError(t, err)

	f := &chatFixture{
		store:  newMemStore(),
		users:  newFakeUsers("alice", "bob", "carol"),
		groups: newFakeGroups(groups...),
		fanout: &recorderFanout{},
	}
	f.svc = service.NewChatService(f.store, f.users, f.groups, f.fanout, enc, 5000)
	return f
}

func testGroup() *domain.Group {
	return &domain.Group{ID: "g1", Name: "devs", AdminID: "alice", MemberIDs: []string{"alice", "bob"}}
}

func TestSendDirect(t *testing.T) {
	ctx := context.Background()

	t.Run("PersistsThenNotifiesBothParties", func(t *testing.T) {
		f := newChatFixture(t)

		resp, err := f.svc.SendDirect(ctx, "alice", service.SendDirectInput{
			RecipientID: "bob",
			Content:     "hello bob",
		})
		require.NoError(t, err)
		assert.Equal(t, "alice", resp.SenderID)
		assert.Equal(t, "name-alice", resp.SenderUsername)
		assert.Equal(t, "hello bob", resp.Content)
		assert.Equal(t, domain.StatusSent, resp.Status)

		stored, err := f.store.GetByID(ctx, resp.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.NotEqual(t, "hello bob", stored.Content, "content must be encrypted at rest")

		recs := f.fanout.records()
		require.Len(t, recs, 2)
		rooms := []string{recs[0].Room, recs[1].Room}
		assert.ElementsMatch(t, []string{"alice", "bob"}, rooms)
		for _, r := range recs {
			assert.Equal(t, service.EventPrivateMessage, r.Event)
		}
	})

	t.Run("UnknownRecipient", func(t *testing.T) {
		f := newChatFixture(t)
		_, err := f.svc.SendDirect(ctx, "alice", service.SendDirectInput{RecipientID: "nobody", Content: "hi"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Empty(t, f.fanout.records(), "failed send must not fan out")
	})

	t.Run("EmptyContentWithoutAttachment", func(t *testing.T) {
		f := newChatFixture(t)
		_, err := f.svc.SendDirect(ctx, "alice", service.SendDirectInput{RecipientID: "bob"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("AttachmentOnlyIsValid", func(t *testing.T) {
		f := newChatFixture(t)
		resp, err := f.svc.SendDirect(ctx, "alice", service.SendDirectInput{
			RecipientID: "bob",
			Attachment:  &domain.Attachment{URL: "/api/uploads/1.png", MimeType: "image/png"},
		})
		require.NoError(t, err)
		assert.Empty(t, resp.Content)
		require.NotNil(t, resp.Attachment)
		assert.Equal(t, "image/png", resp.Attachment.MimeType)
	})

	t.Run("ContentOverLimit", func(t *testing.T) {
		f := newChatFixture(t)
		_, err := f.svc.SendDirect(ctx, "alice", service.SendDirectInput{
			RecipientID: "bob",
			Content:     strings.Repeat("x", 5001),
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("ReplyTargetMustExist", func(t *testing.T) {
		f := newChatFixture(t)
		missing := "no-such-id"
		_, err := f.svc.SendDirect(ctx, "alice", service.SendDirectInput{
			RecipientID: "bob",
			Content:     "re",
			ReplyTo:     &missing,
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ReplyToDeletedMessageIsValid", func(t *testing.T) {
		f := newChatFixture(t)
		orig, err := f.svc.SendDirect(ctx, "alice", service.SendDirectInput{RecipientID: "bob", Content: "first"})
		require.NoError(t, err)
		_, err = f.svc.DeleteMessage(ctx, "alice", orig.ID)
		require.NoError(t, err)

		resp, err := f.svc.SendDirect(ctx, "bob", service.SendDirectInput{
			RecipientID: "alice",
			Content:     "re",
			ReplyTo:     &orig.ID,
		})
		require.NoError(t, err)
		require.NotNil(t, resp.ReplyTo)
		assert.True(t, resp.ReplyTo.Deleted)
		assert.Empty(t, resp.ReplyTo.Content)
	})
}

func TestSendGroup(t *testing.T) {
	ctx := context.Background()

	t.Run("FansOutToGroupRoomOnly", func(t *testing.T) {
		f := newChatFixture(t, testGroup())
		resp, err := f.svc.SendGroup(ctx, "alice", service.SendGroupInput{GroupID: "g1", Content: "hi team"})
		require.NoError(t, err)
		assert.Equal(t, domain.RecipientGroup, resp.RecipientKind)
		assert.Empty(t, resp.Status, "group messages carry no delivery status")

		recs := f.fanout.records()
		require.Len(t, recs, 1)
		assert.Equal(t, "g1", recs[0].Room)
		assert.Equal(t, service.EventGroupMessage, recs[0].Event)
	})

	t.Run("NonMemberForbidden", func(t *testing.T) {
		f := newChatFixture(t, testGroup())
		_, err := f.svc.SendGroup(ctx, "carol", service.SendGroupInput{GroupID: "g1", Content: "hi"})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("UnknownGroup", func(t *testing.T) {
		f := newChatFixture(t)
		_, err := f.svc.SendGroup(ctx, "alice", service.SendGroupInput{GroupID: "missing", Content: "hi"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestEditMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("SenderEditsAndBothPartiesNotified", func(t *testing.T) {
		f := newChatFixture(t)
		orig, err := f.svc.SendDirect(ctx, "alice", service.SendDirectInput{RecipientID: "bob", Content: "v1"})
		require.NoError(t, err)
		f.fanout.reset()

		resp, err := f.svc.EditMessage(ctx, "alice", orig.ID, "v2")
		require.NoError(t, err)
		assert.Equal(t, "v2", resp.Content)
		assert.True(t, resp.Edited)

		recs := f.fanout.records()
		require.Len(t, recs, 2)
		assert.ElementsMatch(t, []string{"alice", "bob"}, []string{recs[0].Room, recs[1].Room})
		assert.Equal(t, service.EventMessageEdited, recs[0].Event)
	})

	t.Run("NonSenderForbidden", func(t *testing.T) {
		f := newChatFixture(t)
		orig, err := f.svc.SendDirect(ctx, "alice", service.SendDirectInput{RecipientID: "bob", Content: "v1"})
		require.NoError(t, err)

		_, err = f.svc.EditMessage(ctx, "bob", orig.ID, "hacked")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("DeletedMessageConflict", func(t *testing.T) {
		f := newChatFixture(t)
		orig, err := f.svc.SendDirect(ctx, "alice", service.SendDirectInput{RecipientID: "bob", Content: "v1"})
		require.NoError(t, err)
		_, err = f.svc.DeleteMessage(ctx, "alice", orig.ID)
		require.NoError(t, err)

		_, err = f.svc.EditMessage(ctx, "alice", orig.ID, "v2")
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("GroupSenderMustStillBeMember", func(t *testing.T) {
		f := newChatFixture(t, testGroup())
		orig, err := f.svc.SendGroup(ctx, "bob", service.SendGroupInput{GroupID: "g1", Content: "v1"})
		require.NoError(t, err)

		require.NoError(t, f.groups.RemoveMember(ctx, "g1", "bob"))
		_, err = f.svc.EditMessage(ctx, "bob", orig.ID, "v2")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("UnknownMessage", func(t *testing.T) {
		f := newChatFixture(t)
		_, err := f.svc.EditMessage(ctx, "alice", "nope", "v2")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestDeleteMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("ClearsContentKeepsAttachment", func(t *testing.T) {
		f := newChatFixture(t)
		orig, err := f.svc.SendDirect(ctx, "alice", service.SendDirectInput{
			RecipientID: "bob",
			Content:     "secret",
			Attachment:  &domain.Attachment{URL: "/api/uploads/2.pdf", MimeType: "application/pdf"},
		})
		require.NoError(t, err)
		f.fanout.reset()

		resp, err := f.svc.DeleteMessage(ctx, "alice", orig.ID)
		require.NoError(t, err)
		assert.True(t, resp.Deleted)
		assert.Empty(t, resp.Content)
		assert.NotNil(t, resp.DeletedAt)
		assert.NotNil(t, resp.Attachment)

		stored, err := f.store.GetByID(ctx, orig.ID)
		require.NoError(t, err)
		assert.Empty(t, stored.Content)

		recs := f.fanout.records()
		require.Len(t, recs, 2)
		assert.Equal(t, service.EventMessageDeleted, recs[0].Event)
	})

	t.Run("SecondDeleteConflict", func(t *testing.T) {
		f := newChatFixture(t)
		orig, err := f.svc.SendDirect(ctx, "alice", service.SendDirectInput{RecipientID: "bob", Content: "x"})
		require.NoError(t, err)
		_, err = f.svc.DeleteMessage(ctx, "alice", orig.ID)
		require.NoError(t, err)

		_, err = f.svc.DeleteMessage(ctx, "alice", orig.ID)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("NonSenderForbidden", func(t *testing.T) {
		f := newChatFixture(t)
		orig, err := f.svc.SendDirect(ctx, "alice", service.SendDirectInput{RecipientID: "bob", Content: "x"})
		require.NoError(t, err)

		_, err = f.svc.DeleteMessage(ctx, "bob", orig.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestToggleReaction(t *testing.T) {
	ctx := context.Background()

	t.Run("AddThenRemove", func(t *testing.T) {
		f := newChatFixture(t)
		orig, err := f.svc.SendDirect(ctx, "alice", service.SendDirectInput{RecipientID: "bob", Content: "x"})
		require.NoError(t, err)

		resp, err := f.svc.ToggleReaction(ctx, "bob", orig.ID, "👍")
		require.NoError(t, err)
		require.Len(t, resp.Reactions, 1)
		assert.Equal(t, "bob", resp.Reactions[0].UserID)

		resp, err = f.svc.ToggleReaction(ctx, "bob", orig.ID, "👍")
		require.NoError(t, err)
		assert.Empty(t, resp.Reactions)
	})

	t.Run("DistinctEmojisCoexist", func(t *testing.T) {
		f := newChatFixture(t)
		orig, err := f.svc.SendDirect(ctx, "alice", service.SendDirectInput{RecipientID: "bob", Content: "x"})
		require.NoError(t, err)

		_, err = f.svc.ToggleReaction(ctx, "bob", orig.ID, "👍")
		require.NoError(t, err)
		resp, err := f.svc.ToggleReaction(ctx, "bob", orig.ID, "🎉")
		require.NoError(t, err)
		assert.Len(t, resp.Reactions, 2)
	})

	t.Run("DirectReactionGoesToSenderRoom", func(t *testing.T) {
		f := newChatFixture(t)
		orig, err := f.svc.SendDirect(ctx, "alice", service.SendDirectInput{RecipientID: "bob", Content: "x"})
		require.NoError(t, err)
		f.fanout.reset()

		_, err = f.svc.ToggleReaction(ctx, "bob", orig.ID, "👍")
		require.NoError(t, err)

		recs := f.fanout.records()
		require.Len(t, recs, 1)
		assert.Equal(t, "alice", recs[0].Room)
		assert.Equal(t, service.EventMessageReaction, recs[0].Event)
	})

	t.Run("GroupReactionGoesToGroupRoom", func(t *testing.T) {
		f := newChatFixture(t, testGroup())
		orig, err := f.svc.SendGroup(ctx, "alice", service.SendGroupInput{GroupID: "g1", Content: "x"})
		require.NoError(t, err)
		f.fanout.reset()

		_, err = f.svc.ToggleReaction(ctx, "bob", orig.ID, "👍")
		require.NoError(t, err)

		recs := f.fanout.records()
		require.Len(t, recs, 1)
		assert.Equal(t, "g1", recs[0].Room)
	})

	t.Run("EmptyEmoji", func(t *testing.T) {
		f := newChatFixture(t)
		orig, err := f.svc.SendDirect(ctx, "alice", service.SendDirectInput{RecipientID: "bob", Content: "x"})
		require.NoError(t, err)
		_, err = f.svc.ToggleReaction(ctx, "bob", orig.ID, "")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestReceipts(t *testing.T) {
	ctx := context.Background()

	t.Run("DeliveredThenReadNotifiesSender", func(t *testing.T) {
		f := newChatFixture(t)
		orig, err := f.svc.SendDirect(ctx, "alice", service.SendDirectInput{RecipientID: "bob", Content: "x"})
		require.NoError(t, err)
		f.fanout.reset()

		require.NoError(t, f.svc.MarkDelivered(ctx, orig.ID))
		require.NoError(t, f.svc.MarkRead(ctx, orig.ID))

		recs := f.fanout.records()
		require.Len(t, recs, 2)
		assert.Equal(t, "alice", recs[0].Room)
		assert.Equal(t, service.EventMessageDelivered, recs[0].Event)
		assert.Equal(t, service.EventMessageRead, recs[1].Event)

		stored, err := f.store.GetByID(ctx, orig.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusRead, stored.Status)
	})

	t.Run("ReadSkipsDelivered", func(t *testing.T) {
		f := newChatFixture(t)
		orig, err := f.svc.SendDirect(ctx, "alice", service.SendDirectInput{RecipientID: "bob", Content: "x"})
		require.NoError(t, err)

		require.NoError(t, f.svc.MarkRead(ctx, orig.ID))
		stored, err := f.store.GetByID(ctx, orig.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusRead, stored.Status)
	})

	t.Run("RegressionIsSilentNoOp", func(t *testing.T) {
		f := newChatFixture(t)
		orig, err := f.svc.SendDirect(ctx, "alice", service.SendDirectInput{RecipientID: "bob", Content: "x"})
		require.NoError(t, err)
		require.NoError(t, f.svc.MarkRead(ctx, orig.ID))
		f.fanout.reset()

		require.NoError(t, f.svc.MarkDelivered(ctx, orig.ID))
		assert.Empty(t, f.fanout.records(), "regressing a receipt must not emit")

		stored, err := f.store.GetByID(ctx, orig.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusRead, stored.Status)
	})

	t.Run("GroupMessagesIgnoreReceipts", func(t *testing.T) {
		f := newChatFixture(t, testGroup())
		orig, err := f.svc.SendGroup(ctx, "alice", service.SendGroupInput{GroupID: "g1", Content: "x"})
		require.NoError(t, err)
		f.fanout.reset()

		require.NoError(t, f.svc.MarkDelivered(ctx, orig.ID))
		require.NoError(t, f.svc.MarkRead(ctx, orig.ID))
		assert.Empty(t, f.fanout.records())
	})

	t.Run("StatusNeverRegresses", func(t *testing.T) {
		f := newChatFixture(t)
		orig, err := f.svc.SendDirect(ctx, "alice", service.SendDirectInput{RecipientID: "bob", Content: "x"})
		require.NoError(t, err)

		rng := rand.New(rand.NewSource(42))
		prevRank := -1
		for i := 0; i < 100; i++ {
			if rng.Intn(2) == 0 {
				require.NoError(t, f.svc.MarkDelivered(ctx, orig.ID))
			} else {
				require.NoError(t, f.svc.MarkRead(ctx, orig.ID))
			}
			stored, err := f.store.GetByID(ctx, orig.ID)
			require.NoError(t, err)
			rank := stored.Status.Rank()
			assert.GreaterOrEqual(t, rank, prevRank)
			prevRank = rank
		}
	})
}

func TestTyping(t *testing.T) {
	ctx := context.Background()

	t.Run("DirectGoesToRecipientRoom", func(t *testing.T) {
		f := newChatFixture(t)
		err := f.svc.Typing(ctx, "alice", "conn-1", service.TypingInput{RecipientID: "bob"})
		require.NoError(t, err)

		recs := f.fanout.records()
		require.Len(t, recs, 1)
		assert.Equal(t, "bob", recs[0].Room)
		assert.Equal(t, service.EventTyping, recs[0].Event)
	})

	t.Run("GroupExcludesSenderConnection", func(t *testing.T) {
		f := newChatFixture(t, testGroup())
		err := f.svc.Typing(ctx, "alice", "conn-1", service.TypingInput{GroupID: "g1", IsGroup: true})
		require.NoError(t, err)

		recs := f.fanout.records()
		require.Len(t, recs, 1)
		assert.Equal(t, "g1!conn-1", recs[0].Room)
	})

	t.Run("GroupTypingRequiresMembership", func(t *testing.T) {
		f := newChatFixture(t, testGroup())
		err := f.svc.Typing(ctx, "carol", "conn-2", service.TypingInput{GroupID: "g1", IsGroup: true})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestGroupRooms(t *testing.T) {
	ctx := context.Background()

	t.Run("JoinRequiresMembership", func(t *testing.T) {
		f := newChatFixture(t, testGroup())
		err := f.svc.JoinGroupRoom(ctx, "carol", "conn-1", "g1")
		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.Empty(t, f.fanout.joins)
	})

	t.Run("JoinAnnouncesToRoom", func(t *testing.T) {
		f := newChatFixture(t, testGroup())
		require.NoError(t, f.svc.JoinGroupRoom(ctx, "alice", "conn-1", "g1"))
		assert.Equal(t, []string{"conn-1/g1"}, f.fanout.joins)

		recs := f.fanout.records()
		require.Len(t, recs, 1)
		assert.Equal(t, service.EventUserJoinedGroup, recs[0].Event)
	})

	t.Run("LeaveAlwaysSucceeds", func(t *testing.T) {
		f := newChatFixture(t, testGroup())
		require.NoError(t, f.svc.LeaveGroupRoom(ctx, "alice", "conn-1", "g1"))
		assert.Equal(t, []string{"conn-1/g1"}, f.fanout.leaves)
	})
}

func TestHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("DirectHistoryInOrder", func(t *testing.T) {
		f := newChatFixture(t)
		_, err := f.svc.SendDirect(ctx, "alice", service.SendDirectInput{RecipientID: "bob", Content: "one"})
		require.NoError(t, err)
		_, err = f.svc.SendDirect(ctx, "bob", service.SendDirectInput{RecipientID: "alice", Content: "two"})
		require.NoError(t, err)
		_, err = f.svc.SendDirect(ctx, "alice", service.SendDirectInput{RecipientID: "carol", Content: "other thread"})
		require.NoError(t, err)

		msgs, err := f.svc.GetHistory(ctx, "alice", "bob")
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "one", msgs[0].Content)
		assert.Equal(t, "two", msgs[1].Content)
	})

	t.Run("GroupHistoryRequiresMembership", func(t *testing.T) {
		f := newChatFixture(t, testGroup())
		_, err := f.svc.SendGroup(ctx, "alice", service.SendGroupInput{GroupID: "g1", Content: "hi"})
		require.NoError(t, err)

		_, err = f.svc.GetGroupHistory(ctx, "carol", "g1")
		assert.ErrorIs(t, err, domain.ErrForbidden)

		msgs, err := f.svc.GetGroupHistory(ctx, "bob", "g1")
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "hi", msgs[0].Content)
	})

	t.Run("DeletedMessageHidesContent", func(t *testing.T) {
		f := newChatFixture(t)
		orig, err := f.svc.SendDirect(ctx, "alice", service.SendDirectInput{RecipientID: "bob", Content: "gone"})
		require.NoError(t, err)
		_, err = f.svc.DeleteMessage(ctx, "alice", orig.ID)
		require.NoError(t, err)

		msgs, err := f.svc.GetHistory(ctx, "alice", "bob")
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.True(t, msgs[0].Deleted)
		assert.Empty(t, msgs[0].Content)
	})
}
