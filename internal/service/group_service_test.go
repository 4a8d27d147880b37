package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yati-kasera/chat-app/internal/domain"
	"github.com/yati-kasera/chat-app/internal/service"
)

func newGroupService(groups ...*domain.Group) (*service.GroupService, *fakeGroups) {
	fg := newFakeGroups(groups...)
	return service.NewGroupService(fg, newFakeUsers("alice", "bob", "carol")), fg
}

func TestGroupCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("CreatorIsAdminAndMember", func(t *testing.T) {
		svc, _ := newGroupService()
		group, err := svc.Create(ctx, "devs", "alice", []string{"bob"})
		require.NoError(t, err)
		assert.Equal(t, "alice", group.AdminID)
		assert.ElementsMatch(t, []string{"alice", "bob"}, group.MemberIDs)
	})

	t.Run("DuplicateMembersCollapse", func(t *testing.T) {
		svc, _ := newGroupService()
		group, err := svc.Create(ctx, "devs", "alice", []string{"bob", "bob", "alice"})
		require.NoError(t, err)
		assert.Len(t, group.MemberIDs, 2)
	})

	t.Run("UnknownMemberRejected", func(t *testing.T) {
		svc, _ := newGroupService()
		_, err := svc.Create(ctx, "devs", "alice", []string{"ghost"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("EmptyName", func(t *testing.T) {
		svc, _ := newGroupService()
		_, err := svc.Create(ctx, "", "alice", nil)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestGroupMembership(t *testing.T) {
	ctx := context.Background()

	t.Run("AdminAddsMember", func(t *testing.T) {
		svc, _ := newGroupService(testGroup())
		group, err := svc.AddMember(ctx, "g1", "carol", "alice")
		require.NoError(t, err)
		assert.Contains(t, group.MemberIDs, "carol")
	})

	t.Run("AddExistingMemberIsIdempotent", func(t *testing.T) {
		svc, _ := newGroupService(testGroup())
		group, err := svc.AddMember(ctx, "g1", "bob", "alice")
		require.NoError(t, err)
		assert.Len(t, group.MemberIDs, 2)
	})

	t.Run("NonAdminCannotAdd", func(t *testing.T) {
		svc, _ := newGroupService(testGroup())
		_, err := svc.AddMember(ctx, "g1", "carol", "bob")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("AdminRemovesMember", func(t *testing.T) {
		svc, _ := newGroupService(testGroup())
		group, err := svc.RemoveMember(ctx, "g1", "bob", "alice")
		require.NoError(t, err)
		assert.NotContains(t, group.MemberIDs, "bob")
	})

	t.Run("UnknownGroup", func(t *testing.T) {
		svc, _ := newGroupService()
		_, err := svc.AddMember(ctx, "missing", "bob", "alice")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestGroupRenameAndDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("AdminRenames", func(t *testing.T) {
		svc, _ := newGroupService(testGroup())
		group, err := svc.Rename(ctx, "g1", "platform", "alice")
		require.NoError(t, err)
		assert.Equal(t, "platform", group.Name)
	})

	t.Run("NonAdminCannotRename", func(t *testing.T) {
		svc, _ := newGroupService(testGroup())
		_, err := svc.Rename(ctx, "g1", "platform", "bob")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("AdminDeletes", func(t *testing.T) {
		svc, fg := newGroupService(testGroup())
		require.NoError(t, svc.Delete(ctx, "g1", "alice"))
		g, err := fg.GetByID(ctx, "g1")
		require.NoError(t, err)
		assert.Nil(t, g)
	})

	t.Run("NonAdminCannotDelete", func(t *testing.T) {
		svc, _ := newGroupService(testGroup())
		err := svc.Delete(ctx, "g1", "carol")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}
