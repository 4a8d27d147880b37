package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yati-kasera/chat-app/internal/domain"
)

// GroupService is the group directory: it owns membership and admin
// rights. The creator is the admin; only the admin may change membership,
// rename, or delete the group.
type GroupService struct {
	groups domain.GroupRepository
	users  domain.UserRepository
}

func NewGroupService(groups domain.GroupRepository, users domain.UserRepository) *GroupService {
	return &GroupService{groups: groups, users: users}
}

func (s *GroupService) Create(ctx context.Context, name, creatorID string, memberIDs []string) (*domain.Group, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: group name is required", domain.ErrValidation)
	}

	members := []string{creatorID}
	seen := map[string]struct{}{creatorID: {}}
	for _, id := range memberIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%w: get member: %v", domain.ErrDependency, err)
		}
		if user == nil {
			return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
		}
		seen[id] = struct{}{}
		members = append(members, id)
	}

	group := &domain.Group{
		ID:        uuid.NewString(),
		Name:      name,
		AdminID:   creatorID,
		MemberIDs: members,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, fmt.Errorf("%w: create group: %v", domain.ErrDependency, err)
	}
	return group, nil
}

func (s *GroupService) GetByID(ctx context.Context, groupID string) (*domain.Group, error) {
	return s.getGroup(ctx, groupID)
}

func (s *GroupService) ListForUser(ctx context.Context, userID string) ([]*domain.Group, error) {
	groups, err := s.groups.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list groups: %v", domain.ErrDependency, err)
	}
	return groups, nil
}

func (s *GroupService) AddMember(ctx context.Context, groupID, userID, requesterID string) (*domain.Group, error) {
	group, err := s.requireAdmin(ctx, groupID, requesterID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: get user: %v", domain.ErrDependency, err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
	}
	for _, id := range group.MemberIDs {
		if id == userID {
			return group, nil
		}
	}
	if err := s.groups.AddMember(ctx, groupID, userID); err != nil {
		return nil, fmt.Errorf("%w: add member: %v", domain.ErrDependency, err)
	}
	return s.getGroup(ctx, groupID)
}

func (s *GroupService) RemoveMember(ctx context.Context, groupID, userID, requesterID string) (*domain.Group, error) {
	if _, err := s.requireAdmin(ctx, groupID, requesterID); err != nil {
		return nil, err
	}
	if err := s.groups.RemoveMember(ctx, groupID, userID); err != nil {
		return nil, fmt.Errorf("%w: remove member: %v", domain.ErrDependency, err)
	}
	return s.getGroup(ctx, groupID)
}

func (s *GroupService) Rename(ctx context.Context, groupID, name, requesterID string) (*domain.Group, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: group name is required", domain.ErrValidation)
	}
	if _, err := s.requireAdmin(ctx, groupID, requesterID); err != nil {
		return nil, err
	}
	if err := s.groups.Rename(ctx, groupID, name); err != nil {
		return nil, fmt.Errorf("%w: rename group: %v", domain.ErrDependency, err)
	}
	return s.getGroup(ctx, groupID)
}

func (s *GroupService) Delete(ctx context.Context, groupID, requesterID string) error {
	if _, err := s.requireAdmin(ctx, groupID, requesterID); err != nil {
		return err
	}
	if err := s.groups.Delete(ctx, groupID); err != nil {
		return fmt.Errorf("%w: delete group: %v", domain.ErrDependency, err)
	}
	return nil
}

func (s *GroupService) getGroup(ctx context.Context, groupID string) (*domain.Group, error) {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("%w: get group: %v", domain.ErrDependency, err)
	}
	if group == nil {
		return nil, fmt.Errorf("%w: group %s", domain.ErrNotFound, groupID)
	}
	return group, nil
}

func (s *GroupService) requireAdmin(ctx context.Context, groupID, requesterID string) (*domain.Group, error) {
	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.AdminID != requesterID {
		return nil, fmt.Errorf("%w: only the group admin may do this", domain.ErrForbidden)
	}
	return group, nil
}
