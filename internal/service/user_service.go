package service

import (
	"context"
	"fmt"

	"github.com/yati-kasera/chat-app/internal/domain"
	"github.com/yati-kasera/chat-app/internal/presence"
)

// UserService provides user queries. The online list is answered by the
// presence registry, the in-memory authority, never the store.
type UserService struct {
	users domain.UserRepository
	pres  *presence.Registry
}

func NewUserService(users domain.UserRepository, pres *presence.Registry) *UserService {
	return &UserService{users: users, pres: pres}
}

func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: get user: %v", domain.ErrDependency, err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
	}
	return user, nil
}

func (s *UserService) ListActive(ctx context.Context, offset, limit int) ([]*domain.User, error) {
	users, err := s.users.ListActive(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list users: %v", domain.ErrDependency, err)
	}
	return users, nil
}

// ListOnline resolves the presence registry's snapshot to user records.
// Users that disconnect between the snapshot and the lookup are skipped.
func (s *UserService) ListOnline(ctx context.Context) ([]*domain.User, error) {
	res := []*domain.User{}
	for _, id := range s.pres.ListOnline() {
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%w: get user: %v", domain.ErrDependency, err)
		}
		if user != nil {
			res = append(res, user)
		}
	}
	return res, nil
}
