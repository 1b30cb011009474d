package service

import (
	"context"
	"errors"

	"github.com/nightlif34/Ninja-Otc/internal/model"
	"github.com/nightlif34/Ninja-Otc/internal/repository"
)

var (
	ErrTargetIsOwner = errors.New("Нельзя изменить статус владельца")
	ErrNegativeCount = errors.New("Число должно быть неотрицательным")
)

// AdminService hosts the owner-gated administrative operations. The role
// checks live here, at the engine boundary — the storage layer stays a
// dumb transactional store.
type AdminService struct {
	store repository.Store
	users *UserService
}

func NewAdminService(store repository.Store, users *UserService) *AdminService {
	return &AdminService{store: store, users: users}
}

// GrantAdmin makes the target an admin. Owner-or-higher actors only;
// owner-tier identities are never stored in the grants relation, so
// granting to one is rejected up front. The unique constraint in the
// store settles concurrent duplicate grants.
func (s *AdminService) GrantAdmin(ctx context.Context, actorID, targetID int64) error {
	if err := s.requireOwner(ctx, actorID); err != nil {
		return err
	}

	targetRole, err := s.users.RoleOf(ctx, targetID)
	if err != nil {
		return err
	}
	if targetRole.AtLeast(model.RoleOwner) {
		return ErrTargetIsOwner
	}

	return s.store.CreateAdminGrant(ctx, &model.AdminGrant{
		UserID:    targetID,
		GrantedBy: actorID,
	})
}

// RevokeAdmin removes the target's grant row and reports whether one was
// actually removed. Owners cannot be revoked: they have no grant row, and
// the precondition check keeps the operation from pretending otherwise.
func (s *AdminService) RevokeAdmin(ctx context.Context, actorID, targetID int64) (bool, error) {
	if err := s.requireOwner(ctx, actorID); err != nil {
		return false, err
	}

	targetRole, err := s.users.RoleOf(ctx, targetID)
	if err != nil {
		return false, err
	}
	if targetRole.AtLeast(model.RoleOwner) {
		return false, ErrTargetIsOwner
	}

	return s.store.DeleteAdminGrant(ctx, targetID)
}

// SetReputation is the administrative override of the successful-deals
// counter: the one place it may move backward or skip.
func (s *AdminService) SetReputation(ctx context.Context, actorID, targetID int64, count int) error {
	if err := s.requireOwner(ctx, actorID); err != nil {
		return err
	}
	if count < 0 {
		return ErrNegativeCount
	}
	return s.store.SetSuccessfulDeals(ctx, targetID, count)
}

// ListDeals returns every deal, newest first. Owner-or-higher only.
func (s *AdminService) ListDeals(ctx context.Context, actorID int64) ([]model.Deal, error) {
	if err := s.requireOwner(ctx, actorID); err != nil {
		return nil, err
	}
	return s.store.ListDeals(ctx)
}

func (s *AdminService) requireOwner(ctx context.Context, actorID int64) error {
	ok, err := s.users.IsOwner(ctx, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotPermitted
	}
	return nil
}
