package service

import (
	"context"
	"errors"

	"github.com/nightlif34/Ninja-Otc/internal/config"
	"github.com/nightlif34/Ninja-Otc/internal/model"
	"github.com/nightlif34/Ninja-Otc/internal/repository"
)

var ErrUnknownDestination = errors.New("Неизвестный тип реквизитов")

// UserService owns user identities, their payment destinations and the role
// hierarchy. Roles are computed top-down on every lookup: the configured
// super-owner beats the configured owner set, which beats an admin grant
// row, and everyone else is a plain user.
type UserService struct {
	store  repository.Store
	owners config.OwnersConfig
}

func NewUserService(store repository.Store, owners config.OwnersConfig) *UserService {
	return &UserService{store: store, owners: owners}
}

// UpsertUser registers the identity if new and refreshes the display name
// if not. Idempotent, never fails on repeats.
func (s *UserService) UpsertUser(ctx context.Context, id int64, username *string) error {
	return s.store.UpsertUser(ctx, id, username)
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.store.GetUser(ctx, id)
}

// SetPaymentDestination overwrites one stored destination, leaving the
// other untouched. Callers upsert the user first; a write against a
// missing row is an accepted no-op.
func (s *UserService) SetPaymentDestination(ctx context.Context, id int64, kind model.PaymentKind, value string) error {
	if kind != model.PaymentKindTon && kind != model.PaymentKindCard {
		return ErrUnknownDestination
	}
	return s.store.SetPaymentDestination(ctx, id, kind, value)
}

// RoleOf computes the caller's tier. Read-only, no side effects.
func (s *UserService) RoleOf(ctx context.Context, id int64) (model.Role, error) {
	if s.owners.IsSuperOwner(id) {
		return model.RoleSuperOwner, nil
	}
	if s.owners.IsOwner(id) {
		return model.RoleOwner, nil
	}

	isAdmin, err := s.store.IsAdmin(ctx, id)
	if err != nil {
		return model.RoleUser, err
	}
	if isAdmin {
		return model.RoleAdmin, nil
	}
	return model.RoleUser, nil
}

// IsOwner reports owner-or-higher standing.
func (s *UserService) IsOwner(ctx context.Context, id int64) (bool, error) {
	role, err := s.RoleOf(ctx, id)
	if err != nil {
		return false, err
	}
	return role.AtLeast(model.RoleOwner), nil
}

// IsAdminOrHigher reports admin-or-higher standing.
func (s *UserService) IsAdminOrHigher(ctx context.Context, id int64) (bool, error) {
	role, err := s.RoleOf(ctx, id)
	if err != nil {
		return false, err
	}
	return role.AtLeast(model.RoleAdmin), nil
}

// SuccessfulDeals returns the reputation counter, zero for unknown users.
func (s *UserService) SuccessfulDeals(ctx context.Context, id int64) int {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return 0
	}
	return user.SuccessfulDeals
}
