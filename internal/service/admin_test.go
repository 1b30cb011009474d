package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightlif34/Ninja-Otc/internal/model"
	"github.com/nightlif34/Ninja-Otc/internal/repository"
)

func TestGrantAdmin(t *testing.T) {
	ctx := context.Background()
	_, users, _, admins, _ := newTestServices(t)

	require.NoError(t, users.UpsertUser(ctx, strangerID, strPtr("stranger")))
	require.NoError(t, admins.GrantAdmin(ctx, ownerID, strangerID))

	role, err := users.RoleOf(ctx, strangerID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, role)

	// Repeated grant hits the uniqueness rule.
	err = admins.GrantAdmin(ctx, superOwnerID, strangerID)
	assert.ErrorIs(t, err, repository.ErrAlreadyAdmin)
}

func TestGrantAdmin_NotPermitted(t *testing.T) {
	ctx := context.Background()
	_, _, _, admins, _ := newTestServices(t)

	// Neither plain users nor admins may grant.
	assert.ErrorIs(t, admins.GrantAdmin(ctx, strangerID, buyerID), ErrNotPermitted)
	assert.ErrorIs(t, admins.GrantAdmin(ctx, adminID, buyerID), ErrNotPermitted)
}

func TestGrantAdmin_TargetIsOwner(t *testing.T) {
	ctx := context.Background()
	_, _, _, admins, _ := newTestServices(t)

	assert.ErrorIs(t, admins.GrantAdmin(ctx, superOwnerID, ownerID), ErrTargetIsOwner)
	assert.ErrorIs(t, admins.GrantAdmin(ctx, ownerID, superOwnerID), ErrTargetIsOwner)
}

func TestRevokeAdmin(t *testing.T) {
	ctx := context.Background()
	_, users, _, admins, _ := newTestServices(t)

	removed, err := admins.RevokeAdmin(ctx, ownerID, adminID)
	require.NoError(t, err)
	assert.True(t, removed)

	role, err := users.RoleOf(ctx, adminID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, role)

	// Revoking someone who was never an admin reports false, not an error.
	removed, err = admins.RevokeAdmin(ctx, ownerID, strangerID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRevokeAdmin_TargetIsOwner(t *testing.T) {
	ctx := context.Background()
	_, _, _, admins, _ := newTestServices(t)

	_, err := admins.RevokeAdmin(ctx, ownerID, superOwnerID)
	assert.ErrorIs(t, err, ErrTargetIsOwner)
}

func TestRevokeAdmin_NotPermitted(t *testing.T) {
	_, _, _, admins, _ := newTestServices(t)

	_, err := admins.RevokeAdmin(context.Background(), adminID, strangerID)
	assert.ErrorIs(t, err, ErrNotPermitted)
}

func TestSetReputation(t *testing.T) {
	ctx := context.Background()
	_, users, _, admins, _ := newTestServices(t)

	require.NoError(t, admins.SetReputation(ctx, ownerID, sellerID, 42))
	assert.Equal(t, 42, users.SuccessfulDeals(ctx, sellerID))

	// The override may move the counter backward.
	require.NoError(t, admins.SetReputation(ctx, superOwnerID, sellerID, 3))
	assert.Equal(t, 3, users.SuccessfulDeals(ctx, sellerID))

	assert.ErrorIs(t, admins.SetReputation(ctx, ownerID, sellerID, -1), ErrNegativeCount)
	assert.ErrorIs(t, admins.SetReputation(ctx, adminID, sellerID, 5), ErrNotPermitted)
}

func TestSetReputation_CreatesUnknownUser(t *testing.T) {
	ctx := context.Background()
	_, users, _, admins, _ := newTestServices(t)

	require.NoError(t, admins.SetReputation(ctx, ownerID, int64(777), 9))
	assert.Equal(t, 9, users.SuccessfulDeals(ctx, int64(777)))
}

func TestAdminListDeals(t *testing.T) {
	ctx := context.Background()
	_, users, deals, admins, _ := newTestServices(t)
	sellerWithWallet(t, users)

	first, err := deals.CreateDeal(ctx, sellerID, "1", "one", model.PaymentTypeTON)
	require.NoError(t, err)
	second, err := deals.CreateDeal(ctx, sellerID, "2", "two", model.PaymentTypeTON)
	require.NoError(t, err)

	listed, err := admins.ListDeals(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, second.ID, listed[0].ID)
	assert.Equal(t, first.ID, listed[1].ID)

	// Admins see individual deals through confirmations, not the full list.
	_, err = admins.ListDeals(ctx, adminID)
	assert.ErrorIs(t, err, ErrNotPermitted)
}
