package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightlif34/Ninja-Otc/internal/model"
)

func strPtr(s string) *string { return &s }

func TestMemory_UpsertUser(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	require.NoError(t, store.UpsertUser(ctx, 100, strPtr("alice")))

	user, err := store.GetUser(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "alice", *user.Username)
	assert.Equal(t, 0, user.SuccessfulDeals)

	// Re-upsert refreshes the username and nothing else.
	require.NoError(t, store.SetPaymentDestination(ctx, 100, model.PaymentKindTon, "EQabc"))
	require.NoError(t, store.SetSuccessfulDeals(ctx, 100, 7))
	require.NoError(t, store.UpsertUser(ctx, 100, strPtr("alice_renamed")))

	user, err = store.GetUser(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "alice_renamed", *user.Username)
	assert.Equal(t, "EQabc", *user.TonWallet)
	assert.Equal(t, 7, user.SuccessfulDeals)
}

func TestMemory_GetUser_NotFound(t *testing.T) {
	store := NewMemory()

	_, err := store.GetUser(context.Background(), 42)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMemory_SetPaymentDestination(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	require.NoError(t, store.UpsertUser(ctx, 100, strPtr("alice")))

	// Setting the wallet twice keeps the latest value and never touches
	// the card.
	require.NoError(t, store.SetPaymentDestination(ctx, 100, model.PaymentKindTon, "EQone"))
	require.NoError(t, store.SetPaymentDestination(ctx, 100, model.PaymentKindTon, "EQtwo"))
	require.NoError(t, store.SetPaymentDestination(ctx, 100, model.PaymentKindCard, "2200123"))

	user, err := store.GetUser(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "EQtwo", *user.TonWallet)
	assert.Equal(t, "2200123", *user.BankCard)

	// A write against a user that was never upserted is an accepted no-op.
	require.NoError(t, store.SetPaymentDestination(ctx, 999, model.PaymentKindTon, "EQghost"))
	_, err = store.GetUser(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMemory_SetSuccessfulDeals_CreatesRow(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	require.NoError(t, store.SetSuccessfulDeals(ctx, 55, 12))

	user, err := store.GetUser(ctx, 55)
	require.NoError(t, err)
	assert.Equal(t, 12, user.SuccessfulDeals)

	// Override may move the counter backward.
	require.NoError(t, store.SetSuccessfulDeals(ctx, 55, 3))
	user, _ = store.GetUser(ctx, 55)
	assert.Equal(t, 3, user.SuccessfulDeals)
}

func TestMemory_AdminGrants(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	isAdmin, err := store.IsAdmin(ctx, 200)
	require.NoError(t, err)
	assert.False(t, isAdmin)

	require.NoError(t, store.CreateAdminGrant(ctx, &model.AdminGrant{UserID: 200, GrantedBy: 1}))

	isAdmin, err = store.IsAdmin(ctx, 200)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	// A user is either an admin or not: the second grant loses.
	err = store.CreateAdminGrant(ctx, &model.AdminGrant{UserID: 200, GrantedBy: 2})
	assert.ErrorIs(t, err, ErrAlreadyAdmin)

	removed, err := store.DeleteAdminGrant(ctx, 200)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.DeleteAdminGrant(ctx, 200)
	require.NoError(t, err)
	assert.False(t, removed)
}

func newTestDeal(id string, sellerID int64) *model.Deal {
	return &model.Deal{
		ID:             id,
		SellerID:       sellerID,
		Amount:         "5",
		Description:    "Gift X",
		PaymentType:    model.PaymentTypeTON,
		PaymentAddress: "EQabc",
	}
}

func TestMemory_CreateDeal_Duplicate(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	require.NoError(t, store.CreateDeal(ctx, newTestDeal("aaaa1111", 100)))

	err := store.CreateDeal(ctx, newTestDeal("aaaa1111", 101))
	assert.ErrorIs(t, err, ErrDealExists)

	deal, err := store.GetDeal(ctx, "aaaa1111")
	require.NoError(t, err)
	assert.Equal(t, int64(100), deal.SellerID)
	assert.Equal(t, model.DealStatusPending, deal.Status)
	assert.Nil(t, deal.BuyerID)
}

func TestMemory_BindBuyer(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	require.NoError(t, store.CreateDeal(ctx, newTestDeal("aaaa1111", 100)))

	require.NoError(t, store.BindBuyer(ctx, "aaaa1111", 200))

	// Re-binding the same buyer is fine; a different buyer loses.
	require.NoError(t, store.BindBuyer(ctx, "aaaa1111", 200))
	assert.ErrorIs(t, store.BindBuyer(ctx, "aaaa1111", 201), ErrBuyerTaken)

	assert.ErrorIs(t, store.BindBuyer(ctx, "missing", 200), ErrDealNotFound)

	deal, err := store.GetDeal(ctx, "aaaa1111")
	require.NoError(t, err)
	require.NotNil(t, deal.BuyerID)
	assert.Equal(t, int64(200), *deal.BuyerID)
}

func TestMemory_MarkCompleted(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	require.NoError(t, store.UpsertUser(ctx, 100, strPtr("seller")))
	require.NoError(t, store.UpsertUser(ctx, 200, strPtr("buyer")))
	require.NoError(t, store.CreateDeal(ctx, newTestDeal("aaaa1111", 100)))
	require.NoError(t, store.BindBuyer(ctx, "aaaa1111", 200))
	require.NoError(t, store.MarkPaymentConfirmed(ctx, "aaaa1111"))

	require.NoError(t, store.MarkCompleted(ctx, "aaaa1111"))

	deal, err := store.GetDeal(ctx, "aaaa1111")
	require.NoError(t, err)
	assert.Equal(t, model.DealStatusCompleted, deal.Status)
	require.NotNil(t, deal.CompletedAt)

	seller, _ := store.GetUser(ctx, 100)
	buyer, _ := store.GetUser(ctx, 200)
	assert.Equal(t, 1, seller.SuccessfulDeals)
	assert.Equal(t, 1, buyer.SuccessfulDeals)

	// Completion is exactly-once for the counters.
	require.NoError(t, store.MarkCompleted(ctx, "aaaa1111"))
	seller, _ = store.GetUser(ctx, 100)
	buyer, _ = store.GetUser(ctx, 200)
	assert.Equal(t, 1, seller.SuccessfulDeals)
	assert.Equal(t, 1, buyer.SuccessfulDeals)
}

func TestMemory_MarkPaymentConfirmed_CompletedIsTerminal(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	require.NoError(t, store.UpsertUser(ctx, 100, strPtr("seller")))
	require.NoError(t, store.UpsertUser(ctx, 200, strPtr("buyer")))
	require.NoError(t, store.CreateDeal(ctx, newTestDeal("aaaa1111", 100)))
	require.NoError(t, store.BindBuyer(ctx, "aaaa1111", 200))
	require.NoError(t, store.MarkPaymentConfirmed(ctx, "aaaa1111"))
	require.NoError(t, store.MarkCompleted(ctx, "aaaa1111"))

	// A confirm that lost the race against completion cannot pull the
	// deal back out of its terminal state.
	err := store.MarkPaymentConfirmed(ctx, "aaaa1111")
	assert.ErrorIs(t, err, ErrDealCompleted)

	deal, err := store.GetDeal(ctx, "aaaa1111")
	require.NoError(t, err)
	assert.Equal(t, model.DealStatusCompleted, deal.Status)

	// And a repeat completion still cannot double-count.
	require.NoError(t, store.MarkCompleted(ctx, "aaaa1111"))
	seller, _ := store.GetUser(ctx, 100)
	buyer, _ := store.GetUser(ctx, 200)
	assert.Equal(t, 1, seller.SuccessfulDeals)
	assert.Equal(t, 1, buyer.SuccessfulDeals)

	assert.ErrorIs(t, store.MarkPaymentConfirmed(ctx, "missing"), ErrDealNotFound)
}

func TestMemory_MarkCompleted_NoBuyer(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	require.NoError(t, store.UpsertUser(ctx, 100, strPtr("seller")))
	require.NoError(t, store.CreateDeal(ctx, newTestDeal("aaaa1111", 100)))

	require.NoError(t, store.MarkCompleted(ctx, "aaaa1111"))

	seller, _ := store.GetUser(ctx, 100)
	assert.Equal(t, 1, seller.SuccessfulDeals)
}

func TestMemory_ListDeals_NewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	require.NoError(t, store.CreateDeal(ctx, newTestDeal("first000", 100)))
	require.NoError(t, store.CreateDeal(ctx, newTestDeal("second00", 100)))
	require.NoError(t, store.CreateDeal(ctx, newTestDeal("third000", 100)))

	deals, err := store.ListDeals(ctx)
	require.NoError(t, err)
	require.Len(t, deals, 3)
	assert.Equal(t, "third000", deals[0].ID)
	assert.Equal(t, "second00", deals[1].ID)
	assert.Equal(t, "first000", deals[2].ID)
}
