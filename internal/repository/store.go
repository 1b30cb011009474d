package repository

import (
	"context"
	"errors"

	"github.com/nightlif34/Ninja-Otc/internal/model"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDealNotFound  = errors.New("deal not found")
	ErrDealExists    = errors.New("deal id already exists")
	ErrBuyerTaken    = errors.New("deal already has a different buyer")
	ErrDealCompleted = errors.New("deal is already completed")
	ErrAlreadyAdmin  = errors.New("user is already an admin")
)

// Store is the persistence boundary the services are built against. The
// Postgres implementation lives in this package; the in-memory one backs
// tests. Every method is a single atomic operation — cross-row invariants
// that cannot be expressed as one statement (deal completion) are wrapped
// in a transaction inside the implementation, never left to the caller.
type Store interface {
	// Users
	GetUser(ctx context.Context, id int64) (*model.User, error)
	UpsertUser(ctx context.Context, id int64, username *string) error
	SetPaymentDestination(ctx context.Context, id int64, kind model.PaymentKind, value string) error
	SetSuccessfulDeals(ctx context.Context, id int64, count int) error

	// Admin grants
	IsAdmin(ctx context.Context, userID int64) (bool, error)
	CreateAdminGrant(ctx context.Context, grant *model.AdminGrant) error
	DeleteAdminGrant(ctx context.Context, userID int64) (bool, error)

	// Deals
	CreateDeal(ctx context.Context, deal *model.Deal) error
	GetDeal(ctx context.Context, id string) (*model.Deal, error)
	BindBuyer(ctx context.Context, dealID string, buyerID int64) error
	MarkPaymentConfirmed(ctx context.Context, dealID string) error
	MarkCompleted(ctx context.Context, dealID string) error
	ListDeals(ctx context.Context) ([]model.Deal, error)
}
