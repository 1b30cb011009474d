package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nightlif34/Ninja-Otc/internal/model"
)

func (r *Repository) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpsertUser creates the row if missing; on an existing row only the
// username is refreshed, everything else (wallet, card, counters) is kept.
func (r *Repository) UpsertUser(ctx context.Context, id int64, username *string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username`,
		id, username)
	return err
}

// SetPaymentDestination overwrites exactly one destination field. Updating
// a user that was never upserted affects zero rows and is accepted as a
// no-op.
func (r *Repository) SetPaymentDestination(ctx context.Context, id int64, kind model.PaymentKind, value string) error {
	var column string
	switch kind {
	case model.PaymentKindTon:
		column = "ton_wallet"
	case model.PaymentKindCard:
		column = "bank_card"
	default:
		return fmt.Errorf("unknown payment destination kind: %s", kind)
	}

	_, err := r.db.ExecContext(ctx,
		"UPDATE users SET "+column+" = $1 WHERE id = $2", value, id)
	return err
}

// SetSuccessfulDeals is the administrative override: it may move the
// counter backward and creates the row when absent.
func (r *Repository) SetSuccessfulDeals(ctx context.Context, id int64, count int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, successful_deals)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET successful_deals = EXCLUDED.successful_deals`,
		id, count)
	return err
}
