package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/nightlif34/Ninja-Otc/internal/model"
)

// CreateDeal inserts a new deal with status=pending and no buyer. A
// primary-key collision reports ErrDealExists so the caller can retry with
// a fresh id.
func (r *Repository) CreateDeal(ctx context.Context, deal *model.Deal) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO deals (id, seller_id, amount, description, payment_type, payment_address)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		deal.ID, deal.SellerID, deal.Amount, deal.Description, deal.PaymentType, deal.PaymentAddress)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrDealExists
	}
	return nil
}

func (r *Repository) GetDeal(ctx context.Context, id string) (*model.Deal, error) {
	var deal model.Deal
	err := r.db.GetContext(ctx, &deal, "SELECT * FROM deals WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDealNotFound
		}
		return nil, err
	}
	return &deal, nil
}

// BindBuyer sets the buyer slot as an atomic compare-and-set: the update
// only lands when the slot is empty or already holds the same buyer.
// First-come-wins under concurrent joins; the loser gets ErrBuyerTaken.
func (r *Repository) BindBuyer(ctx context.Context, dealID string, buyerID int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE deals SET buyer_id = $2
		WHERE id = $1 AND (buyer_id IS NULL OR buyer_id = $2)`,
		dealID, buyerID)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := r.GetDeal(ctx, dealID); err != nil {
			return err
		}
		return ErrBuyerTaken
	}
	return nil
}

// MarkPaymentConfirmed flips the deal to payment_confirmed. The status
// guard in the UPDATE keeps completed terminal even when the caller's
// pre-check raced a concurrent completion.
func (r *Repository) MarkPaymentConfirmed(ctx context.Context, dealID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE deals SET status = $2
		WHERE id = $1 AND status <> $3`,
		dealID, model.DealStatusPaymentConfirmed, model.DealStatusCompleted)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := r.GetDeal(ctx, dealID); err != nil {
			return err
		}
		return ErrDealCompleted
	}
	return nil
}

// MarkCompleted finishes the deal and bumps both reputation counters in one
// transaction: the status flip and the increments commit together or not at
// all. The status guard in the UPDATE makes completion exactly-once — a
// repeat call finds no pending-confirmed row and leaves the counters alone.
func (r *Repository) MarkCompleted(ctx context.Context, dealID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var sellerID int64
	var buyerID *int64
	err = tx.QueryRowxContext(ctx, `
		UPDATE deals SET status = $2, completed_at = NOW()
		WHERE id = $1 AND status <> $2
		RETURNING seller_id, buyer_id`,
		dealID, model.DealStatusCompleted).Scan(&sellerID, &buyerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Missing deal or already completed. Already-completed is a
			// no-op so the counters can never double-count.
			if _, getErr := r.GetDeal(ctx, dealID); getErr != nil {
				return getErr
			}
			return nil
		}
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET successful_deals = successful_deals + 1 WHERE id = $1`, sellerID); err != nil {
		return err
	}
	if buyerID != nil {
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET successful_deals = successful_deals + 1 WHERE id = $1`, *buyerID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *Repository) ListDeals(ctx context.Context) ([]model.Deal, error) {
	var deals []model.Deal
	err := r.db.SelectContext(ctx, &deals, `SELECT * FROM deals ORDER BY created_at DESC`)
	return deals, err
}
