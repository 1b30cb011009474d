package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/nightlif34/Ninja-Otc/internal/model"
)

func (r *Repository) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM admins WHERE user_id = $1`, userID)
	return count > 0, err
}

// CreateAdminGrant inserts the grant row. The unique constraint on user_id
// is the race-breaker: a concurrent duplicate insert loses and gets
// ErrAlreadyAdmin regardless of what the caller checked beforehand.
func (r *Repository) CreateAdminGrant(ctx context.Context, grant *model.AdminGrant) error {
	if grant.ID == uuid.Nil {
		grant.ID = uuid.New()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO admins (id, user_id, granted_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING`,
		grant.ID, grant.UserID, grant.GrantedBy)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrAlreadyAdmin
	}
	return nil
}

// DeleteAdminGrant removes the grant row if present and reports whether a
// row was actually removed, so callers can tell "was admin" from "wasn't".
func (r *Repository) DeleteAdminGrant(ctx context.Context, userID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM admins WHERE user_id = $1`, userID)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}
