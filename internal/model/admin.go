package model

import (
	"time"

	"github.com/google/uuid"
)

// AdminGrant is a row in the admins relation. A user is either an admin or
// not: user_id carries a unique constraint, which is also the race-breaker
// for concurrent grants. Owners and the super-owner are never stored here.
type AdminGrant struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	GrantedBy int64     `json:"granted_by" db:"granted_by"`
	GrantedAt time.Time `json:"granted_at" db:"granted_at"`
}
