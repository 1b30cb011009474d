package model

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleOwner      Role = "owner"
	RoleSuperOwner Role = "super_owner"
)

var roleRank = map[Role]int{
	RoleUser:       0,
	RoleAdmin:      1,
	RoleOwner:      2,
	RoleSuperOwner: 3,
}

// AtLeast reports whether r sits at or above other in the hierarchy
// super_owner > owner > admin > user.
func (r Role) AtLeast(other Role) bool {
	return roleRank[r] >= roleRank[other]
}

type User struct {
	ID              int64     `json:"id" db:"id"`
	Username        *string   `json:"username,omitempty" db:"username"`
	TonWallet       *string   `json:"ton_wallet,omitempty" db:"ton_wallet"`
	BankCard        *string   `json:"bank_card,omitempty" db:"bank_card"`
	SuccessfulDeals int       `json:"successful_deals" db:"successful_deals"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// Mention returns the handle shown to counterparties: "@username" when the
// user has one, otherwise "ID <id>".
func (u *User) Mention() string {
	if u.Username != nil && *u.Username != "" {
		return "@" + *u.Username
	}
	return fmt.Sprintf("ID %d", u.ID)
}

// PaymentKind names a stored payment destination.
type PaymentKind string

const (
	PaymentKindTon  PaymentKind = "ton"
	PaymentKindCard PaymentKind = "card"
)
