package model

import (
	"fmt"
	"time"
)

type DealStatus string

const (
	DealStatusPending          DealStatus = "pending"
	DealStatusPaymentConfirmed DealStatus = "payment_confirmed"
	DealStatusCompleted        DealStatus = "completed"
)

type PaymentType string

const (
	PaymentTypeTON     PaymentType = "TON"
	PaymentTypeRUB     PaymentType = "RUB"
	PaymentTypeStars   PaymentType = "Stars"
	PaymentTypeUnknown PaymentType = "Unknown"
)

// DestinationKind returns which stored payment destination a deal of this
// type is paid to. TON and Stars deals settle to the seller's TON wallet,
// RUB deals to the bank card.
func (p PaymentType) DestinationKind() PaymentKind {
	if p == PaymentTypeRUB {
		return PaymentKindCard
	}
	return PaymentKindTon
}

type Deal struct {
	ID             string      `json:"id" db:"id"`
	SellerID       int64       `json:"seller_id" db:"seller_id"`
	BuyerID        *int64      `json:"buyer_id,omitempty" db:"buyer_id"`
	Amount         string      `json:"amount" db:"amount"`
	Description    string      `json:"description" db:"description"`
	PaymentType    PaymentType `json:"payment_type" db:"payment_type"`
	PaymentAddress string      `json:"payment_address" db:"payment_address"`
	Status         DealStatus  `json:"status" db:"status"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
}

// HasBuyer reports whether the buyer slot is already bound.
func (d *Deal) HasBuyer() bool {
	return d.BuyerID != nil
}

// JoinLink builds the shareable deep link a prospective buyer opens to join.
func (d *Deal) JoinLink(botUsername string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", botUsername, d.ID)
}

// PaymentInstructions is what the buyer receives after joining: where to
// pay, how much, and the deal id that must go into the payment memo.
type PaymentInstructions struct {
	DealID          string      `json:"deal_id"`
	Amount          string      `json:"amount"`
	PaymentType     PaymentType `json:"payment_type"`
	Address         string      `json:"address"`
	Memo            string      `json:"memo"`
	Description     string      `json:"description"`
	SellerID        int64       `json:"seller_id"`
	SellerMention   string      `json:"seller_mention"`
	SellerDealCount int         `json:"seller_deal_count"`
	DeepLink        string      `json:"deep_link,omitempty"`
}

// TONDeepLink builds a ton://transfer link with the memo attached, for TON
// and Stars deals. The amount is not embedded: it is an opaque string here,
// the buyer enters it in the wallet. RUB deals have no deep link.
func TONDeepLink(address, memo string) string {
	return fmt.Sprintf("ton://transfer/%s?text=%s", address, memo)
}
