package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"

	"github.com/nightlif34/Ninja-Otc/internal/model"
	"github.com/nightlif34/Ninja-Otc/internal/repository"
)

var (
	ErrMissingPaymentDestination = errors.New("Сначала добавьте реквизиты для оплаты")
	ErrDealCreation              = errors.New("Не удалось создать сделку, попробуйте позже")
	ErrSelfJoin                  = errors.New("Нельзя присоединиться к своей собственной сделке")
	ErrNotTheBuyer               = errors.New("Только покупатель может подтвердить получение")
	ErrPaymentNotConfirmed       = errors.New("Оплата ещё не подтверждена")
	ErrDealCompleted             = errors.New("Сделка уже завершена")
	ErrNotPermitted              = errors.New("Недостаточно прав")
)

const (
	dealIDLength     = 8
	dealIDMaxRetries = 5
	dealIDAlphabet   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Notifier delivers best-effort messages to the other party of a deal.
// Implemented by telegram.Bot. Delivery errors are logged and swallowed:
// a failed notification never blocks or undoes a committed transition.
type Notifier interface {
	SendBuyerJoined(sellerID int64, dealID, buyerMention string, buyerDeals int) error
	SendPaymentConfirmed(sellerID int64, dealID string) error
	SendAwaitReceipt(buyerID int64, dealID string) error
	SendDealCompleted(sellerID int64, dealID string) error
}

// DealService is the deal lifecycle engine: it allocates identifiers,
// binds buyers, gates confirmations by role and state, and drives the
// combined completion write.
type DealService struct {
	store    repository.Store
	users    *UserService
	notifier Notifier

	// newDealID is swappable so tests can force identifier collisions.
	newDealID func() (string, error)
}

func NewDealService(store repository.Store, users *UserService) *DealService {
	return &DealService{
		store:     store,
		users:     users,
		newDealID: generateDealID,
	}
}

// SetNotifier sets the outbound notifier (the bot is constructed after the
// services, so this is wired late).
func (s *DealService) SetNotifier(n Notifier) {
	s.notifier = n
}

func generateDealID() (string, error) {
	alphabetLen := big.NewInt(int64(len(dealIDAlphabet)))
	buf := make([]byte, dealIDLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", err
		}
		buf[i] = dealIDAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// CreateDeal opens a new escrow deal for the seller. The payment address is
// snapshotted from the seller's stored destination for the chosen payment
// type; later destination changes do not touch existing deals. Identifier
// collisions are absorbed by regenerating, up to a bounded retry budget.
func (s *DealService) CreateDeal(ctx context.Context, sellerID int64, amount, description string, paymentType model.PaymentType) (*model.Deal, error) {
	seller, err := s.store.GetUser(ctx, sellerID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrMissingPaymentDestination
		}
		return nil, err
	}

	var address *string
	switch paymentType {
	case model.PaymentTypeTON, model.PaymentTypeStars:
		address = seller.TonWallet
	case model.PaymentTypeRUB:
		address = seller.BankCard
	default:
		address = nil
	}
	if address == nil || *address == "" {
		return nil, ErrMissingPaymentDestination
	}

	for attempt := 0; attempt < dealIDMaxRetries; attempt++ {
		id, err := s.newDealID()
		if err != nil {
			return nil, err
		}

		deal := &model.Deal{
			ID:             id,
			SellerID:       sellerID,
			Amount:         amount,
			Description:    description,
			PaymentType:    paymentType,
			PaymentAddress: *address,
			Status:         model.DealStatusPending,
		}

		err = s.store.CreateDeal(ctx, deal)
		if err == nil {
			return deal, nil
		}
		if !errors.Is(err, repository.ErrDealExists) {
			return nil, err
		}
	}

	return nil, ErrDealCreation
}

func (s *DealService) GetDeal(ctx context.Context, dealID string) (*model.Deal, error) {
	return s.store.GetDeal(ctx, dealID)
}

// JoinDeal binds the caller as the deal's buyer and returns the payment
// instructions. The buyer slot is first-come-wins and never reassigned;
// a repeated join by the bound buyer just re-returns the instructions.
func (s *DealService) JoinDeal(ctx context.Context, dealID string, buyerID int64, buyerUsername *string) (*model.PaymentInstructions, error) {
	deal, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpsertUser(ctx, buyerID, buyerUsername); err != nil {
		return nil, err
	}

	if buyerID == deal.SellerID {
		return nil, ErrSelfJoin
	}
	if deal.BuyerID != nil && *deal.BuyerID != buyerID {
		return nil, repository.ErrBuyerTaken
	}

	newlyBound := deal.BuyerID == nil
	if newlyBound {
		// The compare-and-set in the store is the real race-breaker; the
		// check above is only a friendlier early answer.
		if err := s.store.BindBuyer(ctx, dealID, buyerID); err != nil {
			return nil, err
		}
	}

	seller, err := s.store.GetUser(ctx, deal.SellerID)
	if err != nil {
		return nil, err
	}

	instructions := &model.PaymentInstructions{
		DealID:          deal.ID,
		Amount:          deal.Amount,
		PaymentType:     deal.PaymentType,
		Address:         deal.PaymentAddress,
		Memo:            deal.ID,
		Description:     deal.Description,
		SellerID:        seller.ID,
		SellerMention:   seller.Mention(),
		SellerDealCount: seller.SuccessfulDeals,
	}
	if deal.PaymentType != model.PaymentTypeRUB {
		instructions.DeepLink = model.TONDeepLink(deal.PaymentAddress, deal.ID)
	}

	// The seller gets the "same user, don't ship yet" warning on every
	// successful join, including the bound buyer reopening the link.
	if s.notifier != nil {
		buyer, err := s.store.GetUser(ctx, buyerID)
		buyerMention := fmt.Sprintf("ID %d", buyerID)
		buyerDeals := 0
		if err == nil {
			buyerMention = buyer.Mention()
			buyerDeals = buyer.SuccessfulDeals
		}
		if err := s.notifier.SendBuyerJoined(deal.SellerID, deal.ID, buyerMention, buyerDeals); err != nil {
			log.Printf("deal %s: failed to notify seller about buyer join: %v", deal.ID, err)
		}
	}

	return instructions, nil
}

// ConfirmPayment is the trusted intermediary action: an admin-or-higher
// actor asserts the payment with the deal's memo has arrived. A completed
// deal cannot be re-confirmed; otherwise the call is idempotent.
func (s *DealService) ConfirmPayment(ctx context.Context, actorID int64, dealID string) (*model.Deal, error) {
	allowed, err := s.users.IsAdminOrHigher(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrNotPermitted
	}

	deal, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if deal.Status == model.DealStatusCompleted {
		return nil, ErrDealCompleted
	}

	// The guarded update in the store is the real terminal-state check; the
	// read above only gives a friendlier early answer.
	if err := s.store.MarkPaymentConfirmed(ctx, dealID); err != nil {
		if errors.Is(err, repository.ErrDealCompleted) {
			return nil, ErrDealCompleted
		}
		return nil, err
	}
	deal.Status = model.DealStatusPaymentConfirmed

	if s.notifier != nil {
		if err := s.notifier.SendPaymentConfirmed(deal.SellerID, deal.ID); err != nil {
			log.Printf("deal %s: failed to notify seller about payment: %v", deal.ID, err)
		}
		if deal.BuyerID != nil {
			if err := s.notifier.SendAwaitReceipt(*deal.BuyerID, deal.ID); err != nil {
				log.Printf("deal %s: failed to notify buyer about payment: %v", deal.ID, err)
			}
		}
	}

	return deal, nil
}

// ConfirmReceipt is the buyer's release action. It requires the caller to
// be the bound buyer and the deal to be in payment_confirmed; on success
// the store completes the deal and bumps both reputation counters as one
// transaction.
func (s *DealService) ConfirmReceipt(ctx context.Context, actorID int64, dealID string) (*model.Deal, error) {
	deal, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}

	if deal.BuyerID == nil || *deal.BuyerID != actorID {
		return nil, ErrNotTheBuyer
	}
	if deal.Status != model.DealStatusPaymentConfirmed {
		return nil, ErrPaymentNotConfirmed
	}

	if err := s.store.MarkCompleted(ctx, dealID); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.SendDealCompleted(deal.SellerID, deal.ID); err != nil {
			log.Printf("deal %s: failed to notify seller about completion: %v", deal.ID, err)
		}
	}

	return s.store.GetDeal(ctx, dealID)
}
