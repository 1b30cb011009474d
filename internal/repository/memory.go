package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nightlif34/Ninja-Otc/internal/model"
)

// Memory is an in-memory Store used by tests and local development. It
// mirrors the Postgres implementation's semantics, including the
// compare-and-set buyer binding and the all-or-nothing completion write.
type Memory struct {
	mu      sync.RWMutex
	users   map[int64]*model.User
	grants  map[int64]*model.AdminGrant
	deals   map[string]*model.Deal
	dealSeq map[string]int // insertion order, tie-breaker for ListDeals
	seq     int
}

func NewMemory() *Memory {
	return &Memory{
		users:   make(map[int64]*model.User),
		grants:  make(map[int64]*model.AdminGrant),
		deals:   make(map[string]*model.Deal),
		dealSeq: make(map[string]int),
	}
}

func (m *Memory) GetUser(_ context.Context, id int64) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) UpsertUser(_ context.Context, id int64, username *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.users[id]; ok {
		u.Username = username
		return nil
	}
	m.users[id] = &model.User{ID: id, Username: username, CreatedAt: time.Now()}
	return nil
}

func (m *Memory) SetPaymentDestination(_ context.Context, id int64, kind model.PaymentKind, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil // zero rows affected, accepted no-op
	}
	switch kind {
	case model.PaymentKindTon:
		u.TonWallet = &value
	case model.PaymentKindCard:
		u.BankCard = &value
	}
	return nil
}

func (m *Memory) SetSuccessfulDeals(_ context.Context, id int64, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.users[id]; ok {
		u.SuccessfulDeals = count
		return nil
	}
	m.users[id] = &model.User{ID: id, SuccessfulDeals: count, CreatedAt: time.Now()}
	return nil
}

func (m *Memory) IsAdmin(_ context.Context, userID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.grants[userID]
	return ok, nil
}

func (m *Memory) CreateAdminGrant(_ context.Context, grant *model.AdminGrant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.grants[grant.UserID]; exists {
		return ErrAlreadyAdmin
	}
	if grant.ID == uuid.Nil {
		grant.ID = uuid.New()
	}
	if grant.GrantedAt.IsZero() {
		grant.GrantedAt = time.Now()
	}
	cp := *grant
	m.grants[grant.UserID] = &cp
	return nil
}

func (m *Memory) DeleteAdminGrant(_ context.Context, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.grants[userID]; !ok {
		return false, nil
	}
	delete(m.grants, userID)
	return true, nil
}

func (m *Memory) CreateDeal(_ context.Context, deal *model.Deal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.deals[deal.ID]; exists {
		return ErrDealExists
	}

	cp := *deal
	cp.Status = model.DealStatusPending
	cp.BuyerID = nil
	cp.CreatedAt = time.Now()
	m.deals[deal.ID] = &cp
	m.seq++
	m.dealSeq[deal.ID] = m.seq

	deal.Status = cp.Status
	deal.CreatedAt = cp.CreatedAt
	return nil
}

func (m *Memory) GetDeal(_ context.Context, id string) (*model.Deal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.deals[id]
	if !ok {
		return nil, ErrDealNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *Memory) BindBuyer(_ context.Context, dealID string, buyerID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.deals[dealID]
	if !ok {
		return ErrDealNotFound
	}
	if d.BuyerID != nil && *d.BuyerID != buyerID {
		return ErrBuyerTaken
	}
	d.BuyerID = &buyerID
	return nil
}

func (m *Memory) MarkPaymentConfirmed(_ context.Context, dealID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.deals[dealID]
	if !ok {
		return ErrDealNotFound
	}
	if d.Status == model.DealStatusCompleted {
		return ErrDealCompleted
	}
	d.Status = model.DealStatusPaymentConfirmed
	return nil
}

func (m *Memory) MarkCompleted(_ context.Context, dealID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.deals[dealID]
	if !ok {
		return ErrDealNotFound
	}
	if d.Status == model.DealStatusCompleted {
		return nil
	}

	now := time.Now()
	d.Status = model.DealStatusCompleted
	d.CompletedAt = &now

	if u, ok := m.users[d.SellerID]; ok {
		u.SuccessfulDeals++
	}
	if d.BuyerID != nil {
		if u, ok := m.users[*d.BuyerID]; ok {
			u.SuccessfulDeals++
		}
	}
	return nil
}

func (m *Memory) ListDeals(_ context.Context) ([]model.Deal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	deals := make([]model.Deal, 0, len(m.deals))
	for _, d := range m.deals {
		deals = append(deals, *d)
	}
	sort.Slice(deals, func(i, j int) bool {
		return m.dealSeq[deals[i].ID] > m.dealSeq[deals[j].ID]
	})
	return deals, nil
}

var _ Store = (*Memory)(nil)
