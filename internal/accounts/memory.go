package accounts

import (
	"context"
	"sync"

	"github.com/austrobank/interswitch/internal/domain"
)

// MemoryStore is a concurrency-safe in-memory account store used by the
// memory storage backend and by unit tests.
type MemoryStore struct {
	mu        sync.RWMutex
	balances  map[string]domain.Money
	cards     map[string]Card
	merchants map[string]Merchant
}

// NewMemoryStore returns an empty store with the interbank suspense
// account pre-created.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		balances:  map[string]domain.Money{SuspenseAccountRef: 0},
		cards:     make(map[string]Card),
		merchants: make(map[string]Merchant),
	}
}

// SeedAccount creates or overwrites an account balance.
func (s *MemoryStore) SeedAccount(ref string, balance domain.Money) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[ref] = balance
}

// SeedCard registers a card.
func (s *MemoryStore) SeedCard(card Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards[card.PAN] = card
	if _, ok := s.balances[card.AccountRef]; !ok {
		s.balances[card.AccountRef] = 0
	}
}

// SeedMerchant registers a merchant.
func (s *MemoryStore) SeedMerchant(m Merchant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.merchants[m.ID] = m
	if _, ok := s.balances[m.AccountRef]; !ok {
		s.balances[m.AccountRef] = 0
	}
}

func (s *MemoryStore) ResolveCard(_ context.Context, pan string) (Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	card, ok := s.cards[pan]
	if !ok {
		return Card{}, ErrCardNotFound
	}
	return card, nil
}

func (s *MemoryStore) ResolveMerchant(_ context.Context, merchantID string) (Merchant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.merchants[merchantID]
	if !ok {
		return Merchant{}, ErrMerchantNotFound
	}
	return m, nil
}

func (s *MemoryStore) GetBalance(_ context.Context, accountRef string) (domain.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	balance, ok := s.balances[accountRef]
	if !ok {
		return 0, ErrAccountNotFound
	}
	return balance, nil
}

func (s *MemoryStore) PairedTransfer(_ context.Context, fromRef, toRef string, amount domain.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	from, ok := s.balances[fromRef]
	if !ok {
		return ErrAccountNotFound
	}
	if _, ok := s.balances[toRef]; !ok {
		return ErrAccountNotFound
	}
	if from < amount {
		return ErrInsufficientFunds
	}
	s.balances[fromRef] -= amount
	s.balances[toRef] += amount
	return nil
}

func (s *MemoryStore) Credit(_ context.Context, accountRef string, amount domain.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.balances[accountRef]; !ok {
		return ErrAccountNotFound
	}
	s.balances[accountRef] += amount
	return nil
}
