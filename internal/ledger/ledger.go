// Package ledger keeps per-identity token balances and reputation scores.
// Untouched identities read as the initial balance and a reputation of 1.0.
package ledger

import (
	"fmt"
	"sort"

	"github.com/vibeforge/vibeforge/internal/core"
)

// DefaultReputation is the score of an identity that has never been touched
const DefaultReputation float32 = 1.0

// Store holds balances and reputation for every touched identity.
// It is not safe for concurrent use; the platform serializes access.
type Store struct {
	initial    uint64
	balances   map[core.Identity]uint64
	reputation map[core.Identity]float32
}

// NewStore creates a ledger whose untouched identities hold initialBalance
func NewStore(initialBalance uint64) *Store {
	return &Store{
		initial:    initialBalance,
		balances:   make(map[core.Identity]uint64),
		reputation: make(map[core.Identity]float32),
	}
}

// InitialBalance returns the balance of an untouched identity
func (s *Store) InitialBalance() uint64 {
	return s.initial
}

// Balance returns the token balance of id
func (s *Store) Balance(id core.Identity) uint64 {
	if b, ok := s.balances[id]; ok {
		return b
	}
	return s.initial
}

// Reputation returns the reputation score of id
func (s *Store) Reputation(id core.Identity) float32 {
	if r, ok := s.reputation[id]; ok {
		return r
	}
	return DefaultReputation
}

// Touched reports whether id has a materialized balance
func (s *Store) Touched(id core.Identity) bool {
	_, ok := s.balances[id]
	return ok
}

// Ensure materializes the default balance for id
func (s *Store) Ensure(id core.Identity) {
	if _, ok := s.balances[id]; !ok {
		s.balances[id] = s.initial
	}
}

// CanDebit reports whether id can pay amount
func (s *Store) CanDebit(id core.Identity, amount uint64) bool {
	return s.Balance(id) >= amount
}

// Credit adds amount to the balance of id
func (s *Store) Credit(id core.Identity, amount uint64) {
	s.Ensure(id)
	s.balances[id] += amount
}

// Debit removes amount from the balance of id.
// Nothing is written when the balance is too low.
func (s *Store) Debit(id core.Identity, amount uint64) error {
	balance := s.Balance(id)
	if balance < amount {
		return fmt.Errorf("debit %d from %s (balance %d): %w", amount, id, balance, core.ErrInsufficientFunds)
	}
	s.balances[id] = balance - amount
	return nil
}

// BumpReputation adds delta to the reputation of id
func (s *Store) BumpReputation(id core.Identity, delta float32) {
	s.reputation[id] = s.Reputation(id) + delta
}

// Reset restores the default balance and reputation of id
func (s *Store) Reset(id core.Identity) {
	s.balances[id] = s.initial
	s.reputation[id] = DefaultReputation
}

// EachBalance calls fn for every materialized balance in identity order
func (s *Store) EachBalance(fn func(id core.Identity, balance uint64)) {
	ids := make([]core.Identity, 0, len(s.balances))
	for id := range s.balances {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fn(id, s.balances[id])
	}
}

// Len returns the number of materialized balances
func (s *Store) Len() int {
	return len(s.balances)
}
