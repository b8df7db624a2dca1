package credits

import (
	"context"
	"sync"
)

// BalanceStore is the durable home of principal balances. The ledger only
// needs a read and a compare-and-swap; implementations must make
// CompareAndSwap atomic with respect to other writers of the same store.
type BalanceStore interface {
	// Get returns the principal's current balance, or ErrUnknownPrincipal.
	Get(ctx context.Context, principal string) (int64, error)

	// CompareAndSwap sets the balance to next only if it currently equals
	// prev. It reports whether the swap happened.
	CompareAndSwap(ctx context.Context, principal string, prev, next int64) (bool, error)
}

// MemoryStore is an in-process BalanceStore.
type MemoryStore struct {
	mu       sync.Mutex
	balances map[string]int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{balances: make(map[string]int64)}
}

// Open registers a principal with a starting balance. It is a no-op if the
// principal already exists.
func (s *MemoryStore) Open(principal string, balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.balances[principal]; !ok {
		s.balances[principal] = balance
	}
}

func (s *MemoryStore) Get(_ context.Context, principal string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[principal]
	if !ok {
		return 0, ErrUnknownPrincipal
	}
	return b, nil
}

func (s *MemoryStore) CompareAndSwap(_ context.Context, principal string, prev, next int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[principal]
	if !ok {
		return false, ErrUnknownPrincipal
	}
	if b != prev {
		return false, nil
	}
	s.balances[principal] = next
	return true, nil
}
