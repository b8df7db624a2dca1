package credits

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// defaultMaxAttempts bounds the compare-and-swap loop. Within one process
// the per-principal mutex means the first attempt normally wins; retries
// only happen when another process writes the same store.
const defaultMaxAttempts = 16

// Reservation is credit that has already been debited for a generation
// request. Refund restores it at most once.
type Reservation struct {
	ID          string
	PrincipalID string
	Amount      int64
	CreatedAt   time.Time

	// Balance is the principal's balance right after the debit.
	Balance int64

	refunded atomic.Bool
}

// Refunded reports whether the reservation has been refunded.
func (r *Reservation) Refunded() bool { return r.refunded.Load() }

// Ledger holds principal balances and exposes atomic reserve, credit and
// refund operations on top of a BalanceStore.
//
// Every operation on a principal runs inside that principal's mutex and
// commits with a compare-and-swap, so check-then-debit is linearizable
// per principal both inside the process and across processes sharing the
// store. Operations on different principals never block each other.
type Ledger struct {
	store       BalanceStore
	locksMu     sync.Mutex
	locks       map[string]*principalLock
	maxAttempts int
	now         func() time.Time
}

// NewLedger creates a Ledger backed by store.
func NewLedger(store BalanceStore) *Ledger {
	return &Ledger{
		store:       store,
		locks:       make(map[string]*principalLock),
		maxAttempts: defaultMaxAttempts,
		now:         time.Now,
	}
}

// Balance returns the principal's current balance.
func (l *Ledger) Balance(ctx context.Context, principal string) (int64, error) {
	return l.store.Get(ctx, principal)
}

// Reserve checks that the principal can afford amount and debits it in the
// same atomic step.
func (l *Ledger) Reserve(ctx context.Context, principal string, amount int64) (*Reservation, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("reserve %d: %w", amount, ErrInvalidAmount)
	}

	balance, err := l.update(ctx, principal, func(cur int64) (int64, error) {
		if cur < amount {
			return 0, fmt.Errorf("%w: balance %d, need %d", ErrInsufficientCredit, cur, amount)
		}
		return cur - amount, nil
	})
	if err != nil {
		return nil, err
	}

	return &Reservation{
		ID:          uuid.NewString(),
		PrincipalID: principal,
		Amount:      amount,
		CreatedAt:   l.now(),
		Balance:     balance,
	}, nil
}

// Credit adds amount to the principal's balance and returns the new balance.
func (l *Ledger) Credit(ctx context.Context, principal string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit %d: %w", amount, ErrInvalidAmount)
	}
	return l.update(ctx, principal, func(cur int64) (int64, error) {
		if cur > math.MaxInt64-amount {
			return 0, fmt.Errorf("credit %d overflows balance %d: %w", amount, cur, ErrInvalidAmount)
		}
		return cur + amount, nil
	})
}

// Refund restores a reservation's amount. Refunding the same reservation
// twice returns ErrAlreadyRefunded and changes nothing.
func (l *Ledger) Refund(ctx context.Context, r *Reservation) error {
	if !r.refunded.CompareAndSwap(false, true) {
		return ErrAlreadyRefunded
	}
	if _, err := l.Credit(ctx, r.PrincipalID, r.Amount); err != nil {
		r.refunded.Store(false)
		return fmt.Errorf("refund reservation %s: %w", r.ID, err)
	}
	return nil
}

// update applies fn to the principal's balance inside the principal's
// critical section, committing with compare-and-swap.
func (l *Ledger) update(ctx context.Context, principal string, fn func(cur int64) (int64, error)) (int64, error) {
	unlock := l.lock(principal)
	defer unlock()

	for range l.maxAttempts {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		cur, err := l.store.Get(ctx, principal)
		if err != nil {
			return 0, err
		}
		next, err := fn(cur)
		if err != nil {
			return 0, err
		}
		if next < 0 {
			return 0, fmt.Errorf("%w: balance would become %d", ErrInsufficientCredit, next)
		}

		ok, err := l.store.CompareAndSwap(ctx, principal, cur, next)
		if err != nil {
			return 0, err
		}
		if ok {
			return next, nil
		}
	}
	return 0, fmt.Errorf("principal %s: %w", principal, ErrContention)
}

// principalLock is reference counted so the lock table only holds
// principals with an operation in flight.
type principalLock struct {
	mu   sync.Mutex
	refs int
}

func (l *Ledger) lock(principal string) func() {
	l.locksMu.Lock()
	pl, ok := l.locks[principal]
	if !ok {
		pl = &principalLock{}
		l.locks[principal] = pl
	}
	pl.refs++
	l.locksMu.Unlock()

	pl.mu.Lock()
	return func() {
		pl.mu.Unlock()
		l.locksMu.Lock()
		pl.refs--
		if pl.refs == 0 {
			delete(l.locks, principal)
		}
		l.locksMu.Unlock()
	}
}

