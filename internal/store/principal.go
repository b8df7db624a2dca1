package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/docquiz/internal/credits"
)

// PrincipalRepo is the principal registry.
type PrincipalRepo struct {
	db      *sql.DB
	dialect string
}

// Create registers a principal with a starting balance.
func (r *PrincipalRepo) Create(ctx context.Context, id string, balance int64) (*Principal, error) {
	if id == "" {
		return nil, fmt.Errorf("principal id is required")
	}
	if balance < 0 {
		return nil, credits.ErrInvalidAmount
	}

	existing, err := r.Get(ctx, id)
	if err != nil && !errors.Is(err, credits.ErrUnknownPrincipal) {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrPrincipalExists, id)
	}

	p := &Principal{ID: id, Balance: balance, CreatedAt: time.Now().UTC()}
	query, args := builder(r.dialect).Insert("principals").
		Columns("id", "balance", "created_at").
		Values(p.ID, p.Balance, p.CreatedAt).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("save principal: %w", err)
	}
	return p, nil
}

// Get returns the principal or credits.ErrUnknownPrincipal.
func (r *PrincipalRepo) Get(ctx context.Context, id string) (*Principal, error) {
	query, args := builder(r.dialect).Select("id", "balance", "created_at").
		From(builder(r.dialect).Table("principals")).
		Where(entsql.EQ("id", id)).
		Query()

	var p Principal
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&p.ID, &p.Balance, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", credits.ErrUnknownPrincipal, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query principal: %w", err)
	}
	return &p, nil
}

// BalanceRepo stores balances in the principals table. It implements
// credits.BalanceStore with a conditional UPDATE, so ledgers in separate
// processes sharing one database stay consistent.
type BalanceRepo struct {
	db      *sql.DB
	dialect string
}

var _ credits.BalanceStore = (*BalanceRepo)(nil)

func (r *BalanceRepo) Get(ctx context.Context, principal string) (int64, error) {
	query, args := builder(r.dialect).Select("balance").
		From(builder(r.dialect).Table("principals")).
		Where(entsql.EQ("id", principal)).
		Query()

	var balance int64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, credits.ErrUnknownPrincipal
	}
	if err != nil {
		return 0, fmt.Errorf("query balance: %w", err)
	}
	return balance, nil
}

func (r *BalanceRepo) CompareAndSwap(ctx context.Context, principal string, prev, next int64) (bool, error) {
	query, args := builder(r.dialect).Update("principals").
		Set("balance", next).
		Where(entsql.And(
			entsql.EQ("id", principal),
			entsql.EQ("balance", prev),
		)).
		Query()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update balance: %w", err)
	}
	return n == 1, nil
}
