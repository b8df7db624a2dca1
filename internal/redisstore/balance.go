package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/abhisek/docquiz/internal/credits"
)

// casScript swaps the balance only if it still holds the expected value.
// Returns -1 for an unknown principal, 0 for a lost swap, 1 on success.
var casScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if not cur then
	return -1
end
if tonumber(cur) ~= tonumber(ARGV[1]) then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2])
return 1
`)

// BalanceStore keeps principal balances in Redis strings:
//
//	SET docquiz:balance:{principal} {balance}
//
// It implements credits.BalanceStore; the swap runs as a Lua script so it
// is atomic across every process sharing the Redis instance.
type BalanceStore struct {
	client *redis.Client
}

var _ credits.BalanceStore = (*BalanceStore)(nil)

// NewBalanceStore creates a BalanceStore on client.
func NewBalanceStore(client *redis.Client) *BalanceStore {
	return &BalanceStore{client: client}
}

// Open registers a principal with a starting balance. It reports false if
// the principal already existed, in which case nothing changes.
func (s *BalanceStore) Open(ctx context.Context, principal string, balance int64) (bool, error) {
	if balance < 0 {
		return false, credits.ErrInvalidAmount
	}
	ok, err := s.client.SetNX(ctx, balanceKey(principal), balance, 0).Result()
	if err != nil {
		return false, fmt.Errorf("open balance: %w", err)
	}
	return ok, nil
}

func (s *BalanceStore) Get(ctx context.Context, principal string) (int64, error) {
	v, err := s.client.Get(ctx, balanceKey(principal)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, credits.ErrUnknownPrincipal
	}
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return v, nil
}

func (s *BalanceStore) CompareAndSwap(ctx context.Context, principal string, prev, next int64) (bool, error) {
	res, err := casScript.Run(ctx, s.client, []string{balanceKey(principal)}, prev, next).Int()
	if err != nil {
		return false, fmt.Errorf("swap balance: %w", err)
	}
	switch res {
	case 1:
		return true, nil
	case -1:
		return false, credits.ErrUnknownPrincipal
	default:
		return false, nil
	}
}

func balanceKey(principal string) string {
	return "docquiz:balance:" + principal
}
