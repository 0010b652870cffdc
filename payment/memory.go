package payment

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/xraph/paywall/types"
)

var _ Token = (*MemoryToken)(nil)

// MemoryToken is an in-process Token.
type MemoryToken struct {
	mu         sync.Mutex
	denom      string
	balances   map[string]int64
	allowances map[string]map[string]int64
}

func NewMemoryToken(denom string) *MemoryToken {
	return &MemoryToken{
		denom:      strings.ToLower(denom),
		balances:   make(map[string]int64),
		allowances: make(map[string]map[string]int64),
	}
}

func (t *MemoryToken) Denom() string { return t.denom }

func (t *MemoryToken) BalanceOf(_ context.Context, account string) (types.Money, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return types.New(t.balances[account], t.denom), nil
}

// Mint credits account with newly issued funds.
func (t *MemoryToken) Mint(account string, amount types.Money) error {
	if err := t.check(amount); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[account] += amount.Amount
	return nil
}

// Approve sets the amount spender may move out of owner's balance.
func (t *MemoryToken) Approve(owner, spender string, amount types.Money) error {
	if err := t.check(amount); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.allowances[owner] == nil {
		t.allowances[owner] = make(map[string]int64)
	}
	t.allowances[owner][spender] = amount.Amount
	return nil
}

func (t *MemoryToken) Allowance(owner, spender string) types.Money {
	t.mu.Lock()
	defer t.mu.Unlock()
	return types.New(t.allowances[owner][spender], t.denom)
}

func (t *MemoryToken) Transfer(_ context.Context, from, to string, amount types.Money) error {
	if err := t.check(amount); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.move(from, to, amount.Amount)
}

func (t *MemoryToken) TransferFrom(_ context.Context, spender, from, to string, amount types.Money) error {
	if err := t.check(amount); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if spender != from {
		allowed := t.allowances[from][spender]
		if allowed < amount.Amount {
			return fmt.Errorf("%w: %s may spend %d of %s", ErrInsufficientAllowance, spender, allowed, from)
		}
		if err := t.move(from, to, amount.Amount); err != nil {
			return err
		}
		t.allowances[from][spender] = allowed - amount.Amount
		return nil
	}
	return t.move(from, to, amount.Amount)
}

func (t *MemoryToken) move(from, to string, amount int64) error {
	if t.balances[from] < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientBalance, from, t.balances[from], amount)
	}
	t.balances[from] -= amount
	t.balances[to] += amount
	return nil
}

func (t *MemoryToken) check(amount types.Money) error {
	if amount.Denom != t.denom {
		return fmt.Errorf("%w: %q != %q", ErrDenomMismatch, amount.Denom, t.denom)
	}
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}
