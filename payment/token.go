// Package payment defines the fungible payment token the ledger settles in
// and ships an in-memory implementation.
package payment

import (
	"context"
	"errors"

	"github.com/xraph/paywall/types"
)

var (
	ErrInsufficientBalance   = errors.New("payment: insufficient balance")
	ErrInsufficientAllowance = errors.New("payment: insufficient allowance")
	ErrDenomMismatch         = errors.New("payment: denomination mismatch")
	ErrInvalidAmount         = errors.New("payment: invalid amount")
)

// Token is a fungible balance ledger with delegated transfers.
type Token interface {
	Denom() string
	BalanceOf(ctx context.Context, account string) (types.Money, error)
	Transfer(ctx context.Context, from, to string, amount types.Money) error
	// TransferFrom moves amount from one account to another on behalf of
	// spender, consuming spender's allowance on from.
	TransferFrom(ctx context.Context, spender, from, to string, amount types.Money) error
}
