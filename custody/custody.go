// Package custody defines the ownership-token registry the ledger relies on
// and ships an in-memory implementation.
package custody

import (
	"context"
	"errors"

	"github.com/xraph/paywall/content"
)

var (
	ErrNotMinted     = errors.New("custody: token not minted")
	ErrAlreadyMinted = errors.New("custody: token already minted")
	ErrNotHolder     = errors.New("custody: sender is not the holder")
	ErrEmptyAccount  = errors.New("custody: empty account")
)

// Registry tracks which account holds the custody token of each content item.
type Registry interface {
	// CurrentHolder returns ErrNotMinted when no token exists locally.
	CurrentHolder(ctx context.Context, contentID content.ID) (string, error)
	Mint(ctx context.Context, contentID content.ID, to string) error
	Burn(ctx context.Context, contentID content.ID) error
	Transfer(ctx context.Context, contentID content.ID, from, to string) error
	IsApprovedOrHolder(ctx context.Context, contentID content.ID, actor string) (bool, error)
}
