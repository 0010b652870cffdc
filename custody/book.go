package custody

import (
	"context"
	"sync"

	"github.com/xraph/paywall/content"
)

var _ Registry = (*Book)(nil)

// Book is an in-memory Registry. Approvals are per token and are cleared
// whenever the token moves or is burned.
type Book struct {
	mu        sync.RWMutex
	holders   map[content.ID]string
	approvals map[content.ID]map[string]bool
}

func NewBook() *Book {
	return &Book{
		holders:   make(map[content.ID]string),
		approvals: make(map[content.ID]map[string]bool),
	}
}

func (b *Book) CurrentHolder(_ context.Context, contentID content.ID) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	holder, ok := b.holders[contentID]
	if !ok {
		return "", ErrNotMinted
	}
	return holder, nil
}

func (b *Book) Mint(_ context.Context, contentID content.ID, to string) error {
	if to == "" {
		return ErrEmptyAccount
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.holders[contentID]; ok {
		return ErrAlreadyMinted
	}
	b.holders[contentID] = to
	return nil
}

func (b *Book) Burn(_ context.Context, contentID content.ID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.holders[contentID]; !ok {
		return ErrNotMinted
	}
	delete(b.holders, contentID)
	delete(b.approvals, contentID)
	return nil
}

func (b *Book) Transfer(_ context.Context, contentID content.ID, from, to string) error {
	if to == "" {
		return ErrEmptyAccount
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	holder, ok := b.holders[contentID]
	if !ok {
		return ErrNotMinted
	}
	if holder != from {
		return ErrNotHolder
	}
	b.holders[contentID] = to
	delete(b.approvals, contentID)
	return nil
}

func (b *Book) IsApprovedOrHolder(_ context.Context, contentID content.ID, actor string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	holder, ok := b.holders[contentID]
	if !ok {
		return false, ErrNotMinted
	}
	return holder == actor || b.approvals[contentID][actor], nil
}

// Approve lets operator act on the holder's behalf for one token.
func (b *Book) Approve(_ context.Context, contentID content.ID, holder, operator string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	current, ok := b.holders[contentID]
	if !ok {
		return ErrNotMinted
	}
	if current != holder {
		return ErrNotHolder
	}
	if b.approvals[contentID] == nil {
		b.approvals[contentID] = make(map[string]bool)
	}
	b.approvals[contentID][operator] = true
	return nil
}
