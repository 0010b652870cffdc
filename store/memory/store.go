// Package memory provides an in-memory store for tests and single-process
// deployments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/xraph/paywall"
	"github.com/xraph/paywall/access"
	"github.com/xraph/paywall/content"
	"github.com/xraph/paywall/id"
	"github.com/xraph/paywall/sale"
	"github.com/xraph/paywall/store"
	"github.com/xraph/paywall/treasury"
	"github.com/xraph/paywall/types"
)

var _ store.Store = (*Store)(nil)

type grantKey struct {
	contentID content.ID
	holder    string
}

type Store struct {
	mu     sync.RWMutex
	closed bool

	// Content storage
	contents map[content.ID]*content.Item

	// Grant storage
	grants map[grantKey]*access.Grant

	// Purchase storage, in insertion order
	purchases []*sale.Purchase

	// Withdrawal storage, in insertion order
	withdrawals []*treasury.Withdrawal

	// Consumed receipt ids
	receipts map[string]time.Time
}

func New() *Store {
	return &Store{
		contents: make(map[content.ID]*content.Item),
		grants:   make(map[grantKey]*access.Grant),
		receipts: make(map[string]time.Time),
	}
}

// Content Store implementation

func (s *Store) NextContentID(_ context.Context, r content.IDRange) (content.ID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, paywall.ErrStoreClosed
	}
	next := r.First
	for id := range s.contents {
		if r.Contains(id) && id >= next {
			next = id + 1
		}
	}
	return next, nil
}

func (s *Store) CreateContent(_ context.Context, item *content.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return paywall.ErrStoreClosed
	}
	if _, exists := s.contents[item.ID]; exists {
		return fmt.Errorf("%w: content %d", paywall.ErrAlreadyExists, item.ID)
	}

	cp := *item
	s.contents[item.ID] = &cp
	return nil
}

func (s *Store) GetContent(_ context.Context, contentID content.ID) (*content.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if item, ok := s.contents[contentID]; ok {
		cp := *item
		return &cp, nil
	}
	return nil, paywall.ErrContentNotFound
}

func (s *Store) ListContent(_ context.Context, opts content.ListOpts) ([]*content.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*content.Item, 0, len(s.contents))
	for _, item := range s.contents {
		if opts.Creator == "" || item.Creator == opts.Creator {
			cp := *item
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) UpdateContentPrice(_ context.Context, contentID content.ID, price types.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.contents[contentID]
	if !ok {
		return paywall.ErrContentNotFound
	}
	item.Price = price
	item.Touch()
	return nil
}

// Grant Store implementation

func (s *Store) GetGrant(_ context.Context, contentID content.ID, holder string) (*access.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if g, ok := s.grants[grantKey{contentID, holder}]; ok {
		cp := *g
		return &cp, nil
	}
	return nil, paywall.ErrGrantNotFound
}

func (s *Store) PutGrant(_ context.Context, g *access.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return paywall.ErrStoreClosed
	}
	cp := *g
	s.grants[grantKey{g.ContentID, g.Holder}] = &cp
	return nil
}

func (s *Store) DeleteGrant(_ context.Context, contentID content.ID, holder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.grants, grantKey{contentID, holder})
	return nil
}

func (s *Store) ListGrants(_ context.Context, contentID content.ID) ([]*access.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*access.Grant, 0)
	for k, g := range s.grants {
		if k.contentID == contentID {
			cp := *g
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Holder < result[j].Holder })
	return result, nil
}

// Purchase Store implementation

func (s *Store) CreatePurchase(_ context.Context, p *sale.Purchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return paywall.ErrStoreClosed
	}
	for _, existing := range s.purchases {
		if existing.ID.String() == p.ID.String() {
			return paywall.ErrAlreadyExists
		}
	}
	cp := *p
	s.purchases = append(s.purchases, &cp)
	return nil
}

func (s *Store) GetPurchase(_ context.Context, purchaseID id.PurchaseID) (*sale.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.purchases {
		if p.ID.String() == purchaseID.String() {
			cp := *p
			return &cp, nil
		}
	}
	return nil, paywall.ErrNotFound
}

func (s *Store) ListPurchases(_ context.Context, opts sale.ListOpts) ([]*sale.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*sale.Purchase, 0)
	for _, p := range s.purchases {
		if opts.ContentID != 0 && p.ContentID != opts.ContentID {
			continue
		}
		if opts.Buyer != "" && p.Buyer != opts.Buyer {
			continue
		}
		cp := *p
		result = append(result, &cp)
	}
	return paginate(result, opts.Offset, opts.Limit), nil
}

// Withdrawal Store implementation

func (s *Store) CreateWithdrawal(_ context.Context, w *treasury.Withdrawal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return paywall.ErrStoreClosed
	}
	cp := *w
	s.withdrawals = append(s.withdrawals, &cp)
	return nil
}

func (s *Store) ListWithdrawals(_ context.Context, opts treasury.ListOpts) ([]*treasury.Withdrawal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*treasury.Withdrawal, 0, len(s.withdrawals))
	for _, w := range s.withdrawals {
		cp := *w
		result = append(result, &cp)
	}
	return paginate(result, opts.Offset, opts.Limit), nil
}

// Receipt Store implementation

func (s *Store) ReceiptConsumed(_ context.Context, receiptID id.ReceiptID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.receipts[receiptID.String()]
	return ok, nil
}

func (s *Store) ConsumeReceipt(_ context.Context, receiptID id.ReceiptID, consumedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return paywall.ErrStoreClosed
	}
	key := receiptID.String()
	if _, ok := s.receipts[key]; ok {
		return fmt.Errorf("%w: receipt %s", paywall.ErrAlreadyExists, key)
	}
	s.receipts[key] = consumedAt
	return nil
}

// Core methods

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return paywall.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

func paginate[T any](items []T, offset, limit int) []T {
	start := min(offset, len(items))
	end := len(items)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return items[start:end]
}
