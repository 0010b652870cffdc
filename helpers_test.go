package paywall_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/xraph/paywall"
	"github.com/xraph/paywall/content"
	"github.com/xraph/paywall/custody"
	"github.com/xraph/paywall/payment"
	"github.com/xraph/paywall/store/memory"
	"github.com/xraph/paywall/types"
)

var t0 = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func usdc(n int64) types.Money { return types.New(n, "usdc") }

// recordingToken wraps a MemoryToken so tests can observe and break
// individual transfers.
type recordingToken struct {
	*payment.MemoryToken

	mu             sync.Mutex
	log            []string
	failTransferTo string
	delay          time.Duration
	onTransferFrom func(ctx context.Context)
}

func (t *recordingToken) record(entry string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.log = append(t.log, entry)
}

func (t *recordingToken) entries() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.log...)
}

func (t *recordingToken) Transfer(ctx context.Context, from, to string, amount types.Money) error {
	if t.failTransferTo != "" && to == t.failTransferTo {
		return errors.New("token paused")
	}
	t.record(to)
	return t.MemoryToken.Transfer(ctx, from, to, amount)
}

func (t *recordingToken) TransferFrom(ctx context.Context, spender, from, to string, amount types.Money) error {
	if t.onTransferFrom != nil {
		t.onTransferFrom(ctx)
	}
	t.record(from)
	if t.delay > 0 {
		time.Sleep(t.delay)
	}
	return t.MemoryToken.TransferFrom(ctx, spender, from, to, amount)
}

type fixture struct {
	ctx   context.Context
	l     *paywall.Ledger
	token *recordingToken
	book  *custody.Book
	store *memory.Store
}

func newFixture(t *testing.T, opts ...paywall.Option) *fixture {
	t.Helper()
	return newFixtureWithToken(t, &recordingToken{MemoryToken: payment.NewMemoryToken("usdc")}, opts...)
}

func newFixtureWithToken(t *testing.T, token *recordingToken, opts ...paywall.Option) *fixture {
	t.Helper()

	f := &fixture{
		ctx:   context.Background(),
		token: token,
		book:  custody.NewBook(),
		store: memory.New(),
	}

	base := []paywall.Option{
		paywall.WithLogger(slog.New(slog.DiscardHandler)),
		paywall.WithOwner("platform"),
		paywall.WithTreasury("treasury"),
		paywall.WithPlatformFee(5),
		paywall.WithCustody(f.book),
	}

	l, err := paywall.New(f.store, token, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := l.Start(f.ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = l.Stop() })

	f.l = l
	return f
}

// fund gives account n tokens and approves the ledger to spend them.
func (f *fixture) fund(t *testing.T, account string, n int64) {
	t.Helper()
	if err := f.token.Mint(account, usdc(n)); err != nil {
		t.Fatal(err)
	}
	if err := f.token.Approve(account, f.l.Account(), usdc(n)); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) balance(t *testing.T, account string) int64 {
	t.Helper()
	m, err := f.token.BalanceOf(f.ctx, account)
	if err != nil {
		t.Fatal(err)
	}
	return m.Amount
}

func (f *fixture) register(t *testing.T, req paywall.RegisterRequest) *content.Item {
	t.Helper()
	if req.Creator == "" {
		req.Creator = "alice"
	}
	if req.ContentHash == "" {
		req.ContentHash = "ipfs://QmContent"
	}
	if req.Price.Amount == 0 {
		req.Price = usdc(100)
	}
	item, err := f.l.Register(f.ctx, req)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return item
}

func (f *fixture) hasAccess(t *testing.T, contentID content.ID, actor string, now time.Time) bool {
	t.Helper()
	ok, err := f.l.HasAccess(f.ctx, contentID, actor, now)
	if err != nil {
		t.Fatalf("HasAccess(%d, %s): %v", contentID, actor, err)
	}
	return ok
}
