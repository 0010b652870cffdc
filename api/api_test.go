package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/xraph/paywall"
	"github.com/xraph/paywall/api"
	"github.com/xraph/paywall/migration"
	"github.com/xraph/paywall/payment"
	"github.com/xraph/paywall/store/memory"
	"github.com/xraph/paywall/transport"
	"github.com/xraph/paywall/types"
)

var t0 = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type server struct {
	t     *testing.T
	srv   *httptest.Server
	token *payment.MemoryToken
}

func newServer(t *testing.T, opts ...paywall.Option) *server {
	t.Helper()

	token := payment.NewMemoryToken("usdc")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]paywall.Option{
		paywall.WithLogger(logger),
		paywall.WithOwner("admin"),
		paywall.WithClock(func() time.Time { return t0 }),
	}, opts...)

	l, err := paywall.New(memory.New(), token, opts...)
	if err != nil {
		t.Fatal(err)
	}

	h := api.New(l, api.WithLogger(logger), api.WithClock(func() time.Time { return t0 }))
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)

	return &server{t: t, srv: srv, token: token}
}

func (s *server) fund(account string, amount int64) {
	s.t.Helper()
	if err := s.token.Mint(account, types.New(amount, "usdc")); err != nil {
		s.t.Fatal(err)
	}
	if err := s.token.Approve(account, paywall.DefaultAccount, types.New(amount, "usdc")); err != nil {
		s.t.Fatal(err)
	}
}

func (s *server) do(method, path, actor string, body any, out any) int {
	s.t.Helper()

	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		rdr = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			s.t.Fatal(err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, s.srv.URL+path, rdr)
	if err != nil {
		s.t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set(api.ActorHeader, actor)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		s.t.Fatal(err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			s.t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

type item struct {
	ID                uint64 `json:"id"`
	Creator           string `json:"creator"`
	RoyaltyPercentage uint8  `json:"royalty_percentage"`
	Price             struct {
		Amount int64  `json:"amount"`
		Denom  string `json:"denom"`
	} `json:"price"`
}

func (s *server) register(creator string, price int64, extra map[string]any) item {
	s.t.Helper()
	body := map[string]any{
		"content_hash":       "sha256:abc",
		"price":              map[string]any{"amount": price, "denom": "usdc"},
		"royalty_percentage": 10,
	}
	for k, v := range extra {
		body[k] = v
	}

	var it item
	if code := s.do(http.MethodPost, "/content", creator, body, &it); code != http.StatusCreated {
		s.t.Fatalf("register: status %d", code)
	}
	return it
}

func TestPurchaseFlow(t *testing.T) {
	s := newServer(t)
	it := s.register("carol", 100, nil)
	if it.ID != 1 || it.Creator != "carol" || it.Price.Amount != 100 {
		t.Fatalf("unexpected item: %+v", it)
	}

	s.fund("bob", 1000)

	var p struct {
		Buyer          string `json:"buyer"`
		PlatformFee    struct{ Amount int64 } `json:"platform_fee"`
		CreatorPayment struct{ Amount int64 } `json:"creator_payment"`
	}
	if code := s.do(http.MethodPost, "/content/1/purchase", "bob", nil, &p); code != http.StatusCreated {
		t.Fatalf("purchase: status %d", code)
	}
	if p.Buyer != "bob" || p.PlatformFee.Amount != 5 || p.CreatorPayment.Amount != 95 {
		t.Fatalf("unexpected purchase: %+v", p)
	}

	var access struct {
		Allowed bool `json:"allowed"`
	}
	s.do(http.MethodGet, "/content/1/access", "bob", nil, &access)
	if !access.Allowed {
		t.Error("bob should have access after purchase")
	}
	s.do(http.MethodGet, "/content/1/access?actor=alice", "bob", nil, &access)
	if access.Allowed {
		t.Error("alice should not have access")
	}

	var quote struct {
		Receiver string               `json:"receiver"`
		Amount   struct{ Amount int64 } `json:"amount"`
	}
	if code := s.do(http.MethodGet, "/content/1/royalty?amount=200&denom=usdc", "", nil, &quote); code != http.StatusOK {
		t.Fatalf("royalty: status %d", code)
	}
	if quote.Receiver != "carol" || quote.Amount.Amount != 20 {
		t.Errorf("unexpected quote: %+v", quote)
	}

	var fees api.FeesResponse
	s.do(http.MethodGet, "/fees", "", nil, &fees)
	if fees.Fees.Amount != 5 {
		t.Errorf("fees = %v, want 5", fees.Fees)
	}

	var purchases []map[string]any
	s.do(http.MethodGet, "/purchases?buyer=bob", "", nil, &purchases)
	if len(purchases) != 1 {
		t.Errorf("purchases = %d, want 1", len(purchases))
	}
}

func TestErrorMapping(t *testing.T) {
	s := newServer(t)
	s.register("carol", 100, nil)

	tests := []struct {
		name   string
		method string
		path   string
		actor  string
		body   any
		status int
		code   string
	}{
		{"unknown content", http.MethodGet, "/content/9", "", nil, http.StatusNotFound, "not_found"},
		{"bad id", http.MethodGet, "/content/x", "", nil, http.StatusBadRequest, "bad_request"},
		{"zero price", http.MethodPost, "/content", "carol", map[string]any{"content_hash": "h", "price": map[string]any{"amount": 0}}, http.StatusBadRequest, "invalid_input"},
		{"price by stranger", http.MethodPut, "/content/1/price", "mallory", map[string]any{"price": map[string]any{"amount": 5}}, http.StatusForbidden, "unauthorized"},
		{"no funds", http.MethodPost, "/content/1/purchase", "bob", nil, http.StatusPaymentRequired, "insufficient_funds"},
		{"withdraw by stranger", http.MethodPost, "/fees/withdraw", "bob", nil, http.StatusForbidden, "unauthorized"},
		{"migrate without transport", http.MethodPost, "/content/1/migrate", "carol", map[string]any{"holder": "carol", "recipient": "carol", "destination": "b"}, http.StatusNotImplemented, "no_transport"},
		{"malformed receipt", http.MethodPost, "/receipts", "", []byte(`{"v":1}`), http.StatusBadRequest, "receipt_malformed"},
		{"bad limit", http.MethodGet, "/purchases?limit=-1", "", nil, http.StatusBadRequest, "bad_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp api.ErrorResponse
			status := s.do(tt.method, tt.path, tt.actor, tt.body, &resp)
			if status != tt.status {
				t.Errorf("status = %d, want %d (%+v)", status, tt.status, resp)
			}
			if resp.Code != tt.code {
				t.Errorf("code = %q, want %q", resp.Code, tt.code)
			}
		})
	}
}

func TestSetPriceAndWithdraw(t *testing.T) {
	s := newServer(t)
	s.register("carol", 100, nil)

	if code := s.do(http.MethodPut, "/content/1/price", "carol", map[string]any{"price": map[string]any{"amount": 200, "denom": "usdc"}}, nil); code != http.StatusNoContent {
		t.Fatalf("set price: status %d", code)
	}

	var it item
	s.do(http.MethodGet, "/content/1", "", nil, &it)
	if it.Price.Amount != 200 {
		t.Fatalf("price = %d, want 200", it.Price.Amount)
	}

	s.fund("bob", 200)
	s.do(http.MethodPost, "/content/1/purchase", "bob", nil, nil)

	var wd struct {
		Treasury string               `json:"treasury"`
		Amount   struct{ Amount int64 } `json:"amount"`
	}
	if code := s.do(http.MethodPost, "/fees/withdraw", "admin", nil, &wd); code != http.StatusOK {
		t.Fatalf("withdraw: status %d", code)
	}
	if wd.Treasury != "admin" || wd.Amount.Amount != 10 {
		t.Errorf("unexpected withdrawal: %+v", wd)
	}

	var withdrawals []map[string]any
	s.do(http.MethodGet, "/withdrawals", "", nil, &withdrawals)
	if len(withdrawals) != 1 {
		t.Errorf("withdrawals = %d, want 1", len(withdrawals))
	}
}

func TestMigrateAndCredit(t *testing.T) {
	bus := transport.NewBus()

	var delivered []byte
	bus.Attach("b", transport.SinkFunc(func(_ context.Context, r *migration.Receipt) error {
		data, err := migration.Encode(r)
		delivered = data
		return err
	}))

	src := newServer(t, paywall.WithDomain("a"), paywall.WithTransport(bus), paywall.WithTrustedDomains("b"))
	src.register("carol", 100, map[string]any{
		"is_subscription":       true,
		"subscription_duration": "720h",
	})

	src.fund("carol", 100)
	if code := src.do(http.MethodPost, "/content/1/purchase", "carol", nil, nil); code != http.StatusCreated {
		t.Fatalf("subscribe: status %d", code)
	}

	var receipt struct {
		ContentID   uint64        `json:"content_id"`
		Destination string        `json:"destination_domain"`
		Remaining   time.Duration `json:"remaining"`
	}
	code := src.do(http.MethodPost, "/content/1/migrate", "carol",
		api.MigrateRequest{Holder: "carol", Recipient: "dave", Destination: "b"}, &receipt)
	if code != http.StatusAccepted {
		t.Fatalf("migrate: status %d", code)
	}
	if receipt.ContentID != 1 || receipt.Destination != "b" || receipt.Remaining != 720*time.Hour {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}

	if code := src.do(http.MethodGet, "/content/1/purchase", "bob", nil, nil); code != http.StatusMethodNotAllowed {
		t.Errorf("GET purchase: status %d, want 405", code)
	}

	dst := newServer(t, paywall.WithDomain("b"), paywall.WithTrustedDomains("a"))
	if code := dst.do(http.MethodPost, "/receipts", "", delivered, nil); code != http.StatusNoContent {
		t.Fatalf("credit: status %d", code)
	}

	var access struct {
		Allowed bool `json:"allowed"`
	}
	dst.do(http.MethodGet, "/content/1/access", "dave", nil, &access)
	if !access.Allowed {
		t.Error("dave should hold the migrated subscription")
	}

	var resp api.ErrorResponse
	if code := dst.do(http.MethodPost, "/receipts", "", delivered, &resp); code != http.StatusConflict {
		t.Errorf("replay: status %d, want 409", code)
	}
	if resp.Code != "receipt_invalid" {
		t.Errorf("replay code = %q", resp.Code)
	}
}

func TestReclaimRejectedReceipt(t *testing.T) {
	bus := transport.NewBus()

	var delivered []byte
	bus.Attach("b", transport.SinkFunc(func(_ context.Context, r *migration.Receipt) error {
		data, err := migration.Encode(r)
		delivered = data
		return err
	}))

	src := newServer(t, paywall.WithDomain("a"), paywall.WithTransport(bus))
	src.register("carol", 100, nil)
	code := src.do(http.MethodPost, "/content/1/migrate", "carol",
		api.MigrateRequest{Holder: "carol", Recipient: "dave", Destination: "b"}, nil)
	if code != http.StatusAccepted {
		t.Fatalf("migrate: status %d", code)
	}

	// The destination does not trust the source.
	dst := newServer(t, paywall.WithDomain("b"))
	var resp api.ErrorResponse
	if code := dst.do(http.MethodPost, "/receipts", "", delivered, &resp); code != http.StatusConflict || resp.Code != "receipt_invalid" {
		t.Fatalf("credit from untrusted source: status %d, code %q", code, resp.Code)
	}

	if code := src.do(http.MethodPost, "/receipts/reclaim", "carol", delivered, nil); code != http.StatusForbidden {
		t.Errorf("reclaim by holder: status %d, want 403", code)
	}
	if code := src.do(http.MethodPost, "/receipts/reclaim", "admin", delivered, nil); code != http.StatusNoContent {
		t.Fatalf("reclaim: status %d", code)
	}

	var access struct {
		Allowed bool `json:"allowed"`
	}
	src.do(http.MethodGet, "/content/1/access", "carol", nil, &access)
	if !access.Allowed {
		t.Error("carol should hold the item again after reclaim")
	}

	if code := src.do(http.MethodPost, "/receipts/reclaim", "admin", delivered, nil); code != http.StatusConflict {
		t.Errorf("second reclaim: status %d, want 409", code)
	}
}
