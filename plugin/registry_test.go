package plugin_test

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/paywall/content"
	"github.com/xraph/paywall/plugin"
	"github.com/xraph/paywall/sale"
)

type counter struct {
	name      string
	purchases atomic.Int32
	fail      bool
	block     time.Duration
}

func (c *counter) Name() string { return c.name }

func (c *counter) OnContentPurchased(context.Context, *sale.Purchase) error {
	if c.block > 0 {
		time.Sleep(c.block)
	}
	c.purchases.Add(1)
	if c.fail {
		return errors.New("boom")
	}
	return nil
}

type nameOnly struct{}

func (nameOnly) Name() string { return "name-only" }

func newRegistry() *plugin.Registry {
	return plugin.NewRegistry().WithLogger(slog.New(slog.DiscardHandler))
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := newRegistry()

	if err := r.Register(&counter{name: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(nameOnly{}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&counter{name: "a"}); err == nil {
		t.Error("duplicate name accepted")
	}

	if r.Count() != 2 {
		t.Errorf("Count = %d, want 2", r.Count())
	}
	if r.Get("name-only") == nil || r.Get("missing") != nil {
		t.Error("Get returned the wrong plugin")
	}
	if got := r.List(); len(got) != 2 || got[0].Name() != "a" {
		t.Errorf("List = %v", got)
	}
}

func TestEmitDispatchesToImplementers(t *testing.T) {
	r := newRegistry()
	ok := &counter{name: "ok"}
	failing := &counter{name: "failing", fail: true}
	for _, p := range []plugin.Plugin{ok, failing, nameOnly{}} {
		if err := r.Register(p); err != nil {
			t.Fatal(err)
		}
	}

	r.EmitContentPurchased(context.Background(), &sale.Purchase{})
	r.EmitContentPurchased(context.Background(), &sale.Purchase{})
	// No plugin implements this hook.
	r.EmitContentRegistered(context.Background(), &content.Item{})

	if ok.purchases.Load() != 2 {
		t.Errorf("ok saw %d purchases, want 2", ok.purchases.Load())
	}
	if failing.purchases.Load() != 2 {
		t.Errorf("a failing plugin must still be called every time, got %d", failing.purchases.Load())
	}
}

func TestEmitTimesOutSlowPlugins(t *testing.T) {
	r := newRegistry().WithTimeout(10 * time.Millisecond)
	slow := &counter{name: "slow", block: time.Second}
	fast := &counter{name: "fast"}
	_ = r.Register(slow)
	_ = r.Register(fast)

	start := time.Now()
	r.EmitContentPurchased(context.Background(), &sale.Purchase{})
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("emit waited %v for a slow plugin", elapsed)
	}
	if fast.purchases.Load() != 1 {
		t.Error("fast plugin skipped after a slow one timed out")
	}
}

type ctxKey struct{}

type ctxRecorder struct {
	seen chan any
}

func (c *ctxRecorder) Name() string { return "ctx" }

func (c *ctxRecorder) OnContentPurchased(ctx context.Context, _ *sale.Purchase) error {
	c.seen <- ctx.Value(ctxKey{})
	return nil
}

func TestEmitDerivesHookContext(t *testing.T) {
	r := newRegistry().WithContextFunc(func(ctx context.Context) context.Context {
		return context.WithValue(ctx, ctxKey{}, "hook")
	})
	p := &ctxRecorder{seen: make(chan any, 1)}
	_ = r.Register(p)

	r.EmitContentPurchased(context.WithValue(context.Background(), ctxKey{}, "caller"), &sale.Purchase{})
	if got := <-p.seen; got != "hook" {
		t.Errorf("hook context value = %v, want hook", got)
	}
}
