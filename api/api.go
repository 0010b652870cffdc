// Package api exposes a paywall Ledger over HTTP.
//
// The acting identity of every request is taken from the X-Paywall-Actor
// header. Authentication is left to middleware mounted in front of the
// router.
package api

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/xraph/paywall"
	"github.com/xraph/paywall/content"
	"github.com/xraph/paywall/migration"
	"github.com/xraph/paywall/sale"
	"github.com/xraph/paywall/treasury"
	"github.com/xraph/paywall/types"
)

// ActorHeader carries the identity a request acts as.
const ActorHeader = "X-Paywall-Actor"

// Handler serves the ledger's HTTP routes.
type Handler struct {
	ledger *paywall.Ledger
	logger *slog.Logger
	clock  func() time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger used for server-side failures.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithClock sets the time source passed to time-dependent ledger calls.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.clock = now }
}

// New creates a Handler over l.
func New(l *paywall.Ledger, opts ...Option) *Handler {
	h := &Handler{
		ledger: l,
		logger: slog.Default(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the router for all ledger endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/content", func(r chi.Router) {
		r.Post("/", h.Register)
		r.Get("/", h.ListContent)
		r.Get("/{id}", h.Describe)
		r.Put("/{id}/price", h.SetPrice)
		r.Get("/{id}/royalty", h.RoyaltyQuote)
		r.Post("/{id}/royalty", h.ReportRoyalty)
		r.Get("/{id}/access", h.CheckAccess)
		r.Post("/{id}/purchase", h.Purchase)
		r.Post("/{id}/migrate", h.Migrate)
	})

	r.Get("/purchases", h.ListPurchases)
	r.Get("/fees", h.PlatformFees)
	r.Post("/fees/withdraw", h.WithdrawFees)
	r.Get("/withdrawals", h.ListWithdrawals)
	r.Post("/receipts", h.Credit)
	r.Post("/receipts/reclaim", h.Reclaim)

	return r
}

// RegisterRequest is the request body for registering content.
type RegisterRequest struct {
	ContentHash          string      `json:"content_hash"`
	Price                types.Money `json:"price"`
	RoyaltyPercentage    uint8       `json:"royalty_percentage"`
	IsSubscription       bool        `json:"is_subscription"`
	SubscriptionDuration string      `json:"subscription_duration,omitempty"`
}

// PriceRequest is the request body for changing a price.
type PriceRequest struct {
	Price types.Money `json:"price"`
}

// RoyaltyRequest is the request body for reporting a settled royalty.
type RoyaltyRequest struct {
	SalePrice types.Money `json:"sale_price"`
}

// MigrateRequest is the request body for moving custody to another domain.
type MigrateRequest struct {
	Holder      string `json:"holder"`
	Recipient   string `json:"recipient"`
	Destination string `json:"destination"`
}

// FeesResponse reports the fees waiting to be withdrawn.
type FeesResponse struct {
	Fees types.Money `json:"fees"`
}

// Register creates a content item owned by the acting identity.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.badRequest(w, r, "invalid request body")
		return
	}

	var duration time.Duration
	if req.SubscriptionDuration != "" {
		d, err := time.ParseDuration(req.SubscriptionDuration)
		if err != nil {
			h.badRequest(w, r, "invalid subscription_duration")
			return
		}
		duration = d
	}

	item, err := h.ledger.Register(r.Context(), paywall.RegisterRequest{
		Creator:              actor(r),
		ContentHash:          req.ContentHash,
		Price:                req.Price,
		RoyaltyPercentage:    req.RoyaltyPercentage,
		IsSubscription:       req.IsSubscription,
		SubscriptionDuration: duration,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, item)
}

// ListContent lists registered content, optionally filtered by creator.
func (h *Handler) ListContent(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := h.page(w, r)
	if !ok {
		return
	}

	items, err := h.ledger.ListContent(r.Context(), content.ListOpts{
		Creator: r.URL.Query().Get("creator"),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, items)
}

// Describe returns one content item.
func (h *Handler) Describe(w http.ResponseWriter, r *http.Request) {
	contentID, ok := h.contentID(w, r)
	if !ok {
		return
	}

	item, err := h.ledger.Describe(r.Context(), contentID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, item)
}

// SetPrice changes the price of content the acting identity created.
func (h *Handler) SetPrice(w http.ResponseWriter, r *http.Request) {
	contentID, ok := h.contentID(w, r)
	if !ok {
		return
	}

	var req PriceRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.badRequest(w, r, "invalid request body")
		return
	}

	if err := h.ledger.SetPrice(r.Context(), contentID, req.Price, actor(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RoyaltyQuote quotes the royalty owed on a resale. The sale price comes
// from the amount and denom query parameters.
func (h *Handler) RoyaltyQuote(w http.ResponseWriter, r *http.Request) {
	contentID, ok := h.contentID(w, r)
	if !ok {
		return
	}

	amount, err := strconv.ParseInt(r.URL.Query().Get("amount"), 10, 64)
	if err != nil {
		h.badRequest(w, r, "invalid amount")
		return
	}

	quote, err := h.ledger.RoyaltyQuote(r.Context(), contentID, types.New(amount, r.URL.Query().Get("denom")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, quote)
}

// ReportRoyalty records that the acting identity settled a royalty.
func (h *Handler) ReportRoyalty(w http.ResponseWriter, r *http.Request) {
	contentID, ok := h.contentID(w, r)
	if !ok {
		return
	}

	var req RoyaltyRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.badRequest(w, r, "invalid request body")
		return
	}

	quote, err := h.ledger.ReportRoyaltyPaid(r.Context(), contentID, actor(r), req.SalePrice)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, quote)
}

// CheckAccess reports whether the identity in the actor query parameter,
// or the acting identity when absent, may consume the content now.
func (h *Handler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	contentID, ok := h.contentID(w, r)
	if !ok {
		return
	}

	who := r.URL.Query().Get("actor")
	if who == "" {
		who = actor(r)
	}

	result, err := h.ledger.CheckAccess(r.Context(), contentID, who, h.clock())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// Purchase buys the content for the acting identity.
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	contentID, ok := h.contentID(w, r)
	if !ok {
		return
	}

	p, err := h.ledger.PurchaseContent(r.Context(), contentID, actor(r), h.clock())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, p)
}

// Migrate debits custody and sends the receipt to another domain. The
// acting identity must hold the custody token or be approved by the holder.
func (h *Handler) Migrate(w http.ResponseWriter, r *http.Request) {
	contentID, ok := h.contentID(w, r)
	if !ok {
		return
	}

	var req MigrateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.badRequest(w, r, "invalid request body")
		return
	}

	receipt, err := h.ledger.Migrate(r.Context(), migration.DebitRequest{
		Caller:      actor(r),
		Holder:      req.Holder,
		ContentID:   contentID,
		Recipient:   req.Recipient,
		Destination: req.Destination,
	}, h.clock())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, receipt)
}

// Credit applies a receipt delivered out of band. The body is an encoded
// receipt envelope.
func (h *Handler) Credit(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		h.badRequest(w, r, "unreadable request body")
		return
	}

	receipt, err := migration.Decode(data)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.ledger.Deliver(r.Context(), receipt); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reclaim restores custody on this domain for a receipt it issued that was
// never credited. The body is the encoded receipt; the actor must be the
// owner.
func (h *Handler) Reclaim(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		h.badRequest(w, r, "unreadable request body")
		return
	}

	receipt, err := migration.Decode(data)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.ledger.Reclaim(r.Context(), receipt, actor(r), h.clock()); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPurchases lists purchase records.
func (h *Handler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := h.page(w, r)
	if !ok {
		return
	}

	opts := sale.ListOpts{
		Buyer:  r.URL.Query().Get("buyer"),
		Limit:  limit,
		Offset: offset,
	}
	if raw := r.URL.Query().Get("content_id"); raw != "" {
		contentID, err := content.ParseID(raw)
		if err != nil {
			h.badRequest(w, r, "invalid content_id")
			return
		}
		opts.ContentID = contentID
	}

	purchases, err := h.ledger.Purchases(r.Context(), opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, purchases)
}

// PlatformFees reports the fees accumulated since the last withdrawal.
func (h *Handler) PlatformFees(w http.ResponseWriter, r *http.Request) {
	fees, err := h.ledger.PlatformFees(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, FeesResponse{Fees: fees})
}

// WithdrawFees sweeps accumulated fees to the treasury. Only the ledger
// owner may call it.
func (h *Handler) WithdrawFees(w http.ResponseWriter, r *http.Request) {
	wd, err := h.ledger.WithdrawPlatformFees(r.Context(), actor(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, wd)
}

// ListWithdrawals lists past fee withdrawals.
func (h *Handler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := h.page(w, r)
	if !ok {
		return
	}

	withdrawals, err := h.ledger.Withdrawals(r.Context(), treasury.ListOpts{Limit: limit, Offset: offset})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, withdrawals)
}

func actor(r *http.Request) string {
	return r.Header.Get(ActorHeader)
}

func (h *Handler) contentID(w http.ResponseWriter, r *http.Request) (content.ID, bool) {
	contentID, err := content.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.badRequest(w, r, "invalid content id")
		return 0, false
	}
	return contentID, true
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	q := r.URL.Query()
	for _, p := range []struct {
		key string
		dst *int
	}{{"limit", &limit}, {"offset", &offset}} {
		raw := q.Get(p.key)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			h.badRequest(w, r, "invalid "+p.key)
			return 0, 0, false
		}
		*p.dst = v
	}
	return limit, offset, true
}
