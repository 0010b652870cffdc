package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/paywall"
	"github.com/xraph/paywall/access"
	"github.com/xraph/paywall/content"
	"github.com/xraph/paywall/id"
	"github.com/xraph/paywall/sale"
	paywallstore "github.com/xraph/paywall/store"
	"github.com/xraph/paywall/treasury"
	"github.com/xraph/paywall/types"
)

// compile-time interface check
var _ paywallstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("paywall/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("paywall/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Content Store ====================

func (s *Store) NextContentID(ctx context.Context, r content.IDRange) (content.ID, error) {
	var next int64
	err := s.pg.NewRaw(`
		SELECT COALESCE(MAX(id), $1::bigint - 1) + 1 FROM paywall_contents WHERE id BETWEEN $1 AND $2
	`, int64(r.First), int64(r.Last)).Scan(ctx, &next)
	if err != nil {
		return 0, err
	}
	return content.ID(next), nil
}

func (s *Store) CreateContent(ctx context.Context, item *content.Item) error {
	m := toContentModel(item)
	res, err := s.pg.NewInsert(m).
		OnConflict("(id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectInserted(res, fmt.Sprintf("content %d", item.ID))
}

func (s *Store) GetContent(ctx context.Context, contentID content.ID) (*content.Item, error) {
	m := new(contentModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", int64(contentID)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, paywall.ErrContentNotFound
		}
		return nil, err
	}
	return fromContentModel(m), nil
}

func (s *Store) ListContent(ctx context.Context, opts content.ListOpts) ([]*content.Item, error) {
	var models []contentModel
	q := s.pg.NewSelect(&models)

	if opts.Creator != "" {
		q = q.Where("creator = $1", opts.Creator)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*content.Item, len(models))
	for i := range models {
		result[i] = fromContentModel(&models[i])
	}
	return result, nil
}

func (s *Store) UpdateContentPrice(ctx context.Context, contentID content.ID, price types.Money) error {
	res, err := s.pg.NewUpdate((*contentModel)(nil)).
		Set("price_amount = $1", price.Amount).
		Set("price_denom = $2", price.Denom).
		Set("updated_at = $3", now()).
		Where("id = $4", int64(contentID)).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return paywall.ErrContentNotFound
	}
	return nil
}

// ==================== Grant Store ====================

func (s *Store) GetGrant(ctx context.Context, contentID content.ID, holder string) (*access.Grant, error) {
	m := new(grantModel)
	err := s.pg.NewSelect(m).
		Where("content_id = $1", int64(contentID)).
		Where("holder = $2", holder).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, paywall.ErrGrantNotFound
		}
		return nil, err
	}
	return fromGrantModel(m), nil
}

func (s *Store) PutGrant(ctx context.Context, g *access.Grant) error {
	m := toGrantModel(g)
	_, err := s.pg.NewInsert(m).
		OnConflict("(content_id, holder) DO UPDATE").
		Set("expires_at = EXCLUDED.expires_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) DeleteGrant(ctx context.Context, contentID content.ID, holder string) error {
	_, err := s.pg.NewDelete((*grantModel)(nil)).
		Where("content_id = $1", int64(contentID)).
		Where("holder = $2", holder).
		Exec(ctx)
	return err
}

func (s *Store) ListGrants(ctx context.Context, contentID content.ID) ([]*access.Grant, error) {
	var models []grantModel
	err := s.pg.NewSelect(&models).
		Where("content_id = $1", int64(contentID)).
		OrderExpr("holder ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*access.Grant, len(models))
	for i := range models {
		result[i] = fromGrantModel(&models[i])
	}
	return result, nil
}

// ==================== Purchase Store ====================

func (s *Store) CreatePurchase(ctx context.Context, p *sale.Purchase) error {
	m := toPurchaseModel(p)
	res, err := s.pg.NewInsert(m).
		OnConflict("(id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectInserted(res, "purchase "+p.ID.String())
}

func (s *Store) GetPurchase(ctx context.Context, purchaseID id.PurchaseID) (*sale.Purchase, error) {
	m := new(purchaseModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", purchaseID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, paywall.ErrNotFound
		}
		return nil, err
	}
	return fromPurchaseModel(m)
}

func (s *Store) ListPurchases(ctx context.Context, opts sale.ListOpts) ([]*sale.Purchase, error) {
	var models []purchaseModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if opts.ContentID != 0 {
		argIdx++
		q = q.Where(fmt.Sprintf("content_id = $%d", argIdx), int64(opts.ContentID))
	}
	if opts.Buyer != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("buyer = $%d", argIdx), opts.Buyer)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*sale.Purchase, len(models))
	for i := range models {
		p, err := fromPurchaseModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

// ==================== Withdrawal Store ====================

func (s *Store) CreateWithdrawal(ctx context.Context, w *treasury.Withdrawal) error {
	m := toWithdrawalModel(w)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) ListWithdrawals(ctx context.Context, opts treasury.ListOpts) ([]*treasury.Withdrawal, error) {
	var models []withdrawalModel
	q := s.pg.NewSelect(&models)
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("withdrawn_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*treasury.Withdrawal, len(models))
	for i := range models {
		w, err := fromWithdrawalModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = w
	}
	return result, nil
}

// ==================== Receipt Store ====================

func (s *Store) ReceiptConsumed(ctx context.Context, receiptID id.ReceiptID) (bool, error) {
	var consumed bool
	err := s.pg.NewRaw(`
		SELECT EXISTS (SELECT 1 FROM paywall_consumed_receipts WHERE id = $1)
	`, receiptID.String()).Scan(ctx, &consumed)
	if err != nil {
		return false, err
	}
	return consumed, nil
}

func (s *Store) ConsumeReceipt(ctx context.Context, receiptID id.ReceiptID, consumedAt time.Time) error {
	m := &receiptModel{ID: receiptID.String(), ConsumedAt: consumedAt}
	res, err := s.pg.NewInsert(m).
		OnConflict("(id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectInserted(res, "receipt "+receiptID.String())
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// rowsResult is the part of an exec result the store inspects.
type rowsResult interface {
	RowsAffected() (int64, error)
}

// expectInserted maps an insert that hit ON CONFLICT DO NOTHING to
// ErrAlreadyExists.
func expectInserted(res rowsResult, what string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", paywall.ErrAlreadyExists, what)
	}
	return nil
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
