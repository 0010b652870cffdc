package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/paywall"
	"github.com/xraph/paywall/access"
	"github.com/xraph/paywall/content"
	"github.com/xraph/paywall/id"
	"github.com/xraph/paywall/sale"
	paywallstore "github.com/xraph/paywall/store"
	"github.com/xraph/paywall/treasury"
	"github.com/xraph/paywall/types"
)

// Collection name constants.
const (
	colContents    = "paywall_contents"
	colGrants      = "paywall_grants"
	colPurchases   = "paywall_purchases"
	colWithdrawals = "paywall_withdrawals"
	colReceipts    = "paywall_consumed_receipts"
)

// compile-time interface check
var _ paywallstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all paywall collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("paywall/mongo: migrate %s indexes: %w", col, err)
		}
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
	var models []contentModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"_id": bson.M{"$gte": int64(r.First), "$lte": int64(r.Last)}}).
		Sort(bson.D{{Key: "_id", Value: -1}}).
		Limit(1).
		Scan(ctx)
	if err != nil && !isNoDocuments(err) {
		return 0, fmt.Errorf("paywall/mongo: next content id: %w", err)
	}
	if len(models) == 0 {
		return r.First, nil
	}
	return content.ID(models[0].ID) + 1, nil
}

func (s *Store) CreateContent(ctx context.Context, item *content.Item) error {
	m := toContentModel(item)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: content %d", paywall.ErrAlreadyExists, item.ID)
		}
		return fmt.Errorf("paywall/mongo: create content: %w", err)
	}
	return nil
}

func (s *Store) GetContent(ctx context.Context, contentID content.ID) (*content.Item, error) {
	var m contentModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": int64(contentID)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, paywall.ErrContentNotFound
		}
		return nil, fmt.Errorf("paywall/mongo: get content: %w", err)
	}
	return fromContentModel(&m), nil
}

func (s *Store) ListContent(ctx context.Context, opts content.ListOpts) ([]*content.Item, error) {
	var models []contentModel

	filter := bson.M{}
	if opts.Creator != "" {
		filter["creator"] = opts.Creator
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("paywall/mongo: list content: %w", err)
	}

	result := make([]*content.Item, len(models))
	for i := range models {
		result[i] = fromContentModel(&models[i])
	}
	return result, nil
}

func (s *Store) UpdateContentPrice(ctx context.Context, contentID content.ID, price types.Money) error {
	res, err := s.mdb.NewUpdate((*contentModel)(nil)).
		Filter(bson.M{"_id": int64(contentID)}).
		SetUpdate(bson.M{"$set": bson.M{
			"price":      toMoneyDoc(price),
			"updated_at": now(),
		}}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("paywall/mongo: update price: %w", err)
	}
	if res.MatchedCount() == 0 {
		return paywall.ErrContentNotFound
	}
	return nil
}

// ==================== Grant Store ====================

func (s *Store) GetGrant(ctx context.Context, contentID content.ID, holder string) (*access.Grant, error) {
	var m grantModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": grantKey(contentID, holder)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, paywall.ErrGrantNotFound
		}
		return nil, fmt.Errorf("paywall/mongo: get grant: %w", err)
	}
	return fromGrantModel(&m), nil
}

func (s *Store) PutGrant(ctx context.Context, g *access.Grant) error {
	m := toGrantModel(g)

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.Key}).
		SetUpdate(bson.M{"$set": bson.M{
			"content_id": m.ContentID,
			"holder":     m.Holder,
			"expires_at": m.ExpiresAt,
			"updated_at": m.UpdatedAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("paywall/mongo: put grant: %w", err)
	}
	return nil
}

func (s *Store) DeleteGrant(ctx context.Context, contentID content.ID, holder string) error {
	_, err := s.mdb.NewDelete((*grantModel)(nil)).
		Filter(bson.M{"_id": grantKey(contentID, holder)}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("paywall/mongo: delete grant: %w", err)
	}
	return nil
}

func (s *Store) ListGrants(ctx context.Context, contentID content.ID) ([]*access.Grant, error) {
	var models []grantModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"content_id": int64(contentID)}).
		Sort(bson.D{{Key: "holder", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("paywall/mongo: list grants: %w", err)
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
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: purchase %s", paywall.ErrAlreadyExists, p.ID)
		}
		return fmt.Errorf("paywall/mongo: create purchase: %w", err)
	}
	return nil
}

func (s *Store) GetPurchase(ctx context.Context, purchaseID id.PurchaseID) (*sale.Purchase, error) {
	var m purchaseModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": purchaseID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, paywall.ErrNotFound
		}
		return nil, fmt.Errorf("paywall/mongo: get purchase: %w", err)
	}
	return fromPurchaseModel(&m)
}

func (s *Store) ListPurchases(ctx context.Context, opts sale.ListOpts) ([]*sale.Purchase, error) {
	var models []purchaseModel

	filter := bson.M{}
	if opts.ContentID != 0 {
		filter["content_id"] = int64(opts.ContentID)
	}
	if opts.Buyer != "" {
		filter["buyer"] = opts.Buyer
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("paywall/mongo: list purchases: %w", err)
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
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("paywall/mongo: create withdrawal: %w", err)
	}
	return nil
}

func (s *Store) ListWithdrawals(ctx context.Context, opts treasury.ListOpts) ([]*treasury.Withdrawal, error) {
	var models []withdrawalModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "withdrawn_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("paywall/mongo: list withdrawals: %w", err)
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
	n, err := s.mdb.Collection(colReceipts).CountDocuments(ctx, bson.M{"_id": receiptID.String()})
	if err != nil {
		return false, fmt.Errorf("paywall/mongo: receipt lookup: %w", err)
	}
	return n > 0, nil
}

func (s *Store) ConsumeReceipt(ctx context.Context, receiptID id.ReceiptID, consumedAt time.Time) error {
	m := &receiptModel{ID: receiptID.String(), ConsumedAt: consumedAt}
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: receipt %s", paywall.ErrAlreadyExists, receiptID)
		}
		return fmt.Errorf("paywall/mongo: consume receipt: %w", err)
	}
	return nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all paywall collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colContents: {
			{Keys: bson.D{{Key: "creator", Value: 1}, {Key: "_id", Value: 1}}},
		},
		colGrants: {
			{
				Keys:    bson.D{{Key: "content_id", Value: 1}, {Key: "holder", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "holder", Value: 1}}},
		},
		colPurchases: {
			{Keys: bson.D{{Key: "content_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "buyer", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colWithdrawals: {
			{Keys: bson.D{{Key: "withdrawn_at", Value: 1}}},
		},
		colReceipts: {
			{Keys: bson.D{{Key: "consumed_at", Value: 1}}},
		},
	}
}
