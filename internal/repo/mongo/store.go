// Package mongo is the STORE_BACKEND=mongo implementation of the durable ports.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Chative-commerce/server/internal/agent/model"
	errx "github.com/Chative-commerce/server/internal/core/error"
)

const (
	tenantsCollection      = "tenants"
	productsCollection     = "products"
	addonsCollection       = "addons"
	promotionsCollection   = "promotions"
	addressesCollection    = "saved_addresses"
	ordersCollection       = "confirmed_orders"
	interactionsCollection = "interactions"
	menuImagesCollection   = "menu_images"
	countersCollection     = "counters"
)

type Store struct {
	db *mongo.Database
}

var (
	_ model.Catalog         = (*Store)(nil)
	_ model.AddressStore    = (*Store)(nil)
	_ model.OrderRepository = (*Store)(nil)
	_ model.InteractionLog  = (*Store)(nil)
)

func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

// EnsureIndexes creates the unique indexes the ports rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		tenantsCollection: {{
			Keys:    bson.D{{Key: "tenant_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		productsCollection: {{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "product_id", Value: 1}}}},
		promotionsCollection: {{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "is_active", Value: 1}}}},
		addressesCollection: {{
			Keys:    bson.D{{Key: "user_phone", Value: 1}, {Key: "tenant_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		interactionsCollection: {{
			Keys:    bson.D{{Key: "message_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		menuImagesCollection: {{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "created_at", Value: -1}}}},
	}
	for coll, models := range specs {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongodb indexes %s: %w", coll, err)
		}
	}
	return nil
}

// findError turns "no documents" into a nil error for optional lookups.
func findError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	return errx.WrapMongo(err)
}

// nameFilter matches a product name exactly, ignoring case.
func nameFilter(tenantID, name string) bson.M {
	return bson.M{
		"tenant_id": tenantID,
		"name":      primitive.Regex{Pattern: "^" + regexp.QuoteMeta(name) + "$", Options: "i"},
	}
}

func (s *Store) nextID(ctx context.Context, name string) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := s.db.Collection(countersCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, errx.WrapMongo(err)
	}
	return doc.Seq, nil
}

func (s *Store) GetTenant(ctx context.Context, tenantID string) (*model.Tenant, error) {
	var t model.Tenant
	err := s.db.Collection(tenantsCollection).FindOne(ctx, bson.M{"tenant_id": tenantID}).Decode(&t)
	if err != nil {
		return nil, findError(err)
	}
	return &t, nil
}

func (s *Store) GetProducts(ctx context.Context, tenantID string) ([]model.Product, error) {
	cursor, err := s.db.Collection(productsCollection).Find(ctx,
		bson.M{"tenant_id": tenantID},
		options.Find().SetSort(bson.D{{Key: "product_id", Value: 1}}))
	if err != nil {
		return nil, errx.WrapMongo(err)
	}
	defer cursor.Close(ctx)

	var out []model.Product
	if err := cursor.All(ctx, &out); err != nil {
		return nil, errx.WrapMongo(err)
	}
	return out, nil
}

func (s *Store) GetProductByName(ctx context.Context, tenantID, name string) (*model.Product, error) {
	var p model.Product
	err := s.db.Collection(productsCollection).FindOne(ctx,
		nameFilter(tenantID, name),
		options.FindOne().SetSort(bson.D{{Key: "product_id", Value: 1}}),
	).Decode(&p)
	if err != nil {
		return nil, findError(err)
	}
	return &p, nil
}

func (s *Store) GetLinkedAddons(ctx context.Context, productID int64) ([]model.Addon, error) {
	cursor, err := s.db.Collection(addonsCollection).Find(ctx,
		bson.M{"product_ids": productID},
		options.Find().SetSort(bson.D{{Key: "addon_id", Value: 1}}))
	if err != nil {
		return nil, errx.WrapMongo(err)
	}
	defer cursor.Close(ctx)

	var out []model.Addon
	if err := cursor.All(ctx, &out); err != nil {
		return nil, errx.WrapMongo(err)
	}
	return out, nil
}

func (s *Store) GetActivePromotions(ctx context.Context, tenantID string) ([]model.Promotion, error) {
	cursor, err := s.db.Collection(promotionsCollection).Find(ctx,
		bson.M{"tenant_id": tenantID, "is_active": true},
		options.Find().SetSort(bson.D{{Key: "promotion_id", Value: 1}}))
	if err != nil {
		return nil, errx.WrapMongo(err)
	}
	defer cursor.Close(ctx)

	var out []model.Promotion
	if err := cursor.All(ctx, &out); err != nil {
		return nil, errx.WrapMongo(err)
	}
	return out, nil
}

func (s *Store) GetProductPrice(ctx context.Context, tenantID, name string) (float64, error) {
	p, err := s.GetProductByName(ctx, tenantID, name)
	if err != nil || p == nil {
		return 0, err
	}
	return p.Price, nil
}

func (s *Store) GetLatestMenuImage(ctx context.Context, tenantID string) (*model.MenuImage, error) {
	var m model.MenuImage
	err := s.db.Collection(menuImagesCollection).FindOne(ctx,
		bson.M{"tenant_id": tenantID},
		options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	).Decode(&m)
	if err != nil {
		return nil, findError(err)
	}
	return &m, nil
}

func (s *Store) GetLastAddress(ctx context.Context, userID, tenantID string) (*model.SavedAddress, error) {
	var a model.SavedAddress
	err := s.db.Collection(addressesCollection).FindOne(ctx,
		bson.M{"user_phone": userID, "tenant_id": tenantID}).Decode(&a)
	if err != nil {
		return nil, findError(err)
	}
	return &a, nil
}

func (s *Store) UpsertAddress(ctx context.Context, a model.SavedAddress) error {
	if a.LastUsedAt.IsZero() {
		a.LastUsedAt = time.Now()
	}
	_, err := s.db.Collection(addressesCollection).ReplaceOne(ctx,
		bson.M{"user_phone": a.UserID, "tenant_id": a.TenantID},
		a,
		options.Replace().SetUpsert(true))
	return errx.WrapMongo(err)
}

func (s *Store) SaveConfirmedOrder(ctx context.Context, o model.ConfirmedOrder) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	_, err := s.db.Collection(ordersCollection).InsertOne(ctx, o)
	return errx.WrapMongo(err)
}

func (s *Store) Exists(ctx context.Context, messageID string) (bool, error) {
	n, err := s.db.Collection(interactionsCollection).CountDocuments(ctx,
		bson.M{"message_id": messageID}, options.Count().SetLimit(1))
	if err != nil {
		return false, errx.WrapMongo(err)
	}
	return n > 0, nil
}

func (s *Store) Append(ctx context.Context, rec model.Interaction) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.db.Collection(interactionsCollection).InsertOne(ctx, rec)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", model.ErrDuplicateMessage, rec.MessageID)
	}
	return errx.WrapMongo(err)
}
