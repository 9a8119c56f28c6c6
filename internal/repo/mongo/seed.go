package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Chative-commerce/server/internal/agent/model"
	errx "github.com/Chative-commerce/server/internal/core/error"
)

// addonDoc stores the linked product ids alongside the add-on.
type addonDoc struct {
	model.Addon `bson:",inline"`
	ProductIDs  []int64 `bson:"product_ids"`
}

func (s *Store) UpsertTenant(ctx context.Context, t model.Tenant) error {
	_, err := s.db.Collection(tenantsCollection).ReplaceOne(ctx,
		bson.M{"tenant_id": t.ID}, t, options.Replace().SetUpsert(true))
	return errx.WrapMongo(err)
}

func (s *Store) InsertProduct(ctx context.Context, p model.Product) (int64, error) {
	id, err := s.nextID(ctx, productsCollection)
	if err != nil {
		return 0, err
	}
	p.ID = id
	if _, err := s.db.Collection(productsCollection).InsertOne(ctx, p); err != nil {
		return 0, errx.WrapMongo(err)
	}
	return id, nil
}

func (s *Store) InsertAddon(ctx context.Context, a model.Addon) (int64, error) {
	id, err := s.nextID(ctx, addonsCollection)
	if err != nil {
		return 0, err
	}
	a.ID = id
	if _, err := s.db.Collection(addonsCollection).InsertOne(ctx, addonDoc{Addon: a, ProductIDs: []int64{}}); err != nil {
		return 0, errx.WrapMongo(err)
	}
	return id, nil
}

func (s *Store) LinkAddon(ctx context.Context, productID, addonID int64) error {
	_, err := s.db.Collection(addonsCollection).UpdateOne(ctx,
		bson.M{"addon_id": addonID},
		bson.M{"$addToSet": bson.M{"product_ids": productID}})
	return errx.WrapMongo(err)
}

func (s *Store) InsertPromotion(ctx context.Context, p model.Promotion) (int64, error) {
	id, err := s.nextID(ctx, promotionsCollection)
	if err != nil {
		return 0, err
	}
	p.ID = id
	if _, err := s.db.Collection(promotionsCollection).InsertOne(ctx, p); err != nil {
		return 0, errx.WrapMongo(err)
	}
	return id, nil
}

func (s *Store) InsertMenuImage(ctx context.Context, m model.MenuImage) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	_, err := s.db.Collection(menuImagesCollection).InsertOne(ctx, m)
	return errx.WrapMongo(err)
}
