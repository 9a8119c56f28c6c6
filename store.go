package main

import (
	"context"
	"fmt"

	"github.com/Chative-commerce/server/internal/agent/model"
	"github.com/Chative-commerce/server/internal/config"
	mongostore "github.com/Chative-commerce/server/internal/repo/mongo"
	"github.com/Chative-commerce/server/internal/repo/sqlite"
	"github.com/Chative-commerce/server/internal/seed"
	logx "github.com/Chative-commerce/server/pkg/logger"
)

// durableStore is what both backends implement.
type durableStore interface {
	model.Catalog
	model.AddressStore
	model.OrderRepository
	model.InteractionLog
	seed.Seeder
}

type pingFunc func(ctx context.Context) error

func (p pingFunc) Ping(ctx context.Context) error { return p(ctx) }

type openedStore struct {
	durableStore
	ping  pingFunc
	close func(ctx context.Context) error
}

func openStore(ctx context.Context, cfg *config.App) (*openedStore, error) {
	switch cfg.StoreBackend {
	case config.BackendMongo:
		client, db, err := cfg.Mongo.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("connecting to mongo: %w", err)
		}
		st := mongostore.New(db)
		if err := st.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("creating mongo indexes: %w", err)
		}
		logx.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongo")
		return &openedStore{
			durableStore: st,
			ping:         func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close:        client.Disconnect,
		}, nil
	default:
		st, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		logx.Info().Str("path", cfg.SQLitePath).Msg("opened sqlite store")
		return &openedStore{
			durableStore: st,
			ping:         st.Ping,
			close:        func(context.Context) error { return st.Close() },
		}, nil
	}
}
