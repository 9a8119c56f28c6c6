// Package sqlite is the default durable store: catalog, saved addresses,
// confirmed orders and the interaction log in one SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/Chative-commerce/server/internal/agent/model"
)

// Store implements every durable port over database/sql.
type Store struct {
	db *sql.DB
}

var (
	_ model.Catalog         = (*Store)(nil)
	_ model.AddressStore    = (*Store)(nil)
	_ model.OrderRepository = (*Store)(nil)
	_ model.InteractionLog  = (*Store)(nil)
)

// New opens (or creates) the database at path. ":memory:" gives a private
// in-memory database pinned to a single connection.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON; PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS tenants (
			tenant_id TEXT PRIMARY KEY,
			nome_loja TEXT NOT NULL DEFAULT '',
			latitude TEXT NOT NULL DEFAULT '',
			longitude TEXT NOT NULL DEFAULT '',
			freight_config TEXT NOT NULL DEFAULT '',
			personality_prompt TEXT NOT NULL DEFAULT '',
			is_active INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tenant_id TEXT NOT NULL REFERENCES tenants(tenant_id),
			name TEXT NOT NULL,
			price REAL NOT NULL DEFAULT 0,
			description TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS addons (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			additional_price REAL NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS product_addons (
			product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			addon_id INTEGER NOT NULL REFERENCES addons(id) ON DELETE CASCADE,
			PRIMARY KEY (product_id, addon_id)
		)`,
		`CREATE TABLE IF NOT EXISTS promotions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tenant_id TEXT NOT NULL REFERENCES tenants(tenant_id),
			name TEXT NOT NULL,
			description_ai TEXT NOT NULL DEFAULT '',
			condition_json TEXT NOT NULL DEFAULT '',
			action_json TEXT NOT NULL DEFAULT '',
			is_active INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS saved_addresses (
			user_phone TEXT NOT NULL,
			tenant_id TEXT NOT NULL,
			address_text TEXT NOT NULL,
			latitude REAL,
			longitude REAL,
			last_used_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_phone, tenant_id)
		)`,
		`CREATE TABLE IF NOT EXISTS confirmed_orders (
			order_id TEXT PRIMARY KEY,
			user_phone TEXT NOT NULL,
			tenant_id TEXT NOT NULL,
			items TEXT NOT NULL,
			total REAL NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			delivery_method TEXT NOT NULL DEFAULT '',
			latitude REAL,
			longitude REAL,
			freight TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS interactions (
			id TEXT PRIMARY KEY,
			message_id TEXT NOT NULL,
			user_phone TEXT NOT NULL,
			tenant_id TEXT NOT NULL,
			user_text TEXT NOT NULL DEFAULT '',
			ai_text TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS menu_images (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tenant_id TEXT NOT NULL,
			image_url TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_products_tenant ON products(tenant_id)`,
		`CREATE INDEX IF NOT EXISTS idx_promotions_tenant ON promotions(tenant_id, is_active)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_interactions_message ON interactions(message_id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_tenant ON confirmed_orders(tenant_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_menu_images_tenant ON menu_images(tenant_id, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
