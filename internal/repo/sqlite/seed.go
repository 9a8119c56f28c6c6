package sqlite

import (
	"context"
	"time"

	"github.com/Chative-commerce/server/internal/agent/model"
	errx "github.com/Chative-commerce/server/internal/core/error"
)

// UpsertTenant creates or replaces a tenant row.
func (s *Store) UpsertTenant(ctx context.Context, t model.Tenant) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tenants (tenant_id, nome_loja, latitude, longitude, freight_config, personality_prompt, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(tenant_id) DO UPDATE SET
			nome_loja = excluded.nome_loja,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			freight_config = excluded.freight_config,
			personality_prompt = excluded.personality_prompt,
			is_active = excluded.is_active`,
		t.ID, t.StoreName, t.Latitude, t.Longitude, t.FreightConfig, t.Personality, t.Active)
	return errx.WrapSQL(err)
}

func (s *Store) InsertProduct(ctx context.Context, p model.Product) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO products (tenant_id, name, price, description) VALUES (?, ?, ?, ?)`,
		p.TenantID, p.Name, p.Price, p.Description)
	if err != nil {
		return 0, errx.WrapSQL(err)
	}
	id, err := res.LastInsertId()
	return id, errx.WrapSQL(err)
}

func (s *Store) InsertAddon(ctx context.Context, a model.Addon) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO addons (name, additional_price) VALUES (?, ?)`, a.Name, a.AdditionalPrice)
	if err != nil {
		return 0, errx.WrapSQL(err)
	}
	id, err := res.LastInsertId()
	return id, errx.WrapSQL(err)
}

func (s *Store) LinkAddon(ctx context.Context, productID, addonID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO product_addons (product_id, addon_id) VALUES (?, ?)`, productID, addonID)
	return errx.WrapSQL(err)
}

func (s *Store) InsertPromotion(ctx context.Context, p model.Promotion) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO promotions (tenant_id, name, description_ai, condition_json, action_json, is_active)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.TenantID, p.Name, p.DescriptionAI, p.ConditionJSON, p.ActionJSON, p.Active)
	if err != nil {
		return 0, errx.WrapSQL(err)
	}
	id, err := res.LastInsertId()
	return id, errx.WrapSQL(err)
}

func (s *Store) InsertMenuImage(ctx context.Context, m model.MenuImage) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO menu_images (tenant_id, image_url, created_at) VALUES (?, ?, ?)`,
		m.TenantID, m.URL, m.CreatedAt.UTC())
	return errx.WrapSQL(err)
}
