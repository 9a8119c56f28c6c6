package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Chative-commerce/server/internal/agent/model"
	errx "github.com/Chative-commerce/server/internal/core/error"
)

func (s *Store) GetTenant(ctx context.Context, tenantID string) (*model.Tenant, error) {
	var t model.Tenant
	err := s.db.QueryRowContext(ctx,
		`SELECT tenant_id, nome_loja, latitude, longitude, freight_config, personality_prompt, is_active
		 FROM tenants WHERE tenant_id = ?`, tenantID,
	).Scan(&t.ID, &t.StoreName, &t.Latitude, &t.Longitude, &t.FreightConfig, &t.Personality, &t.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errx.WrapSQL(err)
	}
	return &t, nil
}

func (s *Store) GetProducts(ctx context.Context, tenantID string) ([]model.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, name, price, description FROM products WHERE tenant_id = ? ORDER BY id`, tenantID)
	if err != nil {
		return nil, errx.WrapSQL(err)
	}
	defer rows.Close()

	var out []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.Price, &p.Description); err != nil {
			return nil, errx.WrapSQL(err)
		}
		out = append(out, p)
	}
	return out, errx.WrapSQL(rows.Err())
}

// GetProductByName matches case-insensitively; the first inserted wins.
func (s *Store) GetProductByName(ctx context.Context, tenantID, name string) (*model.Product, error) {
	var p model.Product
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name, price, description FROM products
		 WHERE tenant_id = ? AND LOWER(name) = LOWER(?) ORDER BY id LIMIT 1`, tenantID, name,
	).Scan(&p.ID, &p.TenantID, &p.Name, &p.Price, &p.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errx.WrapSQL(err)
	}
	return &p, nil
}

func (s *Store) GetLinkedAddons(ctx context.Context, productID int64) ([]model.Addon, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.name, a.additional_price FROM addons a
		 JOIN product_addons pa ON pa.addon_id = a.id
		 WHERE pa.product_id = ? ORDER BY a.id`, productID)
	if err != nil {
		return nil, errx.WrapSQL(err)
	}
	defer rows.Close()

	var out []model.Addon
	for rows.Next() {
		var a model.Addon
		if err := rows.Scan(&a.ID, &a.Name, &a.AdditionalPrice); err != nil {
			return nil, errx.WrapSQL(err)
		}
		out = append(out, a)
	}
	return out, errx.WrapSQL(rows.Err())
}

func (s *Store) GetActivePromotions(ctx context.Context, tenantID string) ([]model.Promotion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, name, description_ai, condition_json, action_json, is_active
		 FROM promotions WHERE tenant_id = ? AND is_active = 1 ORDER BY id`, tenantID)
	if err != nil {
		return nil, errx.WrapSQL(err)
	}
	defer rows.Close()

	var out []model.Promotion
	for rows.Next() {
		var p model.Promotion
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.DescriptionAI, &p.ConditionJSON, &p.ActionJSON, &p.Active); err != nil {
			return nil, errx.WrapSQL(err)
		}
		out = append(out, p)
	}
	return out, errx.WrapSQL(rows.Err())
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
	err := s.db.QueryRowContext(ctx,
		`SELECT tenant_id, image_url, created_at FROM menu_images
		 WHERE tenant_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`, tenantID,
	).Scan(&m.TenantID, &m.URL, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errx.WrapSQL(err)
	}
	return &m, nil
}
