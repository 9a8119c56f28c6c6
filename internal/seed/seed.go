// Package seed loads a tenant catalog from YAML and writes it into a store.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/Chative-commerce/server/internal/agent/model"
	logx "github.com/Chative-commerce/server/pkg/logger"
)

// Seeder is implemented by the durable stores.
type Seeder interface {
	UpsertTenant(ctx context.Context, t model.Tenant) error
	InsertProduct(ctx context.Context, p model.Product) (int64, error)
	InsertAddon(ctx context.Context, a model.Addon) (int64, error)
	LinkAddon(ctx context.Context, productID, addonID int64) error
	InsertPromotion(ctx context.Context, p model.Promotion) (int64, error)
	InsertMenuImage(ctx context.Context, m model.MenuImage) error
}

type Catalog struct {
	// OnlyTenant restricts seeding to one tenant id (SEED_ONLY_TENANT).
	OnlyTenant string   `koanf:"only_tenant"`
	Tenants    []Tenant `koanf:"tenants"`
}

type Tenant struct {
	ID            string      `koanf:"id"`
	StoreName     string      `koanf:"store_name"`
	Latitude      string      `koanf:"latitude"`
	Longitude     string      `koanf:"longitude"`
	FreightConfig string      `koanf:"freight_config"`
	Personality   string      `koanf:"personality"`
	Active        *bool       `koanf:"active"`
	Addons        []Addon     `koanf:"addons"`
	Products      []Product   `koanf:"products"`
	Promotions    []Promotion `koanf:"promotions"`
	MenuImages    []string    `koanf:"menu_images"`
}

type Addon struct {
	Name            string  `koanf:"name"`
	AdditionalPrice float64 `koanf:"additional_price"`
}

type Product struct {
	Name        string   `koanf:"name"`
	Price       float64  `koanf:"price"`
	Description string   `koanf:"description"`
	Addons      []string `koanf:"addons"`
}

type Promotion struct {
	Name          string `koanf:"name"`
	Description   string `koanf:"description"`
	ConditionJSON string `koanf:"condition_json"`
	ActionJSON    string `koanf:"action_json"`
	Active        *bool  `koanf:"active"`
}

// Stats counts what Apply wrote.
type Stats struct {
	Tenants    int
	Products   int
	Addons     int
	Promotions int
	MenuImages int
}

// Load reads the YAML catalog at path. SEED_* variables override scalar keys,
// with "__" separating nested keys.
func Load(path string) (*Catalog, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	if err := k.Load(env.Provider("SEED_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "SEED_")), "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	var c Catalog
	if err := k.Unmarshal("", &c); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	return &c, c.validate()
}

func (c *Catalog) validate() error {
	seen := map[string]bool{}
	for i, t := range c.Tenants {
		if strings.TrimSpace(t.ID) == "" {
			return fmt.Errorf("tenant %d: missing id", i)
		}
		if seen[t.ID] {
			return fmt.Errorf("tenant %s: duplicated", t.ID)
		}
		seen[t.ID] = true
		for _, p := range t.Products {
			if strings.TrimSpace(p.Name) == "" {
				return fmt.Errorf("tenant %s: product without name", t.ID)
			}
		}
	}
	return nil
}

// Apply writes the catalog. Tenants are upserted; products, add-ons,
// promotions and menu images are inserted, so seeding twice duplicates them.
func Apply(ctx context.Context, s Seeder, c *Catalog, now time.Time) (Stats, error) {
	var st Stats
	for _, t := range c.Tenants {
		if c.OnlyTenant != "" && t.ID != c.OnlyTenant {
			continue
		}
		if err := applyTenant(ctx, s, t, now, &st); err != nil {
			return st, fmt.Errorf("tenant %s: %w", t.ID, err)
		}
		logx.Info().Str("tenant_id", t.ID).Int("products", len(t.Products)).Msg("tenant seeded")
	}
	return st, nil
}

func applyTenant(ctx context.Context, s Seeder, t Tenant, now time.Time, st *Stats) error {
	err := s.UpsertTenant(ctx, model.Tenant{
		ID:            t.ID,
		StoreName:     t.StoreName,
		Latitude:      t.Latitude,
		Longitude:     t.Longitude,
		FreightConfig: t.FreightConfig,
		Personality:   t.Personality,
		Active:        boolOr(t.Active, true),
	})
	if err != nil {
		return err
	}
	st.Tenants++

	addonIDs := make(map[string]int64, len(t.Addons))
	for _, a := range t.Addons {
		id, err := s.InsertAddon(ctx, model.Addon{Name: a.Name, AdditionalPrice: a.AdditionalPrice})
		if err != nil {
			return fmt.Errorf("addon %s: %w", a.Name, err)
		}
		addonIDs[strings.ToLower(a.Name)] = id
		st.Addons++
	}

	for _, p := range t.Products {
		pid, err := s.InsertProduct(ctx, model.Product{TenantID: t.ID, Name: p.Name, Price: p.Price, Description: p.Description})
		if err != nil {
			return fmt.Errorf("product %s: %w", p.Name, err)
		}
		st.Products++
		for _, name := range p.Addons {
			aid, ok := addonIDs[strings.ToLower(name)]
			if !ok {
				return fmt.Errorf("product %s: unknown addon %q", p.Name, name)
			}
			if err := s.LinkAddon(ctx, pid, aid); err != nil {
				return err
			}
		}
	}

	for _, p := range t.Promotions {
		_, err := s.InsertPromotion(ctx, model.Promotion{
			TenantID:      t.ID,
			Name:          p.Name,
			DescriptionAI: p.Description,
			ConditionJSON: p.ConditionJSON,
			ActionJSON:    p.ActionJSON,
			Active:        boolOr(p.Active, true),
		})
		if err != nil {
			return fmt.Errorf("promotion %s: %w", p.Name, err)
		}
		st.Promotions++
	}

	for i, url := range t.MenuImages {
		// Later entries are newer.
		at := now.Add(time.Duration(i) * time.Second)
		if err := s.InsertMenuImage(ctx, model.MenuImage{TenantID: t.ID, URL: url, CreatedAt: at}); err != nil {
			return err
		}
		st.MenuImages++
	}
	return nil
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
