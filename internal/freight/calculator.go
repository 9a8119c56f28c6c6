// Package freight prices deliveries from a tenant's store to a client location.
package freight

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Chative-commerce/server/internal/agent/model"
	logx "github.com/Chative-commerce/server/pkg/logger"
)

const (
	MsgNeedLocation      = "Para calcular o frete, por favor, compartilhe sua localização ou digite seu endereço."
	MsgTenantNotFound    = "Erro: Loja não encontrada."
	MsgMissingAPIKey     = "Erro: A chave da API do Google Maps não está configurada."
	MsgMissingStoreCoord = "Erro: As coordenadas da loja não estão configuradas."
	msgUpstreamFormat    = "Não foi possível calcular a distância. Motivo: %s."
	MsgInternal          = "Ocorreu um erro interno ao tentar calcular o frete."
)

// TenantLookup is the catalog method the calculator needs.
type TenantLookup interface {
	GetTenant(ctx context.Context, tenantID string) (*model.Tenant, error)
}

type Calculator struct {
	tenants  TenantLookup
	distance model.DistanceProvider
}

// NewCalculator builds a calculator. A nil distance provider means the maps
// API key is not configured.
func NewCalculator(tenants TenantLookup, distance model.DistanceProvider) *Calculator {
	return &Calculator{tenants: tenants, distance: distance}
}

// Calculate returns the freight result, or nil and a message meant for the user.
func (c *Calculator) Calculate(ctx context.Context, tenantID string, lat, lng float64) (*model.FreightResult, string) {
	log := logx.With("tenant_id", tenantID)

	tenant, err := c.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		log.Error().Err(err).Msg("freight: tenant lookup failed")
		return nil, MsgInternal
	}
	if tenant == nil {
		return nil, MsgTenantNotFound
	}
	if c.distance == nil {
		return nil, MsgMissingAPIKey
	}
	origin, ok := tenantCoordinates(tenant)
	if !ok {
		return nil, MsgMissingStoreCoord
	}

	meters, seconds, err := c.distance.DistanceAndDuration(ctx, origin, model.LatLng{Lat: lat, Lng: lng})
	if err != nil {
		if u, ok := IsUpstream(err); ok {
			log.Warn().Str("reason", u.Reason).Msg("freight: distance api refused")
			return nil, fmt.Sprintf(msgUpstreamFormat, u.Reason)
		}
		log.Error().Err(err).Msg("freight: distance lookup failed")
		return nil, MsgInternal
	}

	res := &model.FreightResult{
		DistanceKM:      meters / 1000,
		DurationMinutes: seconds / 60,
	}
	if tenant.FreightConfig != "" {
		policy, err := ParsePolicy(tenant.FreightConfig)
		if err != nil {
			log.Error().Err(err).Msg("freight: ignoring tenant freight config")
		} else {
			res.Cost = policy.Cost(res.DistanceKM)
		}
	}
	log.Debug().Float64("distance_km", res.DistanceKM).Msg("freight calculated")
	return res, ""
}

func tenantCoordinates(t *model.Tenant) (model.LatLng, bool) {
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(t.Latitude), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(t.Longitude), 64)
	if err1 != nil || err2 != nil {
		return model.LatLng{}, false
	}
	return model.LatLng{Lat: lat, Lng: lng}, true
}
