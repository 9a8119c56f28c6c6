package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-commerce/server/internal/agent/model"
	logx "github.com/Chative-commerce/server/pkg/logger"
)

type ProductAddonsInput struct {
	ProductName string `json:"product_name"`
}

func createProductAddonsTool(catalog model.Catalog, tenant TenantResolver) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ProductAddonsToolName,
			Desc: "Lista os opcionais (adicionais) disponíveis para um produto da loja atual, com o preço adicional de cada um.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"product_name": {
					Type:     schema.String,
					Desc:     "Nome exato do produto.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *ProductAddonsInput) (*ToolOutput, error) {
			tenantID, err := tenant(ctx)
			if err != nil {
				return nil, err
			}
			return &ToolOutput{Result: ListAddons(ctx, catalog, tenantID, in.ProductName)}, nil
		},
	)
}

// ListAddons describes the add-ons linked to a product.
func ListAddons(ctx context.Context, catalog model.Catalog, tenantID, productName string) string {
	name := strings.TrimSpace(productName)
	if name == "" {
		return "Por favor, forneça o nome do produto."
	}
	log := logx.With("tenant_id", tenantID, "tool", ProductAddonsToolName)

	p, err := catalog.GetProductByName(ctx, tenantID, name)
	if err != nil {
		log.Error().Err(err).Msg("product lookup failed")
		return "Ocorreu um erro interno ao consultar os produtos."
	}
	if p == nil {
		return fmt.Sprintf("Produto '%s' não encontrado.", name)
	}
	addons, err := catalog.GetLinkedAddons(ctx, p.ID)
	if err != nil {
		log.Error().Err(err).Msg("addon lookup failed")
		return "Ocorreu um erro interno ao consultar os produtos."
	}
	if len(addons) == 0 {
		return fmt.Sprintf("O produto '%s' não possui opcionais.", p.Name)
	}
	parts := make([]string, 0, len(addons))
	for _, a := range addons {
		parts = append(parts, fmt.Sprintf("%s (+R$ %.2f)", a.Name, a.AdditionalPrice))
	}
	return fmt.Sprintf("Opcionais de '%s': %s.", p.Name, strings.Join(parts, ", "))
}
