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

// Query kinds accepted by product_query.
const (
	QueryMostExpensive = "mais_caro"
	QueryCheapest      = "mais_barato"
	QueryByName        = "buscar_por_nome"
	QueryListAll       = "listar_todos"
)

type ProductQueryInput struct {
	QueryType   string `json:"query_type"`
	ProductName string `json:"product_name,omitempty"`
}

type ToolOutput struct {
	Result string `json:"resultado"`
}

func createProductQueryTool(catalog model.Catalog, tenant TenantResolver) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ProductQueryToolName,
			Desc: "Consulta produtos e preços da loja atual. Use para qualquer pergunta sobre produtos: o mais caro, o mais barato, buscar um produto pelo nome ou listar todos.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query_type": {
					Type:     schema.String,
					Desc:     "Tipo da consulta.",
					Enum:     []string{QueryMostExpensive, QueryCheapest, QueryByName, QueryListAll},
					Required: true,
				},
				"product_name": {
					Type: schema.String,
					Desc: "Nome do produto, obrigatório para buscar_por_nome.",
				},
			}),
		},
		func(ctx context.Context, in *ProductQueryInput) (*ToolOutput, error) {
			tenantID, err := tenant(ctx)
			if err != nil {
				return nil, err
			}
			return &ToolOutput{Result: QueryProducts(ctx, catalog, tenantID, *in)}, nil
		},
	)
}

// QueryProducts answers a product question in customer-ready Portuguese.
// Store failures become a text the model can relay.
func QueryProducts(ctx context.Context, catalog model.Catalog, tenantID string, in ProductQueryInput) string {
	products, err := catalog.GetProducts(ctx, tenantID)
	if err != nil {
		logx.Error().Err(err).Str("tenant_id", tenantID).Str("tool", ProductQueryToolName).Msg("product lookup failed")
		return "Ocorreu um erro interno ao consultar os produtos."
	}
	if len(products) == 0 {
		return "Nenhum produto encontrado para esta loja."
	}

	switch strings.ToLower(strings.TrimSpace(in.QueryType)) {
	case QueryMostExpensive:
		best := products[0]
		for _, p := range products[1:] {
			if p.Price > best.Price {
				best = p
			}
		}
		return fmt.Sprintf("O produto mais caro é '%s' por R$ %.2f.", best.Name, best.Price)
	case QueryCheapest:
		best := products[0]
		for _, p := range products[1:] {
			if p.Price < best.Price {
				best = p
			}
		}
		return fmt.Sprintf("O produto mais barato é '%s' por R$ %.2f.", best.Name, best.Price)
	case QueryByName:
		name := strings.TrimSpace(in.ProductName)
		if name == "" {
			return "Por favor, forneça o nome do produto para buscar."
		}
		for _, p := range products {
			if strings.EqualFold(p.Name, name) {
				desc := p.Description
				if desc == "" {
					desc = "N/A"
				}
				return fmt.Sprintf("Detalhes do produto '%s': Preço R$ %.2f. Descrição: %s.", p.Name, p.Price, desc)
			}
		}
		return fmt.Sprintf("Produto '%s' não encontrado.", name)
	case QueryListAll:
		parts := make([]string, 0, len(products))
		for _, p := range products {
			parts = append(parts, fmt.Sprintf("%s (R$ %.2f)", p.Name, p.Price))
		}
		return "Nossos produtos são: " + strings.Join(parts, ", ") + "."
	default:
		return "Tipo de consulta de produto não reconhecido."
	}
}
