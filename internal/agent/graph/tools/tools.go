// Package tools exposes read-only catalog lookups to the response formulator.
// The tenant always comes from the run state, never from model arguments.
package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-commerce/server/internal/agent/model"
)

const (
	ProductQueryToolName  = "product_query"
	ProductAddonsToolName = "product_addons"
)

// TenantResolver returns the tenant of the current run.
type TenantResolver func(ctx context.Context) (string, error)

// StateTenant reads the tenant id from the graph local state.
func StateTenant(ctx context.Context) (string, error) {
	var tenantID string
	err := compose.ProcessState[*model.AppState](ctx, func(_ context.Context, s *model.AppState) error {
		tenantID = s.TenantID
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("tenant from state: %w", err)
	}
	if tenantID == "" {
		return "", fmt.Errorf("tenant from state: empty tenant id")
	}
	return tenantID, nil
}

// NewCatalogTools builds every formulator tool over the given catalog.
func NewCatalogTools(catalog model.Catalog, tenant TenantResolver) []tool.BaseTool {
	if tenant == nil {
		tenant = StateTenant
	}
	return []tool.BaseTool{
		createProductQueryTool(catalog, tenant),
		createProductAddonsTool(catalog, tenant),
	}
}

// ToolInfos collects the schema of each tool for model binding.
func ToolInfos(ctx context.Context, tools []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(tools))
	for _, t := range tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}
