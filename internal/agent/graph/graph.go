// Package graph wires the per-message conversation pipeline as an Eino graph.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"

	"github.com/Chative-commerce/server/internal/agent/graph/nodes"
	"github.com/Chative-commerce/server/internal/agent/graph/observers"
	"github.com/Chative-commerce/server/internal/agent/graph/tools"
	"github.com/Chative-commerce/server/internal/agent/model"
	logx "github.com/Chative-commerce/server/pkg/logger"
)

// Runner executes one pipeline run for an inbound message.
type Runner interface {
	Invoke(ctx context.Context, in model.QueryInput) (*model.AIResponse, error)
}

// GraphConfig holds all configuration needed to build the graph.
type GraphConfig struct {
	Deps *nodes.Deps
	// ResponseModel must already have Tools bound.
	ResponseModel     einomodel.BaseChatModel
	ResponseModelName string
	Tools             []tool.BaseTool
	ToolMaxCalls      int
}

// GraphBuilder handles the construction of the conversation graph.
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.QueryInput, *model.AIResponse]
}

type graphRunner struct {
	runnable compose.Runnable[model.QueryInput, *model.AIResponse]
}

func (r *graphRunner) Invoke(ctx context.Context, in model.QueryInput) (*model.AIResponse, error) {
	out, err := r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.Handlers()...))
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("graph returned no response")
	}
	return out, nil
}

// NewRunner builds the graph and wraps it in a Runner.
func NewRunner(ctx context.Context, cfg *GraphConfig) (Runner, error) {
	runnable, err := BuildGraph(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logx.Debug().Msg("Conversation graph built successfully")
	return &graphRunner{runnable: runnable}, nil
}

// BuildGraph constructs and returns the compiled conversation graph.
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.QueryInput, *model.AIResponse], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if err := config.Deps.Validate(); err != nil {
		return nil, fmt.Errorf("graph deps: %w", err)
	}
	if config.ResponseModel == nil {
		return nil, fmt.Errorf("response model is nil")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.QueryInput, *model.AIResponse](
			compose.WithGenLocalState(func(ctx context.Context) *model.AppState {
				return &model.AppState{}
			}),
		),
	}

	if err := builder.setupTools(ctx); err != nil {
		return nil, err
	}
	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}
	return builder.compile(ctx)
}

// setupTools registers the catalog tools node.
func (b *GraphBuilder) setupTools(ctx context.Context) error {
	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:               b.config.Tools,
		ExecuteSequentially: true,
		UnknownToolsHandler: func(ctx context.Context, name, input string) (string, error) {
			logx.Warn().
				Str("tool_name", name).
				Str("arguments", input).
				Msg("Unknown or invalid tool call; returning fallback result")
			return fmt.Sprintf("{\"error\":\"unknown_tool\",\"name\":%q,\"note\":\"ignored\"}", name), nil
		},
		ToolArgumentsHandler: func(ctx context.Context, name, arguments string) (string, error) {
			return sanitizeArguments(name, arguments), nil
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Failed to create tools node")
		return fmt.Errorf("failed to create tools node: %w", err)
	}

	return b.graph.AddToolsNode(nodes.NodeToolExecutor, toolsNode,
		compose.WithStatePreHandler(nodes.NewToolExecutorPreHandler(b.config.ToolMaxCalls)),
	)
}

// addNodes adds all processing nodes to the graph.
func (b *GraphBuilder) addNodes() error {
	d := b.config.Deps
	adders := []func() error{
		func() error {
			return b.graph.AddLambdaNode(nodes.NodeInputConverter,
				nodes.NewInputConverterNode(d),
				compose.WithStatePreHandler(nodes.NewInputConverterPreHandler()),
			)
		},
		func() error { return b.graph.AddLambdaNode(nodes.NodeEarlyExit, nodes.NewEarlyExitNode()) },
		func() error { return b.graph.AddLambdaNode(nodes.NodePending, nodes.NewPendingNode(d)) },
		func() error { return b.graph.AddLambdaNode(nodes.NodeIntentClassifier, nodes.NewIntentClassifierNode(d)) },
		func() error { return b.graph.AddLambdaNode(nodes.NodeHumanHandoff, nodes.NewHumanHandoffNode(d)) },
		func() error { return b.graph.AddLambdaNode(nodes.NodeMenu, nodes.NewMenuNode()) },
		func() error { return b.graph.AddLambdaNode(nodes.NodeFreight, nodes.NewFreightNode(d)) },
		func() error { return b.graph.AddLambdaNode(nodes.NodeOrderTaking, nodes.NewOrderTakingNode(d)) },
		func() error {
			return b.graph.AddLambdaNode(nodes.NodeResponseAssembler, nodes.NewResponseAssemblerNode(d))
		},
		func() error {
			return b.graph.AddChatModelNode(nodes.NodeResponseChatModel,
				nodes.NewResponseChatModelNode(b.config.ResponseModel),
				compose.WithStatePreHandler(nodes.NewResponseChatModelPreHandler(b.config.ToolMaxCalls)),
				compose.WithStatePostHandler(nodes.NewResponseChatModelPostHandler(b.config.ResponseModelName)),
			)
		},
		func() error { return b.graph.AddLambdaNode(nodes.NodeFinalizer, nodes.NewFinalizerNode(d)) },
	}
	for _, add := range adders {
		if err := add(); err != nil {
			return fmt.Errorf("error adding node: %w", err)
		}
	}
	return nil
}

// addEdges creates the fixed connections between nodes.
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeInputConverter},
		{nodes.NodeEarlyExit, compose.END},
		{nodes.NodePending, compose.END},
		{nodes.NodeHumanHandoff, nodes.NodeResponseAssembler},
		{nodes.NodeMenu, nodes.NodeResponseAssembler},
		{nodes.NodeFreight, nodes.NodeResponseAssembler},
		{nodes.NodeOrderTaking, nodes.NodeResponseAssembler},
		{nodes.NodeResponseAssembler, nodes.NodeResponseChatModel},
		{nodes.NodeToolExecutor, nodes.NodeResponseChatModel},
		{nodes.NodeFinalizer, compose.END},
	}
	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			return fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches creates conditional routing branches.
func (b *GraphBuilder) addBranches() error {
	entryBranch := compose.NewGraphBranch(
		nodes.NewEntryCondition(),
		map[string]bool{
			nodes.NodeEarlyExit:        true,
			nodes.NodePending:          true,
			nodes.NodeIntentClassifier: true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeInputConverter, entryBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding entry branch")
		return fmt.Errorf("error adding entry branch: %w", err)
	}

	routerBranch := compose.NewGraphBranch(
		nodes.NewRouterCondition(),
		map[string]bool{
			nodes.NodeHumanHandoff:      true,
			nodes.NodeMenu:              true,
			nodes.NodeFreight:           true,
			nodes.NodeOrderTaking:       true,
			nodes.NodeResponseAssembler: true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeIntentClassifier, routerBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding router branch")
		return fmt.Errorf("error adding router branch: %w", err)
	}

	decisionBranch := compose.NewGraphBranch(
		nodes.NewToolExecutorCondition(),
		map[string]bool{
			nodes.NodeToolExecutor: true,
			nodes.NodeFinalizer:    true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeResponseChatModel, decisionBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding decision branch")
		return fmt.Errorf("error adding decision branch: %w", err)
	}
	return nil
}

// compile finalizes and compiles the graph.
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.QueryInput, *model.AIResponse], error) {
	// Bounds the formulator/tool loop.
	maxSteps := max(20, 10+nodesMaxToolCalls(b.config.ToolMaxCalls)*2)

	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxSteps))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}
	logx.Debug().Int("max_steps", maxSteps).Msg("Graph compiled successfully")
	return runnable, nil
}

func nodesMaxToolCalls(n int) int {
	if n <= 0 {
		return nodes.DefaultMaxToolCalls
	}
	return n
}

// sanitizeArguments trims the string arguments of the catalog tools. Input
// that is not a JSON object is passed through.
func sanitizeArguments(name, arguments string) string {
	var m map[string]any
	if err := json.Unmarshal([]byte(arguments), &m); err != nil {
		return arguments
	}

	var keys []string
	switch name {
	case tools.ProductQueryToolName:
		keys = []string{"query_type", "product_name"}
	case tools.ProductAddonsToolName:
		keys = []string{"product_name"}
	default:
		return arguments
	}
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch vv := v.(type) {
		case string:
			m[k] = strings.TrimSpace(vv)
		case nil:
			delete(m, k)
		default:
			m[k] = strings.TrimSpace(fmt.Sprint(vv))
		}
	}
	if qt, ok := m["query_type"].(string); ok {
		m["query_type"] = strings.ToLower(qt)
	}

	b, err := json.Marshal(m)
	if err != nil {
		return arguments
	}
	return string(b)
}
