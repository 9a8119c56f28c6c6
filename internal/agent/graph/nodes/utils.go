package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-commerce/server/internal/agent/model"
)

const DefaultMaxToolCalls = 5

func normalizeMaxToolCalls(n int) int {
	if n <= 0 {
		return DefaultMaxToolCalls
	}
	return n
}

// checkAndMarkToolLimit marks the state once the count reached the limit.
// Returns true when marked now.
func checkAndMarkToolLimit(state *model.AppState, max int) bool {
	max = normalizeMaxToolCalls(max)
	if !state.ToolCallLimitReached && state.ToolCallCount >= max {
		state.ToolCallLimitReached = true
		return true
	}
	return false
}

// incrementToolCallAndCheck counts one tool round and reports whether it
// went over the limit.
func incrementToolCallAndCheck(state *model.AppState, max int) bool {
	max = normalizeMaxToolCalls(max)
	state.ToolCallCount++
	if state.ToolCallCount > max {
		state.ToolCallLimitReached = true
		return true
	}
	return false
}

// loadRun reads the step and prior transcript stored by the input converter.
func loadRun(ctx context.Context) (*model.StepContext, []*schema.Message, error) {
	var (
		step   *model.StepContext
		recent []*schema.Message
	)
	err := compose.ProcessState[*model.AppState](ctx, func(_ context.Context, s *model.AppState) error {
		if s.Step == nil {
			return fmt.Errorf("missing step context in state")
		}
		step, recent = s.Step, s.Recent
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to access state: %w", err)
	}
	return step, recent, nil
}
