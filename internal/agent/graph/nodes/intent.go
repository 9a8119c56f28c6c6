package nodes

import (
	"context"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-commerce/server/internal/agent/model"
	"github.com/Chative-commerce/server/internal/agent/responders"
	"github.com/Chative-commerce/server/internal/agent/router"
	logx "github.com/Chative-commerce/server/pkg/logger"
)

// NewIntentClassifierNode classifies the message and picks the branch.
func NewIntentClassifierNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, step *model.StepContext) (*model.StepContext, error) {
		_, recent, err := loadRun(ctx)
		if err != nil {
			return nil, err
		}
		analysis, cerr := d.Intent.Classify(ctx, responders.IntentInput{
			Text:    step.Text,
			History: d.Messages.ForIntent(recent),
		})
		step.Intent = &analysis

		branch, deferred := router.RouteAnalysis(analysis)
		step.Branch = string(branch)
		step.PendingTasks = deferred

		logx.Debug().
			Str("session_id", step.SessionID).
			Str("branch", step.Branch).
			Int("tasks", len(analysis.Tasks)).
			Int("deferred", len(deferred)).
			Bool("fallback", cerr != nil).
			Msg("Intent classified")
		return step, nil
	})
}

// NewRouterCondition maps the chosen branch to its node.
func NewRouterCondition() func(context.Context, *model.StepContext) (string, error) {
	return func(ctx context.Context, step *model.StepContext) (string, error) {
		return BranchNode(router.Branch(step.Branch)), nil
	}
}

// BranchNode returns the node that implements a branch. General goes
// straight to the response assembler.
func BranchNode(b router.Branch) string {
	switch b {
	case router.HumanHandoff:
		return NodeHumanHandoff
	case router.Menu:
		return NodeMenu
	case router.Freight:
		return NodeFreight
	case router.OrderTaking:
		return NodeOrderTaking
	default:
		return NodeResponseAssembler
	}
}
