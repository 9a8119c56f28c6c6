// Package router maps classified tasks onto pipeline branches.
package router

import "github.com/Chative-commerce/server/internal/agent/model"

// Branch names one of the mutually exclusive specialised paths.
type Branch string

const (
	HumanHandoff Branch = "human_handoff"
	Menu         Branch = "menu"
	Freight      Branch = "freight"
	OrderTaking  Branch = "order_taking"
	General      Branch = "general"
)

// Branches lists every branch the router can choose.
func Branches() []Branch {
	return []Branch{HumanHandoff, Menu, Freight, OrderTaking, General}
}

func (b Branch) String() string { return string(b) }

// Route is total: unknown or empty task types go to General.
func Route(t model.TaskType) Branch {
	switch model.NormalizeTaskType(string(t)) {
	case model.TaskHumanHandoff:
		return HumanHandoff
	case model.TaskMenu:
		return Menu
	case model.TaskFreight:
		return Freight
	case model.TaskAddItem, model.TaskRemoveItem, model.TaskConfirmOrder:
		return OrderTaking
	default:
		return General
	}
}

// RouteAnalysis acts on the first task only. The remaining tasks are returned
// so the caller can surface them as deferred.
func RouteAnalysis(a model.IntentAnalysis) (Branch, []model.Task) {
	first, ok := a.FirstTask()
	if !ok {
		return General, nil
	}
	var deferred []model.Task
	if len(a.Tasks) > 1 {
		deferred = append(deferred, a.Tasks[1:]...)
	}
	return Route(first.Type), deferred
}
