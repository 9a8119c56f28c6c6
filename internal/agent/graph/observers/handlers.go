// Package observers attaches logging and tracing to every Eino component run.
package observers

import (
	einocb "github.com/cloudwego/eino/callbacks"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"
)

// NewAllCallbacks aggregates the prompt, model and tool observers into one handler.
func NewAllCallbacks() einocb.Handler {
	return callbackHelper.NewHandlerHelper().
		Tool(newToolHandler()).
		ChatModel(newModelHandler()).
		Prompt(newPromptHandler()).
		Handler()
}

// Handlers returns every handler the graph is invoked with.
func Handlers() []einocb.Handler {
	return []einocb.Handler{NewAllCallbacks(), NewTraceCallbacks()}
}
