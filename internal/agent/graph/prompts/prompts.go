// Package prompts renders the system prompts of every responder. Rendering
// goes through Eino prompt templates so prompt callbacks fire.
package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-commerce/server/internal/agent/model"
)

var (
	//go:embed template/intent_prompt.txt
	intentPrompt string
	//go:embed template/order_prompt.txt
	orderPrompt string
	//go:embed template/signal_prompt.txt
	signalPrompt string
	//go:embed template/media_audio_prompt.txt
	audioPrompt string
	//go:embed template/media_visual_prompt.txt
	visualPrompt string
)

// renderStatic wraps already-final content in a messages placeholder so the
// template engine never interprets the braces of JSON examples.
func renderStatic(ctx context.Context, name, content string) (string, error) {
	tpl := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("system_messages", false),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"system_messages": []*schema.Message{schema.SystemMessage(content)},
	})
	if err != nil {
		return "", fmt.Errorf("%s prompt: %w", name, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("%s prompt: empty result", name)
	}
	return msgs[0].Content, nil
}

// RenderIntentSystem renders the intent classifier system prompt.
func RenderIntentSystem(ctx context.Context) (string, error) {
	types := make([]string, 0, len(model.TaskTypes()))
	for _, t := range model.TaskTypes() {
		types = append(types, "- "+string(t))
	}
	content := strings.NewReplacer(
		"{TD}", "<||>",
		"{RD}", "##",
		"{CD}", "<|COMPLETE|>",
		"{task_types}", strings.Join(types, "\n"),
	).Replace(intentPrompt)
	return renderStatic(ctx, "intent", content)
}

func RenderOrderSystem(ctx context.Context) (string, error) {
	return renderStatic(ctx, "order", orderPrompt)
}

func RenderSignalSystem(ctx context.Context) (string, error) {
	return renderStatic(ctx, "signal", signalPrompt)
}

// RenderMediaSystem picks the transcription prompt for audio and the
// description prompt for everything else.
func RenderMediaSystem(ctx context.Context, audio bool) (string, error) {
	if audio {
		return renderStatic(ctx, "media_audio", audioPrompt)
	}
	return renderStatic(ctx, "media_visual", visualPrompt)
}
