package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// MediaAnalyzer turns a binary attachment into text following instruction.
type MediaAnalyzer interface {
	Analyze(ctx context.Context, instruction string, data []byte, mimeType string) (string, error)
}

// ErrMediaUnsupported is returned when a backend cannot read the media type.
var ErrMediaUnsupported = errors.New("media type not supported by backend")

// GeminiMedia sends the bytes inline to a multimodal Gemini model.
type GeminiMedia struct {
	client *genai.Client
	model  string
}

func NewGeminiMedia(client *genai.Client, modelName string) *GeminiMedia {
	return &GeminiMedia{client: client, model: modelName}
}

func (g *GeminiMedia) Analyze(ctx context.Context, instruction string, data []byte, mimeType string) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(instruction),
		genai.NewPartFromBytes(data, mimeType),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

// OpenAIMedia transcribes audio with Whisper and describes images with a
// vision model. Video is not supported.
type OpenAIMedia struct {
	client *openai.Client
	model  string
}

func NewOpenAIMedia(client *openai.Client, modelName string) *OpenAIMedia {
	return &OpenAIMedia{client: client, model: modelName}
}

func (o *OpenAIMedia) Analyze(ctx context.Context, instruction string, data []byte, mimeType string) (string, error) {
	switch {
	case strings.HasPrefix(mimeType, "audio/"):
		resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
			Model:    openai.Whisper1,
			Reader:   bytes.NewReader(data),
			FilePath: "audio" + audioExt(mimeType),
		})
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(resp.Text), nil
	case strings.HasPrefix(mimeType, "image/"):
		resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: o.model,
			Messages: []openai.ChatCompletionMessage{{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: instruction},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: DataURL(data, mimeType)}},
				},
			}},
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", nil
		}
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrMediaUnsupported, mimeType)
	}
}

func audioExt(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "ogg"):
		return ".ogg"
	case strings.Contains(mimeType, "mpeg"), strings.Contains(mimeType, "mp3"):
		return ".mp3"
	case strings.Contains(mimeType, "wav"):
		return ".wav"
	case strings.Contains(mimeType, "mp4"), strings.Contains(mimeType, "m4a"):
		return ".m4a"
	default:
		return ".ogg"
	}
}

// DataURL encodes data as an inline data URL.
func DataURL(data []byte, mimeType string) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ChatModelMedia routes media through any Eino chat model as an inline image
// part. Used in tests and for providers without a dedicated media API.
type ChatModelMedia struct {
	Model einomodel.BaseChatModel
}

func (c ChatModelMedia) Analyze(ctx context.Context, instruction string, data []byte, mimeType string) (string, error) {
	msg := &schema.Message{
		Role: schema.User,
		MultiContent: []schema.ChatMessagePart{
			{Type: schema.ChatMessagePartTypeText, Text: instruction},
			{Type: schema.ChatMessagePartTypeImageURL, ImageURL: &schema.ChatMessageImageURL{URL: DataURL(data, mimeType), MIMEType: mimeType}},
		},
	}
	out, err := c.Model.Generate(ctx, []*schema.Message{msg})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Content), nil
}
