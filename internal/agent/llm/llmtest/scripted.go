// Package llmtest provides a scripted chat model for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ErrScriptExhausted is returned once every scripted reply was consumed.
var ErrScriptExhausted = errors.New("llmtest: no scripted reply left")

// Scripted replays canned replies in order and records every input.
type Scripted struct {
	mu      sync.Mutex
	replies []*schema.Message
	errs    []error
	calls   [][]*schema.Message
	tools   []*schema.ToolInfo
}

var _ einomodel.ChatModel = (*Scripted)(nil)

// New returns a model answering with the given assistant texts.
func New(texts ...string) *Scripted {
	s := &Scripted{}
	for _, t := range texts {
		s.Then(schema.AssistantMessage(t, nil))
	}
	return s
}

// Then queues a reply.
func (s *Scripted) Then(msg *schema.Message) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, msg)
	s.errs = append(s.errs, nil)
	return s
}

// ThenError queues a failure.
func (s *Scripted) ThenError(err error) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, nil)
	s.errs = append(s.errs, err)
	return s
}

// ThenToolCall queues an assistant message requesting one tool call.
func (s *Scripted) ThenToolCall(id, name, args string) *Scripted {
	return s.Then(schema.AssistantMessage("", []schema.ToolCall{{
		ID:       id,
		Type:     "function",
		Function: schema.FunctionCall{Name: name, Arguments: args},
	}}))
}

func (s *Scripted) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, input)
	if len(s.replies) == 0 {
		return nil, ErrScriptExhausted
	}
	msg, err := s.replies[0], s.errs[0]
	s.replies, s.errs = s.replies[1:], s.errs[1:]
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *Scripted) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := s.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (s *Scripted) BindTools(tools []*schema.ToolInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools = tools
	return nil
}

// Calls returns the inputs of every Generate call so far.
func (s *Scripted) Calls() [][]*schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]*schema.Message(nil), s.calls...)
}

// Tools returns the last bound tools.
func (s *Scripted) Tools() []*schema.ToolInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tools
}

// Media is a MediaAnalyzer stub.
type Media struct {
	Text string
	Err  error

	mu    sync.Mutex
	Mimes []string
}

func (m *Media) Analyze(_ context.Context, _ string, _ []byte, mimeType string) (string, error) {
	m.mu.Lock()
	m.Mimes = append(m.Mimes, mimeType)
	m.mu.Unlock()
	return m.Text, m.Err
}
