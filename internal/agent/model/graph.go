package model

import (
	"github.com/cloudwego/eino/schema"
)

// AppState stores per-invocation state for the Eino Graph.
// It is registered as Graph Local State via compose.WithGenLocalState and is
// only touched inside state handlers or compose.ProcessState.
type AppState struct {
	SessionID string
	TenantID  string
	Step      *StepContext

	// Recent is the stored transcript before the current message.
	Recent []*schema.Message
	// History is the formulator transcript of this run, tool turns included.
	History []*schema.Message

	ToolCallCount        int
	ToolCallLimitReached bool
	ToolCallIDSeq        int

	// Accumulated LLM cost (USD) across model invocations for this run.
	TotalCostUSD float64
}

// QueryInput is the graph input for one inbound message.
type QueryInput struct {
	SessionID   string      `json:"session_id"`
	UserID      string      `json:"user_id"`
	TenantID    string      `json:"tenant_id"`
	MessageID   string      `json:"message_id"`
	Text        string      `json:"text"`
	Personality string      `json:"personality,omitempty"`
	StoreName   string      `json:"store_name,omitempty"`
	File        []byte      `json:"-"`
	MimeType    string      `json:"mime_type,omitempty"`
	Latitude    *float64    `json:"latitude,omitempty"`
	Longitude   *float64    `json:"longitude,omitempty"`
	Order       *OrderState `json:"order,omitempty"`
}

// AIResponse is the structured reply produced for one message.
type AIResponse struct {
	ResponseText   string         `json:"response_text"`
	HumanHandoff   bool           `json:"human_handoff"`
	SendMenu       bool           `json:"send_menu"`
	FreightDetails *FreightResult `json:"freight_details,omitempty"`
	FileSummary    *FileSummary   `json:"file_summary,omitempty"`

	// Formulated is true when the reply went through the response formulator,
	// which makes it eligible for greeting injection.
	Formulated bool `json:"-"`
	// Duplicate marks the short-circuit reply for an already processed message id.
	Duplicate bool `json:"-"`
	// Committed is set once a confirmed order was written to the durable store.
	Committed bool `json:"-"`
	// Order is the state to persist for the session after this run.
	Order *OrderState `json:"-"`
}
