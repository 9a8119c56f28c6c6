package model

import (
	"strings"
	"unicode"
)

// TaskType is the closed vocabulary the intent classifier emits.
type TaskType string

const (
	TaskAddItem         TaskType = "adicionar_item"
	TaskRemoveItem      TaskType = "remover_item"
	TaskConfirmOrder    TaskType = "confirmar_pedido"
	TaskCheckPromotion  TaskType = "verificar_promocao"
	TaskGeneralQuestion TaskType = "fazer_pergunta_geral"
	TaskHumanHandoff    TaskType = "falar_com_humano"
	TaskMenu            TaskType = "menu"
	TaskFreight         TaskType = "frete"
)

// TaskTypes lists the known task types in prompt order.
func TaskTypes() []TaskType {
	return []TaskType{
		TaskAddItem, TaskRemoveItem, TaskConfirmOrder, TaskCheckPromotion,
		TaskGeneralQuestion, TaskHumanHandoff, TaskMenu, TaskFreight,
	}
}

// NormalizeTaskType lower-cases and trims a raw model label.
func NormalizeTaskType(s string) TaskType {
	return TaskType(strings.ToLower(strings.TrimSpace(s)))
}

// Task is one identified user request.
type Task struct {
	Type    TaskType `json:"task_type"`
	Details string   `json:"details"`
}

// IntentAnalysis is the classifier output for a single inbound message.
type IntentAnalysis struct {
	Tasks   []Task `json:"tasks"`
	Urgency bool   `json:"urgency"`
	// Fallback is true when the analysis was synthesised after a classifier failure.
	Fallback bool           `json:"fallback,omitempty"`
	Metadata map[string]any `json:"-"`
}

// FallbackAnalysis is used whenever classification fails.
func FallbackAnalysis(text string) IntentAnalysis {
	return IntentAnalysis{
		Tasks:    []Task{{Type: TaskGeneralQuestion, Details: text}},
		Fallback: true,
	}
}

// FirstTask returns the task the router acts on, or false when there is none.
func (a IntentAnalysis) FirstTask() (Task, bool) {
	if len(a.Tasks) == 0 {
		return Task{}, false
	}
	return a.Tasks[0], true
}

// DeliverySignal is the single-word answer used while an order is pending.
type DeliverySignal string

const (
	SignalDelivery DeliverySignal = "entrega"
	SignalPickup   DeliverySignal = "retirada"
	SignalYes      DeliverySignal = "sim"
	SignalNo       DeliverySignal = "não"
	SignalOther    DeliverySignal = "outro"
)

var signalWords = []struct {
	signal DeliverySignal
	words  []string
}{
	{SignalNo, []string{"não", "nao"}},
	{SignalDelivery, []string{"entrega", "entregar"}},
	{SignalPickup, []string{"retirada", "retirar", "buscar"}},
	{SignalYes, []string{"sim"}},
}

// ParseDeliverySignal maps free model output onto a DeliverySignal.
// Matching is by whole word so "Sim." or "quero entrega" still resolve;
// a negation wins over any other word.
func ParseDeliverySignal(s string) DeliverySignal {
	words := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool { return !unicode.IsLetter(r) }) {
		words[w] = struct{}{}
	}
	for _, sw := range signalWords {
		for _, w := range sw.words {
			if _, ok := words[w]; ok {
				return sw.signal
			}
		}
	}
	return SignalOther
}
