// Package notify delivers human-handoff alerts to store operators.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Chative-commerce/server/internal/agent/model"
)

// Multi fans an event out to every notifier and joins their errors.
type Multi []model.Notifier

func (m Multi) NotifyHandoff(ctx context.Context, ev model.HandoffEvent) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.NotifyHandoff(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Format renders the operator alert text.
func Format(ev model.HandoffEvent) string {
	store := ev.StoreName
	if store == "" {
		store = ev.TenantID
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Atendimento humano solicitado em %s\n", store)
	fmt.Fprintf(&b, "Cliente: %s\n", ev.UserID)
	if msg := strings.TrimSpace(ev.Message); msg != "" {
		fmt.Fprintf(&b, "Mensagem: %s\n", msg)
	}
	b.WriteString(ev.At.Format("02/01/2006 15:04"))
	return b.String()
}
