// Package order holds the cart state machine. Everything here operates on a
// caller-owned *model.OrderState; persistence happens elsewhere.
package order

import (
	"context"
	"fmt"
	"strings"

	"github.com/Chative-commerce/server/internal/agent/model"
)

// PriceLookup resolves unit prices by product name.
type PriceLookup interface {
	GetProductPrice(ctx context.Context, tenantID, name string) (float64, error)
}

// AddItems appends items without merging duplicates. A confirmed or
// cancelled order is replaced by a fresh open one first.
func AddItems(o *model.OrderState, items []model.OrderItem) *model.OrderState {
	if o == nil || o.Status.IsTerminal() {
		o = model.NewOrderState()
	}
	for _, it := range items {
		name := strings.TrimSpace(it.ProductName)
		if name == "" {
			continue
		}
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		o.Items = append(o.Items, model.OrderItem{ProductName: name, Quantity: qty})
	}
	return o
}

// RemoveItems takes quantities off matching lines (case-insensitive name),
// dropping lines that reach zero. It returns what was actually removed.
func RemoveItems(o *model.OrderState, items []model.OrderItem) []model.OrderItem {
	if o == nil || o.Status.IsTerminal() {
		return nil
	}
	var removed []model.OrderItem
	for _, it := range items {
		name := strings.TrimSpace(it.ProductName)
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		taken := 0
		for i := len(o.Items) - 1; i >= 0 && taken < qty; i-- {
			if !strings.EqualFold(o.Items[i].ProductName, name) {
				continue
			}
			n := min(o.Items[i].Quantity, qty-taken)
			o.Items[i].Quantity -= n
			taken += n
			if o.Items[i].Quantity == 0 {
				o.Items = append(o.Items[:i], o.Items[i+1:]...)
			}
		}
		if taken > 0 {
			removed = append(removed, model.OrderItem{ProductName: name, Quantity: taken})
		}
	}
	return removed
}

// MarkFinal moves an open order with items into delivery-method selection.
// It reports whether the status changed.
func MarkFinal(o *model.OrderState) bool {
	if o == nil || o.IsEmpty() || o.Status.IsPending() {
		return false
	}
	o.Status = model.StatusPendingDeliveryMethod
	return true
}

// Clear empties the cart after a successful confirmation.
func Clear(o *model.OrderState) {
	o.Items = []model.OrderItem{}
	o.Address = ""
	o.DeliveryMethod = ""
	o.Freight = nil
	o.Status = model.StatusConfirmed
}

// LastItem returns the most recently added line.
func LastItem(o *model.OrderState) (model.OrderItem, bool) {
	if o.IsEmpty() {
		return model.OrderItem{}, false
	}
	return o.Items[len(o.Items)-1], true
}

// Priced resolves unit prices for every line and returns the subtotal.
func Priced(ctx context.Context, prices PriceLookup, tenantID string, items []model.OrderItem) ([]model.ConfirmedOrderItem, float64, error) {
	out := make([]model.ConfirmedOrderItem, 0, len(items))
	var subtotal float64
	for _, it := range items {
		p, err := prices.GetProductPrice(ctx, tenantID, it.ProductName)
		if err != nil {
			return nil, 0, fmt.Errorf("price of %q: %w", it.ProductName, err)
		}
		out = append(out, model.ConfirmedOrderItem{ProductName: it.ProductName, Quantity: it.Quantity, UnitPrice: p})
		subtotal += p * float64(it.Quantity)
	}
	return out, subtotal, nil
}

// Subtotal is the sum of quantity times unit price.
func Subtotal(ctx context.Context, prices PriceLookup, tenantID string, items []model.OrderItem) (float64, error) {
	_, total, err := Priced(ctx, prices, tenantID, items)
	return total, err
}

// Summary renders "2x X, 1x Y".
func Summary(items []model.OrderItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%dx %s", it.Quantity, it.ProductName))
	}
	return strings.Join(parts, ", ")
}
