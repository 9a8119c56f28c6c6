package model

import "strings"

// OrderStatus is the lifecycle position of an in-progress order.
type OrderStatus string

const (
	StatusOpen                       OrderStatus = "open"
	StatusPendingDeliveryMethod      OrderStatus = "pending_delivery_method"
	StatusPendingAddressConfirmation OrderStatus = "pending_address_confirmation"
	StatusPendingAddressInput        OrderStatus = "pending_address_input"
	StatusPendingFinalConfirmation   OrderStatus = "pending_final_confirmation"
	StatusConfirmed                  OrderStatus = "confirmed"
	StatusCancelled                  OrderStatus = "cancelled"
)

// IsPending reports whether the status belongs to the confirmation sub-machine.
func (s OrderStatus) IsPending() bool {
	return strings.HasPrefix(string(s), "pending_")
}

// IsTerminal reports whether the order is finished.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

// DeliveryMethod chosen while confirming an order.
type DeliveryMethod string

const (
	DeliveryHome   DeliveryMethod = "entrega"
	DeliveryPickup DeliveryMethod = "retirada"
)

// OrderItem is one cart line. The same product may appear several times.
type OrderItem struct {
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
}

// OrderState is the per-session cart and confirmation progress.
type OrderState struct {
	Items          []OrderItem    `json:"items"`
	Address        string         `json:"address,omitempty"`
	DeliveryMethod DeliveryMethod `json:"delivery_method,omitempty"`
	Status         OrderStatus    `json:"status"`
	Freight        *FreightResult `json:"freight,omitempty"`
}

// NewOrderState returns an empty open order.
func NewOrderState() *OrderState {
	return &OrderState{Items: []OrderItem{}, Status: StatusOpen}
}

// Clone returns a deep copy so a pipeline run can mutate it freely.
func (o *OrderState) Clone() *OrderState {
	if o == nil {
		return NewOrderState()
	}
	c := *o
	c.Items = make([]OrderItem, len(o.Items))
	copy(c.Items, o.Items)
	if o.Freight != nil {
		f := *o.Freight
		if o.Freight.Cost != nil {
			cost := *o.Freight.Cost
			f.Cost = &cost
		}
		c.Freight = &f
	}
	if c.Status == "" {
		c.Status = StatusOpen
	}
	return &c
}

// IsEmpty reports whether the cart has no items.
func (o *OrderState) IsEmpty() bool {
	return o == nil || len(o.Items) == 0
}
