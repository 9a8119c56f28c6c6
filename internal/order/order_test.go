package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-commerce/server/internal/agent/model"
)

type fakePrices map[string]float64

func (f fakePrices) GetProductPrice(_ context.Context, _ string, name string) (float64, error) {
	return f[name], nil
}

type fakeAddresses struct {
	saved    *model.SavedAddress
	upserted []model.SavedAddress
	err      error
}

func (f *fakeAddresses) GetLastAddress(context.Context, string, string) (*model.SavedAddress, error) {
	return f.saved, f.err
}

func (f *fakeAddresses) UpsertAddress(_ context.Context, a model.SavedAddress) error {
	f.upserted = append(f.upserted, a)
	return nil
}

type fakeOrders struct {
	saved []model.ConfirmedOrder
	err   error
}

func (f *fakeOrders) SaveConfirmedOrder(_ context.Context, o model.ConfirmedOrder) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, o)
	return nil
}

type fakeFreight struct{ cost float64 }

func (f fakeFreight) Calculate(context.Context, string, float64, float64) (*model.FreightResult, string) {
	c := f.cost
	return &model.FreightResult{DistanceKM: 4, DurationMinutes: 10, Cost: &c}, ""
}

func ptr(f float64) *float64 { return &f }

func newHandler() (*PendingHandler, *fakeAddresses, *fakeOrders) {
	addrs := &fakeAddresses{}
	orders := &fakeOrders{}
	h := &PendingHandler{
		Addresses: addrs,
		Orders:    orders,
		Prices:    fakePrices{"Pizza": 40, "Coca": 8},
		Freight:   fakeFreight{cost: 7},
		Now:       func() time.Time { return time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC) },
	}
	return h, addrs, orders
}

func TestAddItemsKeepsOrderAndDuplicates(t *testing.T) {
	o := model.NewOrderState()
	o = AddItems(o, []model.OrderItem{{ProductName: "Pizza", Quantity: 2}, {ProductName: "Coca", Quantity: 1}})
	o = AddItems(o, []model.OrderItem{{ProductName: "Pizza", Quantity: 1}})

	require.Len(t, o.Items, 3)
	assert.Equal(t, "Pizza", o.Items[0].ProductName)
	assert.Equal(t, "Coca", o.Items[1].ProductName)
	assert.Equal(t, "Pizza", o.Items[2].ProductName)
	assert.Equal(t, "2x Pizza, 1x Coca, 1x Pizza", Summary(o.Items))
}

func TestAddItemsAfterConfirmationStartsFresh(t *testing.T) {
	o := &model.OrderState{Status: model.StatusConfirmed, Items: []model.OrderItem{}}
	o = AddItems(o, []model.OrderItem{{ProductName: "Coca", Quantity: 0}})
	assert.Equal(t, model.StatusOpen, o.Status)
	assert.Equal(t, []model.OrderItem{{ProductName: "Coca", Quantity: 1}}, o.Items)
}

func TestRemoveItemsTakesFromTheEnd(t *testing.T) {
	o := AddItems(model.NewOrderState(), []model.OrderItem{
		{ProductName: "Pizza", Quantity: 2},
		{ProductName: "Coca", Quantity: 1},
		{ProductName: "Pizza", Quantity: 1},
	})

	removed := RemoveItems(o, []model.OrderItem{{ProductName: "Pizza", Quantity: 2}, {ProductName: "Água", Quantity: 1}})
	assert.Equal(t, []model.OrderItem{{ProductName: "Pizza", Quantity: 2}}, removed)
	assert.Equal(t, []model.OrderItem{{ProductName: "Pizza", Quantity: 1}, {ProductName: "Coca", Quantity: 1}}, o.Items)

	removed = RemoveItems(o, []model.OrderItem{{ProductName: " coca "}})
	assert.Equal(t, []model.OrderItem{{ProductName: "coca", Quantity: 1}}, removed)
	assert.Equal(t, []model.OrderItem{{ProductName: "Pizza", Quantity: 1}}, o.Items)
}

func TestRemoveItemsIgnoresConfirmedOrder(t *testing.T) {
	o := &model.OrderState{Status: model.StatusConfirmed, Items: []model.OrderItem{{ProductName: "Pizza", Quantity: 1}}}
	assert.Nil(t, RemoveItems(o, []model.OrderItem{{ProductName: "Pizza", Quantity: 1}}))
	assert.Len(t, o.Items, 1)
}

func TestMarkFinal(t *testing.T) {
	o := model.NewOrderState()
	assert.False(t, MarkFinal(o), "empty order stays open")

	o = AddItems(o, []model.OrderItem{{ProductName: "Pizza", Quantity: 1}, {ProductName: "Coca", Quantity: 2}})
	assert.True(t, MarkFinal(o))
	assert.Equal(t, model.StatusPendingDeliveryMethod, o.Status)
	assert.Len(t, o.Items, 2)
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from   model.OrderStatus
		signal model.DeliverySignal
		saved  bool
		want   model.OrderStatus
	}{
		{model.StatusPendingDeliveryMethod, model.SignalDelivery, true, model.StatusPendingAddressConfirmation},
		{model.StatusPendingDeliveryMethod, model.SignalDelivery, false, model.StatusPendingAddressInput},
		{model.StatusPendingDeliveryMethod, model.SignalPickup, false, model.StatusPendingFinalConfirmation},
		{model.StatusPendingDeliveryMethod, model.SignalOther, false, model.StatusPendingDeliveryMethod},
		{model.StatusPendingAddressConfirmation, model.SignalYes, false, model.StatusPendingFinalConfirmation},
		{model.StatusPendingAddressConfirmation, model.SignalNo, false, model.StatusPendingAddressInput},
		{model.StatusPendingAddressInput, model.SignalOther, false, model.StatusPendingFinalConfirmation},
		{model.StatusPendingFinalConfirmation, model.SignalYes, false, model.StatusConfirmed},
		{model.StatusPendingFinalConfirmation, model.SignalNo, false, model.StatusOpen},
		{model.StatusOpen, model.SignalYes, false, model.StatusOpen},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Transition(c.from, c.signal, c.saved), "%s/%s", c.from, c.signal)
	}
}

func TestPickupGoesToFinalConfirmationWithTotal(t *testing.T) {
	h, _, _ := newHandler()
	o := &model.OrderState{Status: model.StatusPendingDeliveryMethod, Items: []model.OrderItem{{ProductName: "Pizza", Quantity: 2}, {ProductName: "Coca", Quantity: 1}}}

	resp := h.Handle(context.Background(), o, PendingInput{Signal: model.SignalPickup})

	assert.Equal(t, model.StatusPendingFinalConfirmation, o.Status)
	assert.Equal(t, model.DeliveryPickup, o.DeliveryMethod)
	assert.Empty(t, o.Address)
	assert.Equal(t, "Perfeito! O total para retirada é R$ 88.00. Posso confirmar o pedido?", resp.ResponseText)
}

func TestDeliveryWithSavedAddress(t *testing.T) {
	h, addrs, _ := newHandler()
	addrs.saved = &model.SavedAddress{Text: "Rua A, 10"}
	o := &model.OrderState{Status: model.StatusPendingDeliveryMethod, Items: []model.OrderItem{{ProductName: "Pizza", Quantity: 1}}}

	resp := h.Handle(context.Background(), o, PendingInput{Signal: model.SignalDelivery})

	assert.Equal(t, model.StatusPendingAddressConfirmation, o.Status)
	assert.Equal(t, "Rua A, 10", o.Address)
	assert.Equal(t, "A entrega será no seu endereço salvo: **Rua A, 10**? (sim/não)", resp.ResponseText)
}

func TestDeliveryWithoutSavedAddressAsksForIt(t *testing.T) {
	h, addrs, _ := newHandler()
	addrs.err = errors.New("db down")
	o := &model.OrderState{Status: model.StatusPendingDeliveryMethod, Items: []model.OrderItem{{ProductName: "Pizza", Quantity: 1}}}

	resp := h.Handle(context.Background(), o, PendingInput{Signal: model.SignalDelivery})

	assert.Equal(t, model.StatusPendingAddressInput, o.Status)
	assert.Equal(t, MsgAskAddress, resp.ResponseText)
}

func TestUnknownDeliverySignalAsksAgain(t *testing.T) {
	h, _, _ := newHandler()
	o := &model.OrderState{Status: model.StatusPendingDeliveryMethod, Items: []model.OrderItem{{ProductName: "Pizza", Quantity: 1}}}

	resp := h.Handle(context.Background(), o, PendingInput{Signal: model.SignalOther})

	assert.Equal(t, model.StatusPendingDeliveryMethod, o.Status)
	assert.Equal(t, MsgUnknownDelivery, resp.ResponseText)
}

func TestAddressInputSavesAndQuotes(t *testing.T) {
	h, addrs, _ := newHandler()
	o := &model.OrderState{Status: model.StatusPendingAddressInput, Items: []model.OrderItem{{ProductName: "Pizza", Quantity: 1}}}

	resp := h.Handle(context.Background(), o, PendingInput{
		UserID: "5511", TenantID: "t1", Text: " Rua B, 20 ", Latitude: ptr(-23.5), Longitude: ptr(-46.6),
	})

	assert.Equal(t, model.StatusPendingFinalConfirmation, o.Status)
	assert.Equal(t, "Rua B, 20", o.Address)
	assert.Equal(t, "Endereço salvo: **Rua B, 20**. Calculando frete...", resp.ResponseText)
	require.Len(t, addrs.upserted, 1)
	assert.Equal(t, "Rua B, 20", addrs.upserted[0].Text)
	require.NotNil(t, resp.FreightDetails)
	require.NotNil(t, o.Freight)
	assert.Equal(t, 7.0, *o.Freight.Cost)
}

func TestEmptyAddressInputAsksAgain(t *testing.T) {
	h, addrs, _ := newHandler()
	o := &model.OrderState{Status: model.StatusPendingAddressInput, Items: []model.OrderItem{{ProductName: "Pizza", Quantity: 1}}}

	resp := h.Handle(context.Background(), o, PendingInput{
		UserID: "5511", TenantID: "t1", Text: "  ", Latitude: ptr(-23.5), Longitude: ptr(-46.6),
	})

	assert.Equal(t, model.StatusPendingAddressInput, o.Status)
	assert.Empty(t, o.Address)
	assert.Equal(t, MsgAddressEmpty, resp.ResponseText)
	assert.Empty(t, addrs.upserted)
	assert.Nil(t, resp.FreightDetails)
}

func TestAddressRejectedAsksForNewOne(t *testing.T) {
	h, _, _ := newHandler()
	o := &model.OrderState{Status: model.StatusPendingAddressConfirmation, Address: "Rua A"}

	resp := h.Handle(context.Background(), o, PendingInput{Signal: model.SignalNo})

	assert.Equal(t, model.StatusPendingAddressInput, o.Status)
	assert.Equal(t, MsgAskNewAddress, resp.ResponseText)
}

func TestFinalConfirmationPersistsAndClears(t *testing.T) {
	h, _, orders := newHandler()
	cost := 7.0
	o := &model.OrderState{
		Status:         model.StatusPendingFinalConfirmation,
		Items:          []model.OrderItem{{ProductName: "Pizza", Quantity: 2}},
		Address:        "Rua B",
		DeliveryMethod: model.DeliveryHome,
		Freight:        &model.FreightResult{DistanceKM: 4, Cost: &cost},
	}

	resp := h.Handle(context.Background(), o, PendingInput{UserID: "u", TenantID: "t", Signal: model.SignalYes})

	assert.Equal(t, MsgOrderConfirmed, resp.ResponseText)
	assert.Equal(t, model.StatusConfirmed, o.Status)
	assert.Empty(t, o.Items)
	assert.Nil(t, o.Freight)
	require.Len(t, orders.saved, 1)
	assert.True(t, resp.Committed)
	assert.Equal(t, 87.0, orders.saved[0].Total)
	assert.NotEmpty(t, orders.saved[0].ID)
	assert.Equal(t, 40.0, orders.saved[0].Items[0].UnitPrice)
}

func TestFinalConfirmationPersistFailureStillReplies(t *testing.T) {
	h, _, orders := newHandler()
	orders.err = errors.New("disk full")
	o := &model.OrderState{Status: model.StatusPendingFinalConfirmation, Items: []model.OrderItem{{ProductName: "Pizza", Quantity: 1}}}

	resp := h.Handle(context.Background(), o, PendingInput{Signal: model.SignalYes})

	assert.Equal(t, MsgOrderConfirmed, resp.ResponseText)
	assert.False(t, resp.Committed)
	assert.Empty(t, o.Items)
}

func TestFinalDeclineKeepsItems(t *testing.T) {
	h, _, orders := newHandler()
	o := &model.OrderState{Status: model.StatusPendingFinalConfirmation, Items: []model.OrderItem{{ProductName: "Pizza", Quantity: 1}}}

	resp := h.Handle(context.Background(), o, PendingInput{Signal: model.SignalNo})

	assert.Equal(t, model.StatusOpen, o.Status)
	assert.Len(t, o.Items, 1)
	assert.Equal(t, MsgOrderNotFinalized, resp.ResponseText)
	assert.Empty(t, orders.saved)
}

func TestNeedsSignal(t *testing.T) {
	assert.True(t, NeedsSignal(model.StatusPendingDeliveryMethod))
	assert.False(t, NeedsSignal(model.StatusPendingAddressInput))
	assert.False(t, NeedsSignal(model.StatusOpen))
}
