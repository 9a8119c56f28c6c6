package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Chative-commerce/server/internal/agent/model"
	logx "github.com/Chative-commerce/server/pkg/logger"
)

const (
	MsgSavedAddress      = "A entrega será no seu endereço salvo: **%s**? (sim/não)"
	MsgAskAddress        = "Qual o endereço para a entrega?"
	MsgPickupTotal       = "Perfeito! O total para retirada é R$ %.2f. Posso confirmar o pedido?"
	MsgUnknownDelivery   = "Não entendi. Por favor, diga se é para **entrega** ou **retirada**."
	MsgAddressConfirmed  = "Ok, endereço confirmado. Calculando frete..."
	MsgAskNewAddress     = "Ok. Qual o novo endereço para a entrega?"
	MsgAddressSaved      = "Endereço salvo: **%s**. Calculando frete..."
	MsgAddressEmpty      = "Não recebi o endereço. Por favor, digite a rua, o número e o bairro para a entrega."
	MsgOrderConfirmed    = "Seu pedido foi confirmado e enviado para a preparação! Agradecemos a preferência."
	MsgOrderNotFinalized = "Ok, o pedido não foi finalizado. O que você gostaria de fazer?"
)

// FreightQuoter prices a delivery to the given client coordinates.
type FreightQuoter interface {
	Calculate(ctx context.Context, tenantID string, lat, lng float64) (*model.FreightResult, string)
}

// PendingHandler advances an order through delivery and confirmation.
type PendingHandler struct {
	Addresses model.AddressStore
	Orders    model.OrderRepository
	Prices    PriceLookup
	// Freight is optional; without it no freight is attached on delivery.
	Freight FreightQuoter
	Now     func() time.Time
}

// PendingInput is one user turn while the order is pending.
type PendingInput struct {
	UserID    string
	TenantID  string
	Text      string
	Signal    model.DeliverySignal
	Latitude  *float64
	Longitude *float64
}

func (h *PendingHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// Handle mutates o according to the transition table and returns the reply.
// Collaborator failures are logged and never block the reply.
func (h *PendingHandler) Handle(ctx context.Context, o *model.OrderState, in PendingInput) model.AIResponse {
	var resp model.AIResponse
	log := logx.With("user_id", in.UserID, "tenant_id", in.TenantID, "status", string(o.Status))

	switch o.Status {
	case model.StatusPendingDeliveryMethod:
		var saved *model.SavedAddress
		if in.Signal == model.SignalDelivery {
			o.DeliveryMethod = model.DeliveryHome
			var err error
			saved, err = h.Addresses.GetLastAddress(ctx, in.UserID, in.TenantID)
			if err != nil {
				log.Warn().Err(err).Msg("saved address lookup failed")
				saved = nil
			}
		}
		next := Transition(o.Status, in.Signal, saved != nil && saved.Text != "")
		switch next {
		case model.StatusPendingAddressConfirmation:
			o.Address = saved.Text
			resp.ResponseText = fmt.Sprintf(MsgSavedAddress, saved.Text)
		case model.StatusPendingAddressInput:
			resp.ResponseText = MsgAskAddress
		case model.StatusPendingFinalConfirmation:
			o.DeliveryMethod = model.DeliveryPickup
			o.Freight = nil
			total, err := Subtotal(ctx, h.Prices, in.TenantID, o.Items)
			if err != nil {
				log.Warn().Err(err).Msg("subtotal failed")
			}
			resp.ResponseText = fmt.Sprintf(MsgPickupTotal, total)
		default:
			resp.ResponseText = MsgUnknownDelivery
		}
		o.Status = next

	case model.StatusPendingAddressConfirmation:
		next := Transition(o.Status, in.Signal, false)
		if next == model.StatusPendingFinalConfirmation {
			resp.ResponseText = MsgAddressConfirmed
			lat, lng := in.Latitude, in.Longitude
			if saved, err := h.Addresses.GetLastAddress(ctx, in.UserID, in.TenantID); err == nil && saved != nil && saved.Latitude != nil && saved.Longitude != nil {
				lat, lng = saved.Latitude, saved.Longitude
			}
			resp.FreightDetails = h.quote(ctx, o, in.TenantID, lat, lng)
		} else {
			resp.ResponseText = MsgAskNewAddress
		}
		o.Status = next

	case model.StatusPendingAddressInput:
		addr := strings.TrimSpace(in.Text)
		if addr == "" {
			resp.ResponseText = MsgAddressEmpty
			break
		}
		o.Address = addr
		o.DeliveryMethod = model.DeliveryHome
		err := h.Addresses.UpsertAddress(ctx, model.SavedAddress{
			UserID:     in.UserID,
			TenantID:   in.TenantID,
			Text:       addr,
			Latitude:   in.Latitude,
			Longitude:  in.Longitude,
			LastUsedAt: h.now(),
		})
		if err != nil {
			log.Warn().Err(err).Msg("address upsert failed")
		}
		resp.ResponseText = fmt.Sprintf(MsgAddressSaved, addr)
		resp.FreightDetails = h.quote(ctx, o, in.TenantID, in.Latitude, in.Longitude)
		o.Status = Transition(o.Status, in.Signal, false)

	case model.StatusPendingFinalConfirmation:
		if Transition(o.Status, in.Signal, false) == model.StatusConfirmed {
			resp.Committed = h.persist(ctx, o, in)
			resp.ResponseText = MsgOrderConfirmed
			Clear(o)
		} else {
			o.Status = model.StatusOpen
			resp.ResponseText = MsgOrderNotFinalized
		}
	}

	resp.Order = o
	return resp
}

func (h *PendingHandler) quote(ctx context.Context, o *model.OrderState, tenantID string, lat, lng *float64) *model.FreightResult {
	if h.Freight == nil || lat == nil || lng == nil {
		return nil
	}
	res, msg := h.Freight.Calculate(ctx, tenantID, *lat, *lng)
	if res == nil {
		logx.Warn().Str("tenant_id", tenantID).Str("reason", msg).Msg("freight quote unavailable")
		return nil
	}
	o.Freight = res
	return res
}

// persist reports whether the confirmed order reached the store.
func (h *PendingHandler) persist(ctx context.Context, o *model.OrderState, in PendingInput) bool {
	items, subtotal, err := Priced(ctx, h.Prices, in.TenantID, o.Items)
	if err != nil {
		logx.Error().Err(err).Str("tenant_id", in.TenantID).Msg("pricing confirmed order failed")
		return false
	}
	total := subtotal
	if o.Freight != nil && o.Freight.Cost != nil {
		total += *o.Freight.Cost
	}
	rec := model.ConfirmedOrder{
		ID:             uuid.NewString(),
		UserID:         in.UserID,
		TenantID:       in.TenantID,
		Items:          items,
		Total:          total,
		Address:        o.Address,
		DeliveryMethod: o.DeliveryMethod,
		Latitude:       in.Latitude,
		Longitude:      in.Longitude,
		Freight:        o.Freight,
		CreatedAt:      h.now(),
	}
	if err := h.Orders.SaveConfirmedOrder(ctx, rec); err != nil {
		logx.Error().Err(err).Str("order_id", rec.ID).Str("tenant_id", in.TenantID).Msg("saving confirmed order failed")
		return false
	}
	logx.Info().Str("order_id", rec.ID).Str("tenant_id", in.TenantID).Float64("total", total).Msg("order confirmed")
	return true
}
