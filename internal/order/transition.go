package order

import "github.com/Chative-commerce/server/internal/agent/model"

// Transition is the pure pending-confirmation table. hasSavedAddress only
// matters when choosing delivery. Non-pending statuses are returned as is.
func Transition(status model.OrderStatus, signal model.DeliverySignal, hasSavedAddress bool) model.OrderStatus {
	switch status {
	case model.StatusPendingDeliveryMethod:
		switch signal {
		case model.SignalDelivery:
			if hasSavedAddress {
				return model.StatusPendingAddressConfirmation
			}
			return model.StatusPendingAddressInput
		case model.SignalPickup:
			return model.StatusPendingFinalConfirmation
		default:
			return status
		}
	case model.StatusPendingAddressConfirmation:
		if signal == model.SignalYes {
			return model.StatusPendingFinalConfirmation
		}
		return model.StatusPendingAddressInput
	case model.StatusPendingAddressInput:
		return model.StatusPendingFinalConfirmation
	case model.StatusPendingFinalConfirmation:
		if signal == model.SignalYes {
			return model.StatusConfirmed
		}
		return model.StatusOpen
	default:
		return status
	}
}

// NeedsSignal reports whether the status requires the single-word classifier.
// While waiting for an address the whole message is the answer.
func NeedsSignal(status model.OrderStatus) bool {
	return status.IsPending() && status != model.StatusPendingAddressInput
}
