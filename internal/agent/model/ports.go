package model

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicateMessage is returned by InteractionLog.Append for a message id
// that was already recorded.
var ErrDuplicateMessage = errors.New("message already recorded")

// Lookups that can legitimately miss (tenant, product, address, menu image)
// return a nil value and a nil error. Errors are reserved for store failures.

// Catalog is the read side of tenant, product and promotion data.
type Catalog interface {
	GetTenant(ctx context.Context, tenantID string) (*Tenant, error)
	GetProducts(ctx context.Context, tenantID string) ([]Product, error)
	GetProductByName(ctx context.Context, tenantID, name string) (*Product, error)
	GetLinkedAddons(ctx context.Context, productID int64) ([]Addon, error)
	GetActivePromotions(ctx context.Context, tenantID string) ([]Promotion, error)
	// GetProductPrice returns 0 for unknown products.
	GetProductPrice(ctx context.Context, tenantID, name string) (float64, error)
	GetLatestMenuImage(ctx context.Context, tenantID string) (*MenuImage, error)
}

type AddressStore interface {
	GetLastAddress(ctx context.Context, userID, tenantID string) (*SavedAddress, error)
	UpsertAddress(ctx context.Context, addr SavedAddress) error
}

type OrderRepository interface {
	SaveConfirmedOrder(ctx context.Context, order ConfirmedOrder) error
}

// InteractionLog is append-only; message ids are unique.
type InteractionLog interface {
	Exists(ctx context.Context, messageID string) (bool, error)
	Append(ctx context.Context, rec Interaction) error
}

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64
	Lng float64
}

// DistanceProvider returns road distance in meters and duration in seconds.
type DistanceProvider interface {
	DistanceAndDuration(ctx context.Context, origin, destination LatLng) (meters, seconds float64, err error)
}

// HandoffEvent is published when a conversation is handed to a human.
type HandoffEvent struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	TenantID  string    `json:"tenant_id"`
	StoreName string    `json:"store_name"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}

type Notifier interface {
	NotifyHandoff(ctx context.Context, ev HandoffEvent) error
}
