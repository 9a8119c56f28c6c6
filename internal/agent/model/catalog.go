package model

import "time"

// Tenant is one store using the platform.
type Tenant struct {
	ID            string `json:"tenant_id" bson:"tenant_id"`
	StoreName     string `json:"nome_loja" bson:"nome_loja"`
	Latitude      string `json:"latitude,omitempty" bson:"latitude,omitempty"`
	Longitude     string `json:"longitude,omitempty" bson:"longitude,omitempty"`
	FreightConfig string `json:"freight_config,omitempty" bson:"freight_config,omitempty"`
	Personality   string `json:"personality_prompt,omitempty" bson:"personality_prompt,omitempty"`
	Active        bool   `json:"is_active" bson:"is_active"`
}

// DisplayName returns the store name, or the tenant id when none is set.
func (t *Tenant) DisplayName() string {
	if t == nil {
		return ""
	}
	if t.StoreName != "" {
		return t.StoreName
	}
	return t.ID
}

// Product is a sellable catalog entry.
type Product struct {
	ID          int64   `json:"id" bson:"product_id"`
	TenantID    string  `json:"tenant_id" bson:"tenant_id"`
	Name        string  `json:"name" bson:"name"`
	Price       float64 `json:"price" bson:"price"`
	Description string  `json:"description,omitempty" bson:"description,omitempty"`
}

// Addon is an optional extra linked to one or more products.
type Addon struct {
	ID              int64   `json:"id" bson:"addon_id"`
	Name            string  `json:"nome_opcional" bson:"name"`
	AdditionalPrice float64 `json:"preco_adicional" bson:"additional_price"`
}

// Promotion is a tenant rule with machine-readable condition and action JSON.
type Promotion struct {
	ID            int64  `json:"id" bson:"promotion_id"`
	TenantID      string `json:"tenant_id" bson:"tenant_id"`
	Name          string `json:"nome" bson:"name"`
	DescriptionAI string `json:"descricao_para_ia" bson:"description_ai"`
	ConditionJSON string `json:"condicao_json,omitempty" bson:"condition_json,omitempty"`
	ActionJSON    string `json:"acao_json,omitempty" bson:"action_json,omitempty"`
	Active        bool   `json:"is_ativa" bson:"is_active"`
}

// SavedAddress is the last known delivery address for a user at a tenant.
type SavedAddress struct {
	UserID     string    `json:"user_phone" bson:"user_phone"`
	TenantID   string    `json:"tenant_id" bson:"tenant_id"`
	Text       string    `json:"address_text" bson:"address_text"`
	Latitude   *float64  `json:"latitude,omitempty" bson:"latitude,omitempty"`
	Longitude  *float64  `json:"longitude,omitempty" bson:"longitude,omitempty"`
	LastUsedAt time.Time `json:"last_used_at" bson:"last_used_at"`
}

// ConfirmedOrderItem carries the unit price resolved at confirmation time.
type ConfirmedOrderItem struct {
	ProductName string  `json:"product_name" bson:"product_name"`
	Quantity    int     `json:"quantity" bson:"quantity"`
	UnitPrice   float64 `json:"unit_price" bson:"unit_price"`
}

// ConfirmedOrder is the durable record written when the user confirms.
type ConfirmedOrder struct {
	ID             string               `json:"order_id" bson:"order_id"`
	UserID         string               `json:"user_phone" bson:"user_phone"`
	TenantID       string               `json:"tenant_id" bson:"tenant_id"`
	Items          []ConfirmedOrderItem `json:"items" bson:"items"`
	Total          float64              `json:"total" bson:"total"`
	Address        string               `json:"address,omitempty" bson:"address,omitempty"`
	DeliveryMethod DeliveryMethod       `json:"delivery_method,omitempty" bson:"delivery_method,omitempty"`
	Latitude       *float64             `json:"latitude,omitempty" bson:"latitude,omitempty"`
	Longitude      *float64             `json:"longitude,omitempty" bson:"longitude,omitempty"`
	Freight        *FreightResult       `json:"freight,omitempty" bson:"freight,omitempty"`
	CreatedAt      time.Time            `json:"created_at" bson:"created_at"`
}

// Interaction is one processed inbound message and the reply sent for it.
type Interaction struct {
	ID        string    `json:"id" bson:"interaction_id"`
	MessageID string    `json:"whatsapp_message_id" bson:"message_id"`
	UserID    string    `json:"user_phone" bson:"user_phone"`
	TenantID  string    `json:"tenant_id" bson:"tenant_id"`
	UserText  string    `json:"message_from_user" bson:"user_text"`
	AIText    string    `json:"ai_response" bson:"ai_text"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// MenuImage is a tenant menu picture; the newest one is dispatched.
type MenuImage struct {
	TenantID  string    `json:"tenant_id" bson:"tenant_id"`
	URL       string    `json:"image_url" bson:"image_url"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
