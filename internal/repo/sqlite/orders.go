package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Chative-commerce/server/internal/agent/model"
	errx "github.com/Chative-commerce/server/internal/core/error"
)

func (s *Store) GetLastAddress(ctx context.Context, userID, tenantID string) (*model.SavedAddress, error) {
	var (
		a        model.SavedAddress
		lat, lng sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_phone, tenant_id, address_text, latitude, longitude, last_used_at
		 FROM saved_addresses WHERE user_phone = ? AND tenant_id = ?`, userID, tenantID,
	).Scan(&a.UserID, &a.TenantID, &a.Text, &lat, &lng, &a.LastUsedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errx.WrapSQL(err)
	}
	a.Latitude, a.Longitude = floatPtr(lat), floatPtr(lng)
	return &a, nil
}

// UpsertAddress keeps one address per (user, tenant); the last write wins.
func (s *Store) UpsertAddress(ctx context.Context, a model.SavedAddress) error {
	if a.LastUsedAt.IsZero() {
		a.LastUsedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO saved_addresses (user_phone, tenant_id, address_text, latitude, longitude, last_used_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_phone, tenant_id) DO UPDATE SET
			address_text = excluded.address_text,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			last_used_at = excluded.last_used_at`,
		a.UserID, a.TenantID, a.Text, nullFloat(a.Latitude), nullFloat(a.Longitude), a.LastUsedAt.UTC())
	return errx.WrapSQL(err)
}

func (s *Store) SaveConfirmedOrder(ctx context.Context, o model.ConfirmedOrder) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal items: %w", err)
	}
	var freight sql.NullString
	if o.Freight != nil {
		raw, err := json.Marshal(o.Freight)
		if err != nil {
			return fmt.Errorf("failed to marshal freight: %w", err)
		}
		freight = sql.NullString{String: string(raw), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO confirmed_orders
			(order_id, user_phone, tenant_id, items, total, address, delivery_method, latitude, longitude, freight, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.UserID, o.TenantID, string(items), o.Total, o.Address, string(o.DeliveryMethod),
		nullFloat(o.Latitude), nullFloat(o.Longitude), freight, o.CreatedAt.UTC())
	return errx.WrapSQL(err)
}

// ListConfirmedOrders returns a tenant's orders, newest first.
func (s *Store) ListConfirmedOrders(ctx context.Context, tenantID string) ([]model.ConfirmedOrder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT order_id, user_phone, tenant_id, items, total, address, delivery_method, latitude, longitude, freight, created_at
		 FROM confirmed_orders WHERE tenant_id = ? ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, errx.WrapSQL(err)
	}
	defer rows.Close()

	var out []model.ConfirmedOrder
	for rows.Next() {
		var (
			o        model.ConfirmedOrder
			items    string
			method   string
			lat, lng sql.NullFloat64
			freight  sql.NullString
		)
		if err := rows.Scan(&o.ID, &o.UserID, &o.TenantID, &items, &o.Total, &o.Address, &method, &lat, &lng, &freight, &o.CreatedAt); err != nil {
			return nil, errx.WrapSQL(err)
		}
		if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
			return nil, fmt.Errorf("order %s items: %w", o.ID, err)
		}
		if freight.Valid {
			o.Freight = &model.FreightResult{}
			if err := json.Unmarshal([]byte(freight.String), o.Freight); err != nil {
				return nil, fmt.Errorf("order %s freight: %w", o.ID, err)
			}
		}
		o.DeliveryMethod = model.DeliveryMethod(method)
		o.Latitude, o.Longitude = floatPtr(lat), floatPtr(lng)
		out = append(out, o)
	}
	return out, errx.WrapSQL(rows.Err())
}

func (s *Store) Exists(ctx context.Context, messageID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM interactions WHERE message_id = ?`, messageID).Scan(&n)
	if err != nil {
		return false, errx.WrapSQL(err)
	}
	return n > 0, nil
}

func (s *Store) Append(ctx context.Context, rec model.Interaction) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO interactions (id, message_id, user_phone, tenant_id, user_text, ai_text, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.MessageID, rec.UserID, rec.TenantID, rec.UserText, rec.AIText, rec.CreatedAt.UTC())
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %s", model.ErrDuplicateMessage, rec.MessageID)
	}
	return errx.WrapSQL(err)
}
