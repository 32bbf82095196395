package pgstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/pushkit/pkg/webpush"
)

// SubscriptionRepository stores push credentials in device_subscription.
type SubscriptionRepository struct {
	db DBTX
}

// NewSubscriptionRepository binds a repository to a connection or transaction.
func NewSubscriptionRepository(db DBTX) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) FindSubscription(ctx context.Context, filter webpush.SubscriptionFilter) (*webpush.Subscription, error) {
	query := `SELECT id, device_id, endpoint, p256dh, auth, is_active, created_at, updated_at
		FROM device_subscription
		WHERE deleted_at IS NULL AND device_id = $1`
	if filter.ActiveOnly {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY is_active DESC, updated_at DESC LIMIT 1`

	var s webpush.Subscription
	err := r.db.QueryRowContext(ctx, query, filter.DeviceID).
		Scan(&s.ID, &s.DeviceID, &s.Endpoint, &s.P256dh, &s.Auth, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, mapError("find subscription", err)
	}
	return &s, nil
}

func (r *SubscriptionRepository) CreateSubscription(ctx context.Context, s *webpush.Subscription) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	now := time.Now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = now
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO device_subscription (id, device_id, endpoint, p256dh, auth, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.DeviceID, s.Endpoint, s.P256dh, s.Auth, s.IsActive, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return mapError("create subscription", err)
	}
	return nil
}

func (r *SubscriptionRepository) UpdateSubscription(ctx context.Context, s *webpush.Subscription) error {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now()
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE device_subscription
		SET endpoint = $2, p256dh = $3, auth = $4, is_active = $5, updated_at = $6
		WHERE id = $1 AND deleted_at IS NULL`,
		s.ID, s.Endpoint, s.P256dh, s.Auth, s.IsActive, s.UpdatedAt,
	)
	if err != nil {
		return mapError("update subscription", err)
	}
	return requireAffected(res, "update subscription")
}

func (r *SubscriptionRepository) DeleteSubscriptions(ctx context.Context, deviceID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM device_subscription WHERE device_id = $1`, deviceID); err != nil {
		return mapError("delete subscriptions", err)
	}
	return nil
}
