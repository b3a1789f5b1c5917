package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/event"
)

type EventRepository struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

func (r *EventRepository) ListRecentByUser(ctx context.Context, userID uuid.UUID, since time.Time) ([]*event.AccessEvent, error) {
	query := `
		SELECT id, user_id, device_id, ip_address, network_type, country, city,
		       hour_of_day, weekend, resource, success, timestamp, created_at
		FROM access_events
		WHERE user_id = $1 AND timestamp >= $2
		ORDER BY timestamp DESC`

	rows, err := r.pool.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("listing access events for user %s: %w", userID, err)
	}
	defer rows.Close()

	var events []*event.AccessEvent
	for rows.Next() {
		var e event.AccessEvent
		var networkType string
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.DeviceID, &e.IPAddress, &networkType,
			&e.Country, &e.City, &e.HourOfDay, &e.Weekend, &e.Resource,
			&e.Success, &e.Timestamp, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning access event row: %w", err)
		}
		e.NetworkType = event.ParseNetworkType(networkType)
		events = append(events, &e)
	}
	return events, rows.Err()
}

func (r *EventRepository) Create(ctx context.Context, e *event.AccessEvent) error {
	query := `
		INSERT INTO access_events (
			id, user_id, device_id, ip_address, network_type, country, city,
			hour_of_day, weekend, resource, success, timestamp, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.pool.Exec(ctx, query,
		e.ID, e.UserID, e.DeviceID, e.IPAddress, e.NetworkType.String(),
		e.Country, e.City, e.HourOfDay, e.Weekend, e.Resource,
		e.Success, e.Timestamp, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting access event: %w", err)
	}
	return nil
}
