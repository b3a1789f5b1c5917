package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/device"
)

type DeviceRepository struct {
	pool *pgxpool.Pool
}

func NewDeviceRepository(pool *pgxpool.Pool) *DeviceRepository {
	return &DeviceRepository{pool: pool}
}

func (r *DeviceRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*device.Device, error) {
	query := `
		SELECT id, user_id, name, os, os_version, trust_level, patched,
		       antivirus_enabled, risk_score, last_seen_at, created_at, updated_at
		FROM devices
		WHERE user_id = $1
		ORDER BY last_seen_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing devices for user %s: %w", userID, err)
	}
	defer rows.Close()

	var devices []*device.Device
	for rows.Next() {
		var d device.Device
		var trustLevel string
		if err := rows.Scan(
			&d.ID, &d.UserID, &d.Name, &d.OS, &d.OSVersion, &trustLevel,
			&d.Patched, &d.AntivirusEnabled, &d.RiskScore, &d.LastSeenAt,
			&d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning device row: %w", err)
		}
		d.TrustLevel = device.ParseTrustLevel(trustLevel)
		devices = append(devices, &d)
	}
	return devices, rows.Err()
}

func (r *DeviceRepository) Create(ctx context.Context, d *device.Device) error {
	query := `
		INSERT INTO devices (
			id, user_id, name, os, os_version, trust_level, patched,
			antivirus_enabled, risk_score, last_seen_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		d.ID, d.UserID, d.Name, d.OS, d.OSVersion, d.TrustLevel.String(),
		d.Patched, d.AntivirusEnabled, d.RiskScore, d.LastSeenAt,
		d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting device: %w", err)
	}
	return nil
}
