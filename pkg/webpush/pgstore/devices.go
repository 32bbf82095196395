package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/pushkit/pkg/webpush"
)

const deviceColumns = `id, customer_id, device_id, device_name, device_info, last_used, created_at, updated_at`

// DeviceRepository stores devices in customer_device.
type DeviceRepository struct {
	db DBTX
}

// NewDeviceRepository binds a repository to a connection or transaction.
func NewDeviceRepository(db DBTX) *DeviceRepository {
	return &DeviceRepository{db: db}
}

func (r *DeviceRepository) FindDevice(ctx context.Context, filter webpush.DeviceFilter) (*webpush.Device, error) {
	where, args := deviceWhere(filter)
	query := `SELECT ` + deviceColumns + ` FROM customer_device WHERE ` + where + ` ORDER BY last_used DESC, id LIMIT 1`

	d, err := scanDevice(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapError("find device", err)
	}
	return d, nil
}

func (r *DeviceRepository) ListDevices(ctx context.Context, filter webpush.DeviceFilter) ([]webpush.Device, error) {
	where, args := deviceWhere(filter)
	query := `SELECT ` + deviceColumns + ` FROM customer_device WHERE ` + where + ` ORDER BY last_used DESC, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError("list devices", err)
	}
	defer rows.Close()

	var devices []webpush.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, mapError("list devices", err)
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list devices", err)
	}
	return devices, nil
}

func (r *DeviceRepository) CreateDevice(ctx context.Context, d *webpush.Device) error {
	info, err := json.Marshal(d.DeviceInfo)
	if err != nil {
		return fmt.Errorf("encode device info: %w", err)
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	now := time.Now()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = now
	}
	if d.LastUsed.IsZero() {
		d.LastUsed = now
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO customer_device (id, customer_id, device_id, device_name, device_info, last_used, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.ID, nullString(d.CustomerID), d.DeviceID, d.DeviceName, string(info), d.LastUsed, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return mapError("create device", err)
	}
	return nil
}

func (r *DeviceRepository) UpdateDevice(ctx context.Context, d *webpush.Device) error {
	info, err := json.Marshal(d.DeviceInfo)
	if err != nil {
		return fmt.Errorf("encode device info: %w", err)
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = time.Now()
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE customer_device
		SET customer_id = $2, device_name = $3, device_info = $4, last_used = $5, updated_at = $6
		WHERE id = $1 AND deleted_at IS NULL`,
		d.ID, nullString(d.CustomerID), d.DeviceName, string(info), d.LastUsed, d.UpdatedAt,
	)
	if err != nil {
		return mapError("update device", err)
	}
	return requireAffected(res, "update device")
}

func (r *DeviceRepository) DeleteDevices(ctx context.Context, deviceID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM customer_device WHERE device_id = $1`, deviceID); err != nil {
		return mapError("delete devices", err)
	}
	return nil
}

func deviceWhere(f webpush.DeviceFilter) (string, []any) {
	conds := []string{"deleted_at IS NULL"}
	var args []any

	if f.DeviceID != "" {
		args = append(args, f.DeviceID)
		conds = append(conds, fmt.Sprintf("device_id = $%d", len(args)))
	}
	if !f.AnyCustomer {
		if f.CustomerID == "" {
			conds = append(conds, "customer_id IS NULL")
		} else {
			args = append(args, f.CustomerID)
			conds = append(conds, fmt.Sprintf("customer_id = $%d", len(args)))
		}
	}

	return strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*webpush.Device, error) {
	var (
		d          webpush.Device
		customerID sql.NullString
		info       []byte
	)
	if err := row.Scan(&d.ID, &customerID, &d.DeviceID, &d.DeviceName, &info, &d.LastUsed, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.CustomerID = customerID.String
	if len(info) > 0 {
		if err := json.Unmarshal(info, &d.DeviceInfo); err != nil {
			return nil, fmt.Errorf("decode device info: %w", err)
		}
	}
	return &d, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: db error: %w", op, err)
	}
	if n == 0 {
		return webpush.ErrRecordNotFound
	}
	return nil
}
