package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/craftdesk/craftdesk/internal/db"
)

// Store provides database operations for bookings and services.
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a booking Store backed by the given database connection.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

const bookingColumns = `id, workspace_id, contact_id, service_id, status, start_time, end_time, notes, created_at`

// detailColumns joins in the contact and service fields used by
// notifications.
const detailColumns = `b.id, b.workspace_id, b.contact_id, b.service_id, b.status,
	b.start_time, b.end_time, b.notes, b.created_at,
	c.name, c.email, c.phone, s.name`

func scanBooking(row pgx.Row) (Booking, error) {
	var b Booking
	err := row.Scan(
		&b.ID, &b.WorkspaceID, &b.ContactID, &b.ServiceID, &b.Status,
		&b.StartTime, &b.EndTime, &b.Notes, &b.CreatedAt,
	)
	return b, err
}

func scanDetail(row pgx.Row) (Detail, error) {
	var d Detail
	err := row.Scan(
		&d.ID, &d.WorkspaceID, &d.ContactID, &d.ServiceID, &d.Status,
		&d.StartTime, &d.EndTime, &d.Notes, &d.CreatedAt,
		&d.ContactName, &d.ContactEmail, &d.ContactPhone, &d.ServiceName,
	)
	return d, err
}

// GetService returns a single service by ID.
func (s *Store) GetService(ctx context.Context, id uuid.UUID) (Service, error) {
	query := `SELECT id, workspace_id, name, description, duration_min, price_cents, is_active, created_at
	FROM services WHERE id = $1`
	var svc Service
	err := s.dbtx.QueryRow(ctx, query, id).Scan(
		&svc.ID, &svc.WorkspaceID, &svc.Name, &svc.Description,
		&svc.DurationMin, &svc.PriceCents, &svc.IsActive, &svc.CreatedAt,
	)
	return svc, err
}

// ListActiveServices returns a workspace's bookable services.
func (s *Store) ListActiveServices(ctx context.Context, workspaceID uuid.UUID) ([]Service, error) {
	query := `SELECT id, workspace_id, name, description, duration_min, price_cents, is_active, created_at
	FROM services
	WHERE workspace_id = $1 AND is_active
	ORDER BY name`
	rows, err := s.dbtx.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("listing services: %w", err)
	}
	defer rows.Close()

	var items []Service
	for rows.Next() {
		var svc Service
		if err := rows.Scan(
			&svc.ID, &svc.WorkspaceID, &svc.Name, &svc.Description,
			&svc.DurationMin, &svc.PriceCents, &svc.IsActive, &svc.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning service row: %w", err)
		}
		items = append(items, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating service rows: %w", err)
	}
	return items, nil
}

// CreateParams holds parameters for creating a booking.
type CreateParams struct {
	WorkspaceID uuid.UUID
	ContactID   uuid.UUID
	ServiceID   uuid.UUID
	StartTime   time.Time
	EndTime     time.Time
	Notes       string
}

// Create inserts a new booking in pending status.
func (s *Store) Create(ctx context.Context, p CreateParams) (Booking, error) {
	query := `INSERT INTO bookings (workspace_id, contact_id, service_id, start_time, end_time, notes)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING ` + bookingColumns
	b, err := scanBooking(s.dbtx.QueryRow(ctx, query,
		p.WorkspaceID, p.ContactID, p.ServiceID, p.StartTime, p.EndTime, p.Notes,
	))
	if err != nil {
		return Booking{}, fmt.Errorf("creating booking: %w", err)
	}
	return b, nil
}

// GetDetail returns a booking with its contact and service joined in.
func (s *Store) GetDetail(ctx context.Context, id uuid.UUID) (Detail, error) {
	query := `SELECT ` + detailColumns + `
	FROM bookings b
	JOIN contacts c ON c.id = b.contact_id
	JOIN services s ON s.id = b.service_id
	WHERE b.id = $1`
	return scanDetail(s.dbtx.QueryRow(ctx, query, id))
}

// UpdateStatus sets a booking's status and returns the updated detail
// row.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (Detail, error) {
	query := `UPDATE bookings SET status = $2 WHERE id = $1`
	tag, err := s.dbtx.Exec(ctx, query, id, status)
	if err != nil {
		return Detail{}, fmt.Errorf("updating booking status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Detail{}, pgx.ErrNoRows
	}
	return s.GetDetail(ctx, id)
}

// ListByWorkspace returns a workspace's bookings, soonest first.
// status filters when non-empty.
func (s *Store) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, status Status, limit, offset int) ([]Detail, int, error) {
	filter := ``
	args := []any{workspaceID, limit, offset}
	if status != "" {
		filter = ` AND b.status = $4`
		args = append(args, status)
	}

	var total int
	count := `SELECT count(*) FROM bookings b WHERE b.workspace_id = $1` + filter
	countArgs := []any{workspaceID}
	if status != "" {
		count = `SELECT count(*) FROM bookings b WHERE b.workspace_id = $1 AND b.status = $2`
		countArgs = append(countArgs, status)
	}
	if err := s.dbtx.QueryRow(ctx, count, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting bookings: %w", err)
	}

	query := `SELECT ` + detailColumns + `
	FROM bookings b
	JOIN contacts c ON c.id = b.contact_id
	JOIN services s ON s.id = b.service_id
	WHERE b.workspace_id = $1` + filter + `
	ORDER BY b.start_time
	LIMIT $2 OFFSET $3`
	rows, err := s.dbtx.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing bookings: %w", err)
	}
	defer rows.Close()

	var items []Detail
	for rows.Next() {
		var d Detail
		if err := rows.Scan(
			&d.ID, &d.WorkspaceID, &d.ContactID, &d.ServiceID, &d.Status,
			&d.StartTime, &d.EndTime, &d.Notes, &d.CreatedAt,
			&d.ContactName, &d.ContactEmail, &d.ContactPhone, &d.ServiceName,
		); err != nil {
			return nil, 0, fmt.Errorf("scanning booking row: %w", err)
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating booking rows: %w", err)
	}
	return items, total, nil
}

// ListDueReminders returns bookings across all workspaces whose start
// time falls inside [from, to) and whose status still expects the
// customer to show up.
func (s *Store) ListDueReminders(ctx context.Context, from, to time.Time) ([]Detail, error) {
	query := `SELECT ` + detailColumns + `
	FROM bookings b
	JOIN contacts c ON c.id = b.contact_id
	JOIN services s ON s.id = b.service_id
	WHERE b.status IN ('pending', 'confirmed')
	  AND b.start_time >= $1 AND b.start_time < $2
	ORDER BY b.start_time`
	rows, err := s.dbtx.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing due reminders: %w", err)
	}
	defer rows.Close()

	var items []Detail
	for rows.Next() {
		var d Detail
		if err := rows.Scan(
			&d.ID, &d.WorkspaceID, &d.ContactID, &d.ServiceID, &d.Status,
			&d.StartTime, &d.EndTime, &d.Notes, &d.CreatedAt,
			&d.ContactName, &d.ContactEmail, &d.ContactPhone, &d.ServiceName,
		); err != nil {
			return nil, fmt.Errorf("scanning reminder row: %w", err)
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reminder rows: %w", err)
	}
	return items, nil
}
