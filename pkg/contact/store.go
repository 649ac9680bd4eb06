package contact

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/craftdesk/craftdesk/internal/db"
)

// Store provides database operations for contacts.
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a contact Store backed by the given database connection.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

const contactColumns = `id, workspace_id, name, email, phone, created_at`

func scanContact(row pgx.Row) (Contact, error) {
	var c Contact
	err := row.Scan(&c.ID, &c.WorkspaceID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt)
	return c, err
}

// Get returns a single contact by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1`
	return scanContact(s.dbtx.QueryRow(ctx, query, id))
}

// FindOrCreateByEmail returns the workspace's contact with the given
// email, creating it when none exists. Name and phone on an existing
// contact are backfilled if they were previously empty.
func (s *Store) FindOrCreateByEmail(ctx context.Context, workspaceID uuid.UUID, name, email, phone string) (Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts
	WHERE workspace_id = $1 AND email = $2`
	c, err := scanContact(s.dbtx.QueryRow(ctx, query, workspaceID, email))
	if err == nil {
		return s.backfill(ctx, c, name, phone)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, fmt.Errorf("finding contact by email: %w", err)
	}

	insert := `INSERT INTO contacts (workspace_id, name, email, phone)
	VALUES ($1, $2, $3, $4)
	RETURNING ` + contactColumns
	c, err = scanContact(s.dbtx.QueryRow(ctx, insert, workspaceID, name, email, phone))
	if err != nil {
		return Contact{}, fmt.Errorf("creating contact: %w", err)
	}
	return c, nil
}

func (s *Store) backfill(ctx context.Context, c Contact, name, phone string) (Contact, error) {
	if (c.Name != "" || name == "") && (c.Phone != "" || phone == "") {
		return c, nil
	}
	if c.Name == "" && name != "" {
		c.Name = name
	}
	if c.Phone == "" && phone != "" {
		c.Phone = phone
	}
	query := `UPDATE contacts SET name = $2, phone = $3 WHERE id = $1`
	if _, err := s.dbtx.Exec(ctx, query, c.ID, c.Name, c.Phone); err != nil {
		return Contact{}, fmt.Errorf("backfilling contact: %w", err)
	}
	return c, nil
}

// ListByWorkspace returns a workspace's contacts, newest first.
func (s *Store) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]Contact, int, error) {
	var total int
	count := `SELECT count(*) FROM contacts WHERE workspace_id = $1`
	if err := s.dbtx.QueryRow(ctx, count, workspaceID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting contacts: %w", err)
	}

	query := `SELECT ` + contactColumns + ` FROM contacts
	WHERE workspace_id = $1
	ORDER BY created_at DESC
	LIMIT $2 OFFSET $3`
	rows, err := s.dbtx.Query(ctx, query, workspaceID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing contacts: %w", err)
	}
	defer rows.Close()

	var items []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.WorkspaceID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning contact row: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating contact rows: %w", err)
	}
	return items, total, nil
}
