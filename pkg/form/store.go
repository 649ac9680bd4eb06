package form

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/craftdesk/craftdesk/internal/db"
)

// Store provides database operations for forms.
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a form Store backed by the given database connection.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

// ListActive returns a workspace's active forms, oldest first so the
// order in confirmation emails is stable.
func (s *Store) ListActive(ctx context.Context, workspaceID uuid.UUID) ([]Form, error) {
	query := `SELECT id, workspace_id, title, slug, is_active, created_at
	FROM forms
	WHERE workspace_id = $1 AND is_active
	ORDER BY created_at`
	rows, err := s.dbtx.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("listing active forms: %w", err)
	}
	defer rows.Close()

	var items []Form
	for rows.Next() {
		var f Form
		if err := rows.Scan(&f.ID, &f.WorkspaceID, &f.Title, &f.Slug, &f.IsActive, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning form row: %w", err)
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating form rows: %w", err)
	}
	return items, nil
}
