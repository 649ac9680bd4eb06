package workspace

import (
	"context"

	"github.com/google/uuid"

	"github.com/craftdesk/craftdesk/internal/db"
)

// Store provides database operations for workspaces.
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a workspace Store backed by the given database connection.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

const workspaceColumns = `id, name, business_type, email_configured, sms_configured, is_active, created_at`

// Get returns a single workspace by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Workspace, error) {
	query := `SELECT ` + workspaceColumns + ` FROM workspaces WHERE id = $1`
	var w Workspace
	err := s.dbtx.QueryRow(ctx, query, id).Scan(
		&w.ID, &w.Name, &w.BusinessType,
		&w.EmailConfigured, &w.SMSConfigured, &w.IsActive,
		&w.CreatedAt,
	)
	return w, err
}

