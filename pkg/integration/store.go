package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/craftdesk/craftdesk/internal/db"
)

// Store provides database operations for integrations.
type Store struct {
	dbtx db.DBTX
}

// NewStore creates an integration Store backed by the given database
// connection.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

const integrationColumns = `id, workspace_id, type, provider, credentials, is_active, created_at`

func scanIntegration(row pgx.Row) (Integration, error) {
	var i Integration
	err := row.Scan(&i.ID, &i.WorkspaceID, &i.Type, &i.Provider, &i.Credentials, &i.IsActive, &i.CreatedAt)
	return i, err
}

// FindActive returns the active integration of the given type for a
// workspace, or ErrNotConfigured when none exists. Should the data
// ever hold more than one active row, the newest wins.
func (s *Store) FindActive(ctx context.Context, workspaceID uuid.UUID, typ Type) (Integration, error) {
	query := `SELECT ` + integrationColumns + ` FROM integrations
	WHERE workspace_id = $1 AND type = $2 AND is_active
	ORDER BY created_at DESC, id DESC
	LIMIT 1`
	i, err := scanIntegration(s.dbtx.QueryRow(ctx, query, workspaceID, typ))
	if errors.Is(err, pgx.ErrNoRows) {
		return Integration{}, ErrNotConfigured
	}
	if err != nil {
		return Integration{}, fmt.Errorf("finding active %s integration: %w", typ, err)
	}
	return i, nil
}

// Configure stores new credentials for a channel, replacing any
// previous active integration of the same type. The workspace's
// configured hint flag is updated for email and sms.
func (s *Store) Configure(ctx context.Context, workspaceID uuid.UUID, typ Type, credentials any) (Integration, error) {
	raw, err := json.Marshal(credentials)
	if err != nil {
		return Integration{}, fmt.Errorf("encoding %s credentials: %w", typ, err)
	}

	deactivate := `UPDATE integrations SET is_active = false
	WHERE workspace_id = $1 AND type = $2 AND is_active`
	if _, err := s.dbtx.Exec(ctx, deactivate, workspaceID, typ); err != nil {
		return Integration{}, fmt.Errorf("deactivating previous %s integration: %w", typ, err)
	}

	insert := `INSERT INTO integrations (workspace_id, type, provider, credentials)
	VALUES ($1, $2, $3, $4)
	RETURNING ` + integrationColumns
	i, err := scanIntegration(s.dbtx.QueryRow(ctx, insert, workspaceID, typ, DefaultProvider(typ), raw))
	if err != nil {
		return Integration{}, fmt.Errorf("inserting %s integration: %w", typ, err)
	}

	if err := s.setWorkspaceHint(ctx, workspaceID, typ, true); err != nil {
		return Integration{}, err
	}
	return i, nil
}

// Deactivate disables the active integration of the given type. It is
// a no-op when nothing is configured.
func (s *Store) Deactivate(ctx context.Context, workspaceID uuid.UUID, typ Type) error {
	query := `UPDATE integrations SET is_active = false
	WHERE workspace_id = $1 AND type = $2 AND is_active`
	if _, err := s.dbtx.Exec(ctx, query, workspaceID, typ); err != nil {
		return fmt.Errorf("deactivating %s integration: %w", typ, err)
	}
	return s.setWorkspaceHint(ctx, workspaceID, typ, false)
}

func (s *Store) setWorkspaceHint(ctx context.Context, workspaceID uuid.UUID, typ Type, configured bool) error {
	var column string
	switch typ {
	case TypeEmail:
		column = "email_configured"
	case TypeSMS:
		column = "sms_configured"
	default:
		return nil
	}
	query := `UPDATE workspaces SET ` + column + ` = $2 WHERE id = $1`
	if _, err := s.dbtx.Exec(ctx, query, workspaceID, configured); err != nil {
		return fmt.Errorf("updating workspace %s flag: %w", column, err)
	}
	return nil
}

// StatusByType summarizes which channels a workspace has configured.
// Every known type appears in the result, configured or not.
func (s *Store) StatusByType(ctx context.Context, workspaceID uuid.UUID) ([]Status, error) {
	query := `SELECT type, created_at FROM integrations
	WHERE workspace_id = $1 AND is_active
	ORDER BY created_at DESC, id DESC`
	rows, err := s.dbtx.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("listing integrations: %w", err)
	}
	defer rows.Close()

	byType := make(map[Type]Status)
	for rows.Next() {
		var typ Type
		var createdAt time.Time
		if err := rows.Scan(&typ, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning integration row: %w", err)
		}
		if _, seen := byType[typ]; !seen {
			byType[typ] = Status{Type: typ, Configured: true, CreatedAt: &createdAt}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating integration rows: %w", err)
	}

	out := make([]Status, 0, 4)
	for _, typ := range []Type{TypeEmail, TypeSMS, TypeCalendar, TypeWebhook} {
		if st, ok := byType[typ]; ok {
			out = append(out, st)
		} else {
			out = append(out, Status{Type: typ})
		}
	}
	return out, nil
}

// SaveCalendarToken persists refreshed OAuth token material for an
// existing calendar integration without touching its other fields.
func (s *Store) SaveCalendarToken(ctx context.Context, id uuid.UUID, creds CalendarCredentials) error {
	raw, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encoding calendar credentials: %w", err)
	}
	query := `UPDATE integrations SET credentials = $2 WHERE id = $1`
	if _, err := s.dbtx.Exec(ctx, query, id, raw); err != nil {
		return fmt.Errorf("saving refreshed calendar token: %w", err)
	}
	return nil
}
