package staff

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/craftdesk/craftdesk/internal/db"
)

// ErrEmailTaken is returned when the invite email already has an
// account in the workspace.
var ErrEmailTaken = errors.New("email already in use")

// Store provides database operations for staff accounts.
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a staff Store backed by the given database connection.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

const userColumns = `id, workspace_id, email, name, password_hash, permissions, is_active, must_change_password, created_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.WorkspaceID, &u.Email, &u.Name, &u.PasswordHash,
		&u.Permissions, &u.IsActive, &u.MustChangePassword, &u.CreatedAt,
	)
	return u, err
}

// CreateParams holds parameters for creating a staff account.
type CreateParams struct {
	WorkspaceID  uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	Permissions  []string
}

// Create inserts a new staff account flagged to change its password on
// first login.
func (s *Store) Create(ctx context.Context, p CreateParams) (User, error) {
	exists := `SELECT count(*) FROM users WHERE workspace_id = $1 AND email = $2`
	var n int
	if err := s.dbtx.QueryRow(ctx, exists, p.WorkspaceID, p.Email).Scan(&n); err != nil {
		return User{}, fmt.Errorf("checking invite email: %w", err)
	}
	if n > 0 {
		return User{}, ErrEmailTaken
	}

	insert := `INSERT INTO users (workspace_id, email, name, password_hash, permissions, must_change_password)
	VALUES ($1, $2, $3, $4, $5, true)
	RETURNING ` + userColumns
	u, err := scanUser(s.dbtx.QueryRow(ctx, insert, p.WorkspaceID, p.Email, p.Name, p.PasswordHash, p.Permissions))
	if err != nil {
		return User{}, fmt.Errorf("creating staff account: %w", err)
	}
	return u, nil
}

// ListByWorkspace returns a workspace's staff accounts, oldest first.
func (s *Store) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users
	WHERE workspace_id = $1
	ORDER BY created_at`
	rows, err := s.dbtx.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("listing staff: %w", err)
	}
	defer rows.Close()

	var items []User
	for rows.Next() {
		var u User
		if err := rows.Scan(
			&u.ID, &u.WorkspaceID, &u.Email, &u.Name, &u.PasswordHash,
			&u.Permissions, &u.IsActive, &u.MustChangePassword, &u.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning staff row: %w", err)
		}
		items = append(items, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating staff rows: %w", err)
	}
	return items, nil
}
