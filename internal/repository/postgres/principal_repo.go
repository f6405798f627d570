// internal/repository/postgres/principal_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"marketlens-service/internal/domain/auth"
	xerrors "marketlens-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PrincipalRepository struct {
	db *pgxpool.Pool
}

func NewPrincipalRepository(db *pgxpool.Pool) *PrincipalRepository {
	return &PrincipalRepository{db: db}
}

// ========== Principal Methods ==========

// FindByEmail retrieves a principal by email (case-insensitive)
func (r *PrincipalRepository) FindByEmail(ctx context.Context, email string) (*auth.Principal, error) {
	query := `
		SELECT id, name, email, secret_hash, created_at
		FROM principals
		WHERE LOWER(email) = LOWER($1)
	`

	var p auth.Principal
	err := r.db.QueryRow(ctx, query, email).Scan(
		&p.ID, &p.Name, &p.Email, &p.SecretHash, &p.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find principal: %w", err)
	}

	return &p, nil
}

// FindByID retrieves a principal by ID
func (r *PrincipalRepository) FindByID(ctx context.Context, id string) (*auth.Principal, error) {
	query := `
		SELECT id, name, email, secret_hash, created_at
		FROM principals
		WHERE id = $1
	`

	var p auth.Principal
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Email, &p.SecretHash, &p.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find principal: %w", err)
	}

	return &p, nil
}

// ExistsByEmail checks whether a principal with the email already exists
func (r *PrincipalRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM principals WHERE LOWER(email) = LOWER($1))`

	var exists bool
	if err := r.db.QueryRow(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

// CreateWithRole inserts the principal and its initial role assignment in one
// transaction. A failed role grant rolls back the principal row.
func (r *PrincipalRepository) CreateWithRole(ctx context.Context, p *auth.Principal, roleName string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insertPrincipal := `
		INSERT INTO principals (id, name, email, secret_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err = tx.QueryRow(ctx, insertPrincipal, p.ID, p.Name, p.Email, p.SecretHash).Scan(&p.CreatedAt)
	if isUniqueViolation(err) {
		return xerrors.ErrDuplicateEntry
	}
	if err != nil {
		return fmt.Errorf("failed to create principal: %w", err)
	}

	assignRole := `
		INSERT INTO principal_roles (principal_id, role_id)
		SELECT $1, id FROM roles WHERE name = $2
	`
	tag, err := tx.Exec(ctx, assignRole, p.ID, roleName)
	if err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to assign role: unknown role %q", roleName)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit principal: %w", err)
	}
	return nil
}

// GetRoles returns the role names assigned to a principal
func (r *PrincipalRepository) GetRoles(ctx context.Context, principalID string) ([]string, error) {
	query := `
		SELECT r.name
		FROM principal_roles pr
		JOIN roles r ON r.id = pr.role_id
		WHERE pr.principal_id = $1
		ORDER BY pr.assigned_at
	`

	rows, err := r.db.Query(ctx, query, principalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get roles: %w", err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read roles: %w", err)
	}

	return roles, nil
}

// AssignRoleByName grants an additional role to a principal
func (r *PrincipalRepository) AssignRoleByName(ctx context.Context, principalID, roleName string) error {
	query := `
		INSERT INTO principal_roles (principal_id, role_id)
		SELECT $1, id FROM roles WHERE name = $2
		ON CONFLICT (principal_id, role_id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, principalID, roleName)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
