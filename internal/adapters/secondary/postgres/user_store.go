package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/portal-backend/internal/core/domain"
	apperrors "github.com/lorrc/portal-backend/internal/core/errors"
	"github.com/lorrc/portal-backend/internal/core/ports"
)

const userColumns = `id, full_name, email, password_hash, is_admin, has_published_rights, department_id, disabled, created_at`

// UserStore is the secondary adapter for user lookups.
type UserStore struct {
	pool *pgxpool.Pool
}

var _ ports.UserStore = (*UserStore)(nil)

// NewUserStore creates a new user store.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.FullName,
		&u.Email,
		&u.PasswordHash,
		&u.IsAdmin,
		&u.HasPublishedRights,
		&u.DepartmentID,
		&u.Disabled,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID retrieves a single user by id.
func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// GetByEmail retrieves a single user by email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// ListActiveByDepartment retrieves the department's non-disabled members,
// ordered by id for deterministic downstream processing.
func (s *UserStore) ListActiveByDepartment(ctx context.Context, departmentID int64) ([]*domain.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE department_id = $1 AND NOT disabled
		ORDER BY id`,
		departmentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Create persists a new user. Used by onboarding and the integration test
// fixtures; the engine itself never writes users.
func (s *UserStore) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, full_name, email, password_hash, is_admin, has_published_rights, department_id, disabled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+userColumns,
		user.ID,
		user.FullName,
		user.Email,
		user.PasswordHash,
		user.IsAdmin,
		user.HasPublishedRights,
		user.DepartmentID,
		user.Disabled,
		user.CreatedAt,
	)
	return scanUser(row)
}
