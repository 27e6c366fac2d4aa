package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/portal-backend/internal/core/domain"
	apperrors "github.com/lorrc/portal-backend/internal/core/errors"
	"github.com/lorrc/portal-backend/internal/core/ports"
)

// DepartmentStore is the secondary adapter for department lookups.
type DepartmentStore struct {
	pool *pgxpool.Pool
}

var _ ports.DepartmentStore = (*DepartmentStore)(nil)

// NewDepartmentStore creates a new department store.
func NewDepartmentStore(pool *pgxpool.Pool) *DepartmentStore {
	return &DepartmentStore{pool: pool}
}

// GetByID retrieves a single department by id.
func (s *DepartmentStore) GetByID(ctx context.Context, id int64) (*domain.Department, error) {
	var d domain.Department
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, is_specific FROM departments WHERE id = $1`, id,
	).Scan(&d.ID, &d.Name, &d.IsSpecific)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrDepartmentNotFound
		}
		return nil, err
	}
	return &d, nil
}

// Create persists a new department. Used by admin tooling and the
// integration test fixtures.
func (s *DepartmentStore) Create(ctx context.Context, dept *domain.Department) (*domain.Department, error) {
	var d domain.Department
	err := s.pool.QueryRow(ctx, `
		INSERT INTO departments (name, is_specific)
		VALUES ($1, $2)
		RETURNING id, name, is_specific`,
		dept.Name, dept.IsSpecific,
	).Scan(&d.ID, &d.Name, &d.IsSpecific)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
