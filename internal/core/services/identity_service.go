package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/lorrc/portal-backend/internal/core/domain"
	apperrors "github.com/lorrc/portal-backend/internal/core/errors"
	"github.com/lorrc/portal-backend/internal/core/ports"
)

// IdentityService resolves an opaque subject id into domain capabilities.
// It is the only component that touches user/department records for
// permission purposes; everything downstream works off the returned
// Capabilities value.
type IdentityService struct {
	userStore ports.UserStore
	deptStore ports.DepartmentStore
}

var _ ports.IdentityResolver = (*IdentityService)(nil)

// NewIdentityService creates a new identity resolver.
func NewIdentityService(userStore ports.UserStore, deptStore ports.DepartmentStore) ports.IdentityResolver {
	return &IdentityService{
		userStore: userStore,
		deptStore: deptStore,
	}
}

// Resolve looks up the subject and derives its capability set. Every
// failure path collapses to ErrIdentity: an unknown subject, a disabled
// account and a failed lookup all mean "no rights".
func (s *IdentityService) Resolve(ctx context.Context, subjectID uuid.UUID) (domain.Capabilities, error) {
	if subjectID == uuid.Nil {
		return domain.Capabilities{}, apperrors.ErrIdentity
	}

	user, err := s.userStore.GetByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return domain.Capabilities{}, apperrors.ErrIdentity
		}
		return domain.Capabilities{}, fmt.Errorf("%w: %v", apperrors.ErrIdentity, err)
	}

	if user.Disabled {
		return domain.Capabilities{}, apperrors.ErrIdentity
	}

	dept, err := s.deptStore.GetByID(ctx, user.DepartmentID)
	if err != nil {
		return domain.Capabilities{}, fmt.Errorf("%w: %v", apperrors.ErrIdentity, err)
	}

	return domain.Capabilities{
		UserID:               user.ID,
		IsAdmin:              user.IsAdmin,
		DepartmentID:         user.DepartmentID,
		DepartmentIsSpecific: dept.IsSpecific,
		HasPublishedRights:   user.HasPublishedRights,
	}, nil
}
