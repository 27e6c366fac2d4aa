package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/portal-backend/internal/core/domain"
	apperrors "github.com/lorrc/portal-backend/internal/core/errors"
)

func TestUserStore_GetByID(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore(testPool)

	dept := createTestDepartment(t, ctx, true)
	user := createTestUser(t, ctx, dept.ID)

	found, err := store.GetByID(ctx, user.ID)
	require.NoError(t, err)

	assert.Equal(t, user.Email, found.Email)
	assert.Equal(t, dept.ID, found.DepartmentID)
	assert.False(t, found.Disabled)
}

func TestUserStore_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore(testPool)

	_, err := store.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestUserStore_GetByEmail(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore(testPool)

	dept := createTestDepartment(t, ctx, false)
	user := createTestUser(t, ctx, dept.ID)

	found, err := store.GetByEmail(ctx, user.Email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = store.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestUserStore_ListActiveByDepartment(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore(testPool)

	dept := createTestDepartment(t, ctx, false)
	active1 := createTestUser(t, ctx, dept.ID)
	active2 := createTestUser(t, ctx, dept.ID)

	// A disabled member must not appear in the eligible list.
	disabled, err := store.Create(ctx, &domain.User{
		ID:           uuid.New(),
		FullName:     "Former Employee",
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "irrelevant",
		DepartmentID: dept.ID,
		Disabled:     true,
	})
	require.NoError(t, err)

	users, err := store.ListActiveByDepartment(ctx, dept.ID)
	require.NoError(t, err)

	ids := make(map[uuid.UUID]bool)
	for _, u := range users {
		ids[u.ID] = true
	}
	assert.Len(t, users, 2)
	assert.True(t, ids[active1.ID])
	assert.True(t, ids[active2.ID])
	assert.False(t, ids[disabled.ID])
}

func TestDepartmentStore_GetByID(t *testing.T) {
	ctx := context.Background()
	store := NewDepartmentStore(testPool)

	dept := createTestDepartment(t, ctx, true)

	found, err := store.GetByID(ctx, dept.ID)
	require.NoError(t, err)
	assert.Equal(t, dept.Name, found.Name)
	assert.True(t, found.IsSpecific)

	_, err = store.GetByID(ctx, 999999999)
	assert.ErrorIs(t, err, apperrors.ErrDepartmentNotFound)
}
