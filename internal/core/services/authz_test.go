package services_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/portal-backend/internal/core/domain"
	apperrors "github.com/lorrc/portal-backend/internal/core/errors"
	"github.com/lorrc/portal-backend/internal/core/services"
)

func TestIsAdmin(t *testing.T) {
	assert.True(t, services.IsAdmin(domain.Capabilities{IsAdmin: true}).Allowed)
	assert.False(t, services.IsAdmin(domain.Capabilities{}).Allowed)
}

func TestIsAdminOrSpecDepartment(t *testing.T) {
	tests := []struct {
		name string
		caps domain.Capabilities
		want bool
	}{
		{"admin", domain.Capabilities{IsAdmin: true}, true},
		{"specific department member", domain.Capabilities{DepartmentIsSpecific: true}, true},
		{"admin in specific department", domain.Capabilities{IsAdmin: true, DepartmentIsSpecific: true}, true},
		{"regular user", domain.Capabilities{}, false},
		{"publisher only", domain.Capabilities{HasPublishedRights: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, services.IsAdminOrSpecDepartment(tt.caps).Allowed)
		})
	}
}

func TestHasRightsOnTicket(t *testing.T) {
	creator := uuid.New()
	assignee := uuid.New()
	stranger := uuid.New()

	ticket := &domain.Ticket{
		ID:         1,
		CreatorID:  creator,
		AssigneeID: &assignee,
		Status:     domain.StatusInProgress,
	}

	tests := []struct {
		name string
		caps domain.Capabilities
		want bool
	}{
		{"admin", domain.Capabilities{UserID: stranger, IsAdmin: true}, true},
		{"assignee", domain.Capabilities{UserID: assignee}, true},
		{"creator", domain.Capabilities{UserID: creator}, true},
		{"stranger", domain.Capabilities{UserID: stranger}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := services.HasRightsOnTicket(tt.caps, ticket)
			assert.Equal(t, tt.want, d.Allowed)
			if !tt.want {
				assert.NotEmpty(t, d.Reason)
			}
		})
	}
}

func TestIsAdminOrSender(t *testing.T) {
	creator := uuid.New()
	assignee := uuid.New()

	ticket := &domain.Ticket{
		CreatorID:  creator,
		AssigneeID: &assignee,
	}

	assert.True(t, services.IsAdminOrSender(domain.Capabilities{IsAdmin: true}, ticket).Allowed)
	assert.True(t, services.IsAdminOrSender(domain.Capabilities{UserID: creator}, ticket).Allowed)
	// Being the assignee does not make you the sender.
	assert.False(t, services.IsAdminOrSender(domain.Capabilities{UserID: assignee}, ticket).Allowed)
}

func TestIsAdminOrPublisher(t *testing.T) {
	assert.True(t, services.IsAdminOrPublisher(domain.Capabilities{IsAdmin: true}).Allowed)
	assert.True(t, services.IsAdminOrPublisher(domain.Capabilities{HasPublishedRights: true}).Allowed)
	assert.False(t, services.IsAdminOrPublisher(domain.Capabilities{DepartmentIsSpecific: true}).Allowed)
}

func TestDecision_Err(t *testing.T) {
	require.NoError(t, services.IsAdmin(domain.Capabilities{IsAdmin: true}).Err())

	err := services.IsAdmin(domain.Capabilities{}).Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrDenied)

	var denied *apperrors.DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "admin rights required", denied.Reason)
}
