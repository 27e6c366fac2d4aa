package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/lorrc/portal-backend/internal/core/domain"
	"github.com/lorrc/portal-backend/internal/core/ports"
)

// MockTicketStore is a mock implementation of ports.TicketStore
type MockTicketStore struct {
	mock.Mock
}

func NewMockTicketStore() *MockTicketStore {
	return &MockTicketStore{}
}

func (m *MockTicketStore) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketStore) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketStore) ListByDepartment(ctx context.Context, departmentID int64, filter ports.TicketFilter) ([]*domain.Ticket, error) {
	args := m.Called(ctx, departmentID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Ticket), args.Error(1)
}

func (m *MockTicketStore) ListUnassignedByDepartment(ctx context.Context, departmentID int64) ([]*domain.Ticket, error) {
	args := m.Called(ctx, departmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Ticket), args.Error(1)
}

func (m *MockTicketStore) CountOpenByAssignee(ctx context.Context, departmentID int64) (map[uuid.UUID]int, error) {
	args := m.Called(ctx, departmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]int), args.Error(1)
}

func (m *MockTicketStore) UpdateConditional(ctx context.Context, ticket *domain.Ticket, expected ports.ExpectedTicketState) (*domain.Ticket, error) {
	args := m.Called(ctx, ticket, expected)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

// MockUserStore is a mock implementation of ports.UserStore
type MockUserStore struct {
	mock.Mock
}

func NewMockUserStore() *MockUserStore {
	return &MockUserStore{}
}

func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserStore) ListActiveByDepartment(ctx context.Context, departmentID int64) ([]*domain.User, error) {
	args := m.Called(ctx, departmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

// MockDepartmentStore is a mock implementation of ports.DepartmentStore
type MockDepartmentStore struct {
	mock.Mock
}

func NewMockDepartmentStore() *MockDepartmentStore {
	return &MockDepartmentStore{}
}

func (m *MockDepartmentStore) GetByID(ctx context.Context, id int64) (*domain.Department, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Department), args.Error(1)
}

// MockNotifier is a mock implementation of ports.Notifier
type MockNotifier struct {
	mock.Mock
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(ctx context.Context, params ports.NotificationParams) {
	m.Called(ctx, params)
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(event domain.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockIdentityResolver is a mock implementation of ports.IdentityResolver
type MockIdentityResolver struct {
	mock.Mock
}

func NewMockIdentityResolver() *MockIdentityResolver {
	return &MockIdentityResolver{}
}

func (m *MockIdentityResolver) Resolve(ctx context.Context, subjectID uuid.UUID) (domain.Capabilities, error) {
	args := m.Called(ctx, subjectID)
	return args.Get(0).(domain.Capabilities), args.Error(1)
}
