package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/lorrc/portal-backend/internal/core/domain"
)

// ExpectedTicketState is the prior state a conditional ticket update is
// predicated on. The store must reject the write if the row no longer
// matches, surfacing apperrors.ErrConcurrentModification.
type ExpectedTicketState struct {
	Status     domain.TicketStatus
	AssigneeID *uuid.UUID
}

// TicketFilter narrows ticket listings.
type TicketFilter struct {
	Status *domain.TicketStatus
	Type   *domain.TicketType
	Limit  int32
	Offset int32
}

// TicketStore is the secondary port for ticket persistence. Mutations of
// status/assignee go exclusively through UpdateConditional so two concurrent
// claims of the same ticket can never both succeed.
type TicketStore interface {
	Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	ListByDepartment(ctx context.Context, departmentID int64, filter TicketFilter) ([]*domain.Ticket, error)
	ListUnassignedByDepartment(ctx context.Context, departmentID int64) ([]*domain.Ticket, error)
	CountOpenByAssignee(ctx context.Context, departmentID int64) (map[uuid.UUID]int, error)

	// UpdateConditional atomically writes status, assignee, feedback and
	// closedAt, but only while the row still matches the expected prior
	// status/assignee pair. On mismatch it returns ErrConcurrentModification
	// without touching the row.
	UpdateConditional(ctx context.Context, ticket *domain.Ticket, expected ExpectedTicketState) (*domain.Ticket, error)
}

// UserStore is the secondary port for user lookups. The engine only reads
// users; the sole user-related mutation it performs is recording an
// assignment on the ticket itself.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ListActiveByDepartment(ctx context.Context, departmentID int64) ([]*domain.User, error)
}

// DepartmentStore is the secondary port for department lookups.
type DepartmentStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Department, error)
}
