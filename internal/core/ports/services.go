package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/lorrc/portal-backend/internal/core/domain"
)

// IdentityResolver translates an opaque caller identity (the subject claim
// of a verified token) into domain capabilities. It is the single place that
// translation happens, and it fails closed: any lookup failure yields an
// error, never default capabilities.
type IdentityResolver interface {
	Resolve(ctx context.Context, subjectID uuid.UUID) (domain.Capabilities, error)
}

// CreateTicketParams defines the required input for creating a new ticket.
type CreateTicketParams struct {
	Title        string
	Text         string
	Type         domain.TicketType
	DepartmentID int64
}

// ChangeStatusParams defines the input for changing a ticket's status.
// Feedback is required when Status is terminal.
type ChangeStatusParams struct {
	TicketID int64
	Status   domain.TicketStatus
	Feedback string
}

// AssignTicketParams defines the input for directly assigning a ticket.
// Override permits reassigning an already-assigned ticket and is restricted
// to admins.
type AssignTicketParams struct {
	TicketID   int64
	AssigneeID uuid.UUID
	Override   bool
}

// ListTicketsParams defines the input for listing a department's tickets.
type ListTicketsParams struct {
	DepartmentID int64
	Filter       TicketFilter
}

// TicketService defines the single-ticket operations: creation, reads and
// status transitions. Every method takes resolved capabilities; denial is
// decided before any side effect.
type TicketService interface {
	CreateTicket(ctx context.Context, caps domain.Capabilities, params CreateTicketParams) (*domain.Ticket, error)
	GetTicket(ctx context.Context, caps domain.Capabilities, ticketID int64) (*domain.Ticket, error)
	ChangeStatus(ctx context.Context, caps domain.Capabilities, params ChangeStatusParams) (*domain.Ticket, error)
	ListTickets(ctx context.Context, caps domain.Capabilities, params ListTicketsParams) ([]*domain.Ticket, error)
	Shutdown()
}

// WorkloadService defines the workload-balancing operations: load
// visibility, direct assignment and bulk distribution of unclaimed tickets.
type WorkloadService interface {
	SnapshotLoad(ctx context.Context, caps domain.Capabilities, departmentID int64) ([]domain.UserLoad, error)
	AssignOne(ctx context.Context, caps domain.Capabilities, params AssignTicketParams) (*domain.Ticket, error)
	DistributeUnassigned(ctx context.Context, caps domain.Capabilities, departmentID int64) (*domain.DistributionReport, error)
}

// NotificationParams defines the input for sending a notification.
type NotificationParams struct {
	RecipientUserID uuid.UUID
	Subject         string
	Message         string
	TicketID        int64
}

// Notifier defines the port for sending asynchronous notifications.
type Notifier interface {
	Notify(ctx context.Context, params NotificationParams)
}

// EventBroadcaster defines the port for pushing real-time ticket events.
type EventBroadcaster interface {
	Broadcast(event domain.Event) error
}
