package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/lorrc/portal-backend/internal/core/errors"
)

// Field length limits for ticket validation.
const (
	MaxTitleLength = 255
	MaxTextLength  = 10000
)

// TicketStatus represents the lifecycle state of a ticket.
type TicketStatus string

const (
	StatusNew        TicketStatus = "NEW"
	StatusInProgress TicketStatus = "IN_PROGRESS"
	StatusCompleted  TicketStatus = "COMPLETED"
	StatusCancelled  TicketStatus = "CANCELLED"
)

// IsValid reports whether the status is one of the known lifecycle states.
func (s TicketStatus) IsValid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether the status ends the ticket lifecycle.
func (s TicketStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// TicketType distinguishes work requests from suggestions. Both share the
// same lifecycle; routing and reporting treat them differently.
type TicketType string

const (
	TypeTicket     TicketType = "TICKET"
	TypeSuggestion TicketType = "SUGGESTION"
)

// IsValid reports whether the type is known.
func (t TicketType) IsValid() bool {
	return t == TypeTicket || t == TypeSuggestion
}

// Ticket is the core domain entity. A nil AssigneeID means the ticket is
// unclaimed. Feedback and ClosedAt are set exactly when the ticket reaches a
// terminal status; tickets are never deleted, only closed.
type Ticket struct {
	ID           int64
	Title        string
	Text         string
	Type         TicketType
	DepartmentID int64
	CreatorID    uuid.UUID
	AssigneeID   *uuid.UUID
	Status       TicketStatus
	Feedback     *string
	CreatedAt    time.Time
	ClosedAt     *time.Time
}

// TicketParams holds the input for creating a new ticket.
type TicketParams struct {
	Title        string
	Text         string
	Type         TicketType
	DepartmentID int64
	CreatorID    uuid.UUID
}

// Validate checks ticket creation parameters field by field.
func (p *TicketParams) Validate() error {
	errs := apperrors.NewValidationErrors()

	if p.Title == "" {
		errs.Add("title", "Title is required")
	} else if len(p.Title) > MaxTitleLength {
		errs.Add("title", "Title must be 255 characters or less")
	}

	if len(p.Text) > MaxTextLength {
		errs.Add("text", "Text must be 10000 characters or less")
	}

	if !p.Type.IsValid() {
		errs.Add("type", "Type must be TICKET or SUGGESTION")
	}

	if p.DepartmentID == 0 {
		errs.Add("departmentId", "Department is required")
	}

	if p.CreatorID == uuid.Nil {
		errs.Add("creatorId", "Creator is required")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// NewTicket is a factory function to create a valid new ticket. New tickets
// always start unclaimed in status NEW.
func NewTicket(params TicketParams) (*Ticket, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return &Ticket{
		Title:        params.Title,
		Text:         params.Text,
		Type:         params.Type,
		DepartmentID: params.DepartmentID,
		CreatorID:    params.CreatorID,
		Status:       StatusNew,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// validTransitions defines the legal lifecycle edges. Terminal states have
// no outgoing edges: closed tickets cannot be reopened.
var validTransitions = map[TicketStatus][]TicketStatus{
	StatusNew:        {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// CanTransitionTo reports whether moving to the target status is legal from
// the ticket's current status.
func (t *Ticket) CanTransitionTo(target TicketStatus) bool {
	for _, s := range validTransitions[t.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// TransitionTo applies a status change in place. Terminal targets require
// non-empty feedback and stamp ClosedAt; the feedback check runs before any
// field is touched so a rejected transition leaves the ticket unchanged.
func (t *Ticket) TransitionTo(target TicketStatus, feedback string, now time.Time) error {
	if !t.CanTransitionTo(target) {
		return apperrors.NewTransitionError(string(t.Status), string(target))
	}

	if target.IsTerminal() {
		if feedback == "" {
			return apperrors.ErrMissingFeedback
		}
		t.Feedback = &feedback
		closedAt := now.UTC()
		t.ClosedAt = &closedAt
	}

	t.Status = target
	return nil
}

// Claim records the claiming user as assignee when the ticket has none.
// Used on the NEW -> IN_PROGRESS edge so the triggering user takes the work.
func (t *Ticket) Claim(userID uuid.UUID) {
	if t.AssigneeID == nil {
		id := userID
		t.AssigneeID = &id
	}
}

// IsCreatedBy reports whether the given user submitted the ticket.
func (t *Ticket) IsCreatedBy(userID uuid.UUID) bool {
	return t.CreatorID == userID
}

// IsAssignedTo reports whether the given user is the current assignee.
func (t *Ticket) IsAssignedTo(userID uuid.UUID) bool {
	return t.AssigneeID != nil && *t.AssigneeID == userID
}

// IsOpen reports whether the ticket is still in a non-terminal state.
func (t *Ticket) IsOpen() bool {
	return !t.Status.IsTerminal()
}
