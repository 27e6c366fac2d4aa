package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lorrc/portal-backend/internal/core/domain"
	apperrors "github.com/lorrc/portal-backend/internal/core/errors"
	"github.com/lorrc/portal-backend/internal/core/ports"
)

// TicketService implements single-ticket business logic: creation, guarded
// reads and the status machine. All mutations go through the store's
// conditional update, so a transition either lands on the exact state the
// caller saw or fails with ErrConcurrentModification. The service never
// retries internally; a conflict is a caller-visible condition.
type TicketService struct {
	ticketStore ports.TicketStore
	deptStore   ports.DepartmentStore
	notifier    ports.Notifier
	broadcaster ports.EventBroadcaster
	wg          sync.WaitGroup
}

var _ ports.TicketService = (*TicketService)(nil)

// NewTicketService creates a new ticket service.
func NewTicketService(
	ticketStore ports.TicketStore,
	deptStore ports.DepartmentStore,
	notifier ports.Notifier,
	broadcaster ports.EventBroadcaster,
) ports.TicketService {
	return &TicketService{
		ticketStore: ticketStore,
		deptStore:   deptStore,
		notifier:    notifier,
		broadcaster: broadcaster,
	}
}

// CreateTicket handles the use case for submitting a new ticket. Any
// resolved caller may create; the caller becomes the creator.
func (s *TicketService) CreateTicket(ctx context.Context, caps domain.Capabilities, params ports.CreateTicketParams) (*domain.Ticket, error) {
	ticketParams := domain.TicketParams{
		Title:        params.Title,
		Text:         params.Text,
		Type:         params.Type,
		DepartmentID: params.DepartmentID,
		CreatorID:    caps.UserID,
	}

	ticket, err := domain.NewTicket(ticketParams)
	if err != nil {
		return nil, err
	}

	// The department reference must resolve before anything is written.
	if _, err := s.deptStore.GetByID(ctx, params.DepartmentID); err != nil {
		return nil, err
	}

	created, err := s.ticketStore.Create(ctx, ticket)
	if err != nil {
		return nil, err
	}

	s.broadcast(domain.Event{
		Type:         domain.EventTicketCreated,
		TicketID:     created.ID,
		DepartmentID: created.DepartmentID,
		Payload:      created,
	})

	return created, nil
}

// GetTicket retrieves a specific ticket for callers with rights on it.
func (s *TicketService) GetTicket(ctx context.Context, caps domain.Capabilities, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.ticketStore.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if err := HasRightsOnTicket(caps, ticket).Err(); err != nil {
		return nil, err
	}

	return ticket, nil
}

// ChangeStatus applies one status transition. Order matters: the
// authorization guard runs first so a denied request has no side effects,
// then the domain validates the transition and feedback, and only then is
// the conditional write attempted against the state that was read.
func (s *TicketService) ChangeStatus(ctx context.Context, caps domain.Capabilities, params ports.ChangeStatusParams) (*domain.Ticket, error) {
	if !params.Status.IsValid() {
		return nil, apperrors.ErrInvalidStatus
	}

	ticket, err := s.ticketStore.GetByID(ctx, params.TicketID)
	if err != nil {
		return nil, err
	}

	if err := canTrigger(caps, ticket, params.Status).Err(); err != nil {
		return nil, err
	}

	expected := ports.ExpectedTicketState{
		Status:     ticket.Status,
		AssigneeID: ticket.AssigneeID,
	}

	if err := ticket.TransitionTo(params.Status, params.Feedback, time.Now()); err != nil {
		return nil, err
	}

	// Claiming a fresh ticket makes the caller its assignee.
	if expected.Status == domain.StatusNew && params.Status == domain.StatusInProgress {
		ticket.Claim(caps.UserID)
	}

	updated, err := s.ticketStore.UpdateConditional(ctx, ticket, expected)
	if err != nil {
		return nil, err
	}

	if updated.CreatorID != caps.UserID {
		s.notifyStatusChange(updated)
	}

	s.broadcast(domain.Event{
		Type:         domain.EventTicketStatusChanged,
		TicketID:     updated.ID,
		DepartmentID: updated.DepartmentID,
		Payload:      updated,
	})

	return updated, nil
}

// ListTickets retrieves a department's tickets for elevated callers.
func (s *TicketService) ListTickets(ctx context.Context, caps domain.Capabilities, params ports.ListTicketsParams) ([]*domain.Ticket, error) {
	if err := IsAdminOrSpecDepartment(caps).Err(); err != nil {
		return nil, err
	}

	return s.ticketStore.ListByDepartment(ctx, params.DepartmentID, params.Filter)
}

// notifyStatusChange emails the ticket creator in the background.
func (s *TicketService) notifyStatusChange(ticket *domain.Ticket) {
	if s.notifier == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// The originating request may already be done.
		ctx := context.Background()

		s.notifier.Notify(ctx, ports.NotificationParams{
			RecipientUserID: ticket.CreatorID,
			Subject:         fmt.Sprintf("Your ticket status has been updated: #%d", ticket.ID),
			Message:         fmt.Sprintf("The status of your ticket '%s' was changed to %s.", ticket.Title, ticket.Status),
			TicketID:        ticket.ID,
		})
	}()
}

func (s *TicketService) broadcast(event domain.Event) {
	if s.broadcaster == nil {
		return
	}
	_ = s.broadcaster.Broadcast(event)
}

// Shutdown waits for in-flight background notifications.
func (s *TicketService) Shutdown() {
	s.wg.Wait()
}
