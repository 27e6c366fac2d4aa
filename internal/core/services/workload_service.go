package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lorrc/portal-backend/internal/core/domain"
	apperrors "github.com/lorrc/portal-backend/internal/core/errors"
	"github.com/lorrc/portal-backend/internal/core/ports"
)

// Skip reasons reported by DistributeUnassigned.
const (
	skipReasonNoEligibleUser      = "no eligible user in department"
	skipReasonClaimedConcurrently = "claimed concurrently"
)

// WorkloadService keeps open-ticket load balanced across the users eligible
// to work a department's tickets. Distribution is greedy and incremental:
// each assignment is accounted for before the next ticket is placed, so a
// batch of unclaimed tickets never piles onto one user.
type WorkloadService struct {
	ticketStore ports.TicketStore
	userStore   ports.UserStore
	notifier    ports.Notifier
	broadcaster ports.EventBroadcaster
	logger      *slog.Logger
}

var _ ports.WorkloadService = (*WorkloadService)(nil)

// NewWorkloadService creates a new workload distribution service.
func NewWorkloadService(
	ticketStore ports.TicketStore,
	userStore ports.UserStore,
	notifier ports.Notifier,
	broadcaster ports.EventBroadcaster,
	logger *slog.Logger,
) ports.WorkloadService {
	return &WorkloadService{
		ticketStore: ticketStore,
		userStore:   userStore,
		notifier:    notifier,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// SnapshotLoad computes the current open-ticket count per eligible user in
// the department. Users with zero open tickets are included; the result is
// ordered ascending by load, ties broken by user id. The snapshot is
// recomputed on every call and never cached.
func (s *WorkloadService) SnapshotLoad(ctx context.Context, caps domain.Capabilities, departmentID int64) ([]domain.UserLoad, error) {
	if err := IsAdminOrSpecDepartment(caps).Err(); err != nil {
		return nil, err
	}

	return s.snapshot(ctx, departmentID)
}

func (s *WorkloadService) snapshot(ctx context.Context, departmentID int64) ([]domain.UserLoad, error) {
	users, err := s.userStore.ListActiveByDepartment(ctx, departmentID)
	if err != nil {
		return nil, err
	}

	counts, err := s.ticketStore.CountOpenByAssignee(ctx, departmentID)
	if err != nil {
		return nil, err
	}

	loads := make([]domain.UserLoad, 0, len(users))
	for _, u := range users {
		loads = append(loads, domain.UserLoad{
			UserID:      u.ID,
			OpenTickets: counts[u.ID],
		})
	}
	domain.SortLoads(loads)
	return loads, nil
}

// AssignOne directly assigns a ticket to a hand-picked user. Reassigning an
// already-assigned ticket requires the Override flag, which only admins may
// use; that prevents accidental silent takeover.
func (s *WorkloadService) AssignOne(ctx context.Context, caps domain.Capabilities, params ports.AssignTicketParams) (*domain.Ticket, error) {
	if err := IsAdminOrSpecDepartment(caps).Err(); err != nil {
		return nil, err
	}
	if params.Override {
		if err := IsAdmin(caps).Err(); err != nil {
			return nil, err
		}
	}

	ticket, err := s.ticketStore.GetByID(ctx, params.TicketID)
	if err != nil {
		return nil, err
	}

	if ticket.Status.IsTerminal() {
		return nil, apperrors.ErrAlreadyTerminal
	}
	if ticket.AssigneeID != nil && !params.Override {
		return nil, apperrors.ErrAlreadyAssigned
	}

	assignee, err := s.userStore.GetByID(ctx, params.AssigneeID)
	if err != nil {
		return nil, err
	}
	if assignee.Disabled {
		return nil, fmt.Errorf("%w: user is disabled", apperrors.ErrNotEligible)
	}
	if assignee.DepartmentID != ticket.DepartmentID {
		return nil, fmt.Errorf("%w: user belongs to a different department", apperrors.ErrNotEligible)
	}

	expected := ports.ExpectedTicketState{
		Status:     ticket.Status,
		AssigneeID: ticket.AssigneeID,
	}
	ticket.AssigneeID = &assignee.ID

	updated, err := s.ticketStore.UpdateConditional(ctx, ticket, expected)
	if err != nil {
		return nil, err
	}

	s.announceAssignment(updated)
	return updated, nil
}

// DistributeUnassigned assigns every unclaimed ticket in the department to
// the currently least-loaded eligible user. The pass is best-effort: a
// ticket that cannot be placed, or that someone claims mid-batch, is
// reported as skipped and the pass moves on. Cancellation aborts the
// remaining work; tickets already written stay written.
func (s *WorkloadService) DistributeUnassigned(ctx context.Context, caps domain.Capabilities, departmentID int64) (*domain.DistributionReport, error) {
	if err := IsAdminOrSpecDepartment(caps).Err(); err != nil {
		return nil, err
	}

	tickets, err := s.ticketStore.ListUnassignedByDepartment(ctx, departmentID)
	if err != nil {
		return nil, err
	}

	loads, err := s.snapshot(ctx, departmentID)
	if err != nil {
		return nil, err
	}

	report := &domain.DistributionReport{}
	for _, ticket := range tickets {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if len(loads) == 0 {
			report.Skipped = append(report.Skipped, domain.SkippedTicket{
				TicketID: ticket.ID,
				Reason:   skipReasonNoEligibleUser,
			})
			continue
		}

		target := leastLoaded(loads)

		expected := ports.ExpectedTicketState{
			Status:     ticket.Status,
			AssigneeID: nil,
		}
		assigneeID := target.UserID
		ticket.AssigneeID = &assigneeID

		updated, err := s.ticketStore.UpdateConditional(ctx, ticket, expected)
		if err != nil {
			if errors.Is(err, apperrors.ErrConcurrentModification) {
				// Someone else claimed it first; not our problem.
				report.Skipped = append(report.Skipped, domain.SkippedTicket{
					TicketID: ticket.ID,
					Reason:   skipReasonClaimedConcurrently,
				})
				continue
			}
			return report, err
		}

		bump(loads, target.UserID)
		report.Assigned = append(report.Assigned, domain.Assignment{
			TicketID: ticket.ID,
			UserID:   assigneeID,
		})
		s.announceAssignment(updated)
	}

	if s.logger != nil {
		s.logger.Info("distribution pass finished",
			"department_id", departmentID,
			"assigned", len(report.Assigned),
			"skipped", len(report.Skipped),
		)
	}

	return report, nil
}

// leastLoaded returns the snapshot entry with the fewest open tickets,
// lowest user id winning ties. The snapshot is kept sorted, so it is the
// head.
func leastLoaded(loads []domain.UserLoad) domain.UserLoad {
	return loads[0]
}

// bump accounts for one assignment and restores the snapshot ordering so
// the next pick sees the updated load.
func bump(loads []domain.UserLoad, userID uuid.UUID) {
	for i := range loads {
		if loads[i].UserID == userID {
			loads[i].OpenTickets++
			break
		}
	}
	domain.SortLoads(loads)
}

func (s *WorkloadService) announceAssignment(ticket *domain.Ticket) {
	if s.broadcaster != nil {
		_ = s.broadcaster.Broadcast(domain.Event{
			Type:         domain.EventTicketAssigned,
			TicketID:     ticket.ID,
			DepartmentID: ticket.DepartmentID,
			Payload:      ticket,
		})
	}
	if s.notifier != nil && ticket.AssigneeID != nil {
		s.notifier.Notify(context.Background(), ports.NotificationParams{
			RecipientUserID: *ticket.AssigneeID,
			Subject:         fmt.Sprintf("Ticket assigned to you: #%d", ticket.ID),
			Message:         fmt.Sprintf("The ticket '%s' was assigned to you.", ticket.Title),
			TicketID:        ticket.ID,
		})
	}
}
