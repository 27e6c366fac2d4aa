package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/portal-backend/internal/core/domain"
	apperrors "github.com/lorrc/portal-backend/internal/core/errors"
	"github.com/lorrc/portal-backend/internal/core/mocks"
	"github.com/lorrc/portal-backend/internal/core/ports"
	"github.com/lorrc/portal-backend/internal/core/services"
)

// Fixed user ids with a known string ordering, so tie-break assertions are
// stable.
var (
	userA = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	userB = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	userC = uuid.MustParse("33333333-3333-3333-3333-333333333333")
)

var elevatedCaps = domain.Capabilities{
	UserID:               uuid.MustParse("99999999-9999-9999-9999-999999999999"),
	DepartmentID:         1,
	DepartmentIsSpecific: true,
}

type workloadFixture struct {
	tickets *mocks.MockTicketStore
	users   *mocks.MockUserStore
	svc     ports.WorkloadService
}

func newWorkloadFixture() *workloadFixture {
	f := &workloadFixture{
		tickets: mocks.NewMockTicketStore(),
		users:   mocks.NewMockUserStore(),
	}
	f.svc = services.NewWorkloadService(f.tickets, f.users, nil, nil, nil)
	return f
}

func departmentUsers(ids ...uuid.UUID) []*domain.User {
	users := make([]*domain.User, len(ids))
	for i, id := range ids {
		users[i] = &domain.User{ID: id, DepartmentID: 1}
	}
	return users
}

func unclaimed(id int64) *domain.Ticket {
	return &domain.Ticket{
		ID:           id,
		Title:        "ticket",
		DepartmentID: 1,
		CreatorID:    uuid.New(),
		Status:       domain.StatusNew,
	}
}

func TestWorkloadService_SnapshotLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("requires elevated rights", func(t *testing.T) {
		f := newWorkloadFixture()

		loads, err := f.svc.SnapshotLoad(ctx, domain.Capabilities{UserID: userA}, 1)

		assert.Nil(t, loads)
		assert.ErrorIs(t, err, apperrors.ErrDenied)
		f.users.AssertNotCalled(t, "ListActiveByDepartment")
	})

	t.Run("orders by load ascending, ties by user id", func(t *testing.T) {
		f := newWorkloadFixture()

		f.users.On("ListActiveByDepartment", ctx, int64(1)).
			Return(departmentUsers(userC, userA, userB), nil)
		f.tickets.On("CountOpenByAssignee", ctx, int64(1)).
			Return(map[uuid.UUID]int{userA: 2, userC: 1}, nil)

		loads, err := f.svc.SnapshotLoad(ctx, elevatedCaps, 1)

		require.NoError(t, err)
		// userB has zero open tickets and is still included.
		require.Len(t, loads, 3)
		assert.Equal(t, domain.UserLoad{UserID: userB, OpenTickets: 0}, loads[0])
		assert.Equal(t, domain.UserLoad{UserID: userC, OpenTickets: 1}, loads[1])
		assert.Equal(t, domain.UserLoad{UserID: userA, OpenTickets: 2}, loads[2])
	})

	t.Run("equal loads ordered by user id", func(t *testing.T) {
		f := newWorkloadFixture()

		f.users.On("ListActiveByDepartment", ctx, int64(1)).
			Return(departmentUsers(userB, userA), nil)
		f.tickets.On("CountOpenByAssignee", ctx, int64(1)).
			Return(map[uuid.UUID]int{userA: 1, userB: 1}, nil)

		loads, err := f.svc.SnapshotLoad(ctx, elevatedCaps, 1)

		require.NoError(t, err)
		require.Len(t, loads, 2)
		assert.Equal(t, userA, loads[0].UserID)
		assert.Equal(t, userB, loads[1].UserID)
	})
}

func TestWorkloadService_DistributeUnassigned(t *testing.T) {
	ctx := context.Background()

	t.Run("requires elevated rights", func(t *testing.T) {
		f := newWorkloadFixture()

		report, err := f.svc.DistributeUnassigned(ctx, domain.Capabilities{UserID: userA}, 1)

		assert.Nil(t, report)
		assert.ErrorIs(t, err, apperrors.ErrDenied)
	})

	t.Run("greedy least-loaded with incremental accounting", func(t *testing.T) {
		// Department with A at 0 open tickets and B at 2, three unclaimed
		// tickets. Expected: t1 -> A (0 vs 2), t2 -> A (1 vs 2), t3 -> A
		// (tie at 2, lower id wins).
		f := newWorkloadFixture()

		f.tickets.On("ListUnassignedByDepartment", ctx, int64(1)).
			Return([]*domain.Ticket{unclaimed(1), unclaimed(2), unclaimed(3)}, nil)
		f.users.On("ListActiveByDepartment", ctx, int64(1)).
			Return(departmentUsers(userA, userB), nil)
		f.tickets.On("CountOpenByAssignee", ctx, int64(1)).
			Return(map[uuid.UUID]int{userB: 2}, nil)

		assigned := make(map[int64]uuid.UUID)
		f.tickets.On("UpdateConditional", ctx, mock.AnythingOfType("*domain.Ticket"),
			ports.ExpectedTicketState{Status: domain.StatusNew, AssigneeID: nil}).
			Run(func(args mock.Arguments) {
				ticket := args.Get(1).(*domain.Ticket)
				require.NotNil(t, ticket.AssigneeID)
				assigned[ticket.ID] = *ticket.AssigneeID
			}).
			Return(unclaimed(0), nil)

		report, err := f.svc.DistributeUnassigned(ctx, elevatedCaps, 1)

		require.NoError(t, err)
		assert.Empty(t, report.Skipped)
		require.Len(t, report.Assigned, 3)
		assert.Equal(t, userA, assigned[1])
		assert.Equal(t, userA, assigned[2])
		assert.Equal(t, userA, assigned[3])
	})

	t.Run("spreads a large batch instead of piling on one user", func(t *testing.T) {
		f := newWorkloadFixture()

		tickets := []*domain.Ticket{unclaimed(1), unclaimed(2), unclaimed(3), unclaimed(4)}
		f.tickets.On("ListUnassignedByDepartment", ctx, int64(1)).Return(tickets, nil)
		f.users.On("ListActiveByDepartment", ctx, int64(1)).
			Return(departmentUsers(userA, userB), nil)
		f.tickets.On("CountOpenByAssignee", ctx, int64(1)).
			Return(map[uuid.UUID]int{}, nil)

		perUser := make(map[uuid.UUID]int)
		f.tickets.On("UpdateConditional", ctx, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				ticket := args.Get(1).(*domain.Ticket)
				perUser[*ticket.AssigneeID]++
			}).
			Return(unclaimed(0), nil)

		report, err := f.svc.DistributeUnassigned(ctx, elevatedCaps, 1)

		require.NoError(t, err)
		require.Len(t, report.Assigned, 4)
		assert.Equal(t, 2, perUser[userA])
		assert.Equal(t, 2, perUser[userB])
	})

	t.Run("no eligible user leaves tickets unassigned and reports it", func(t *testing.T) {
		f := newWorkloadFixture()

		f.tickets.On("ListUnassignedByDepartment", ctx, int64(1)).
			Return([]*domain.Ticket{unclaimed(1), unclaimed(2)}, nil)
		f.users.On("ListActiveByDepartment", ctx, int64(1)).
			Return([]*domain.User{}, nil)
		f.tickets.On("CountOpenByAssignee", ctx, int64(1)).
			Return(map[uuid.UUID]int{}, nil)

		report, err := f.svc.DistributeUnassigned(ctx, elevatedCaps, 1)

		require.NoError(t, err)
		assert.Empty(t, report.Assigned)
		require.Len(t, report.Skipped, 2)
		assert.Equal(t, "no eligible user in department", report.Skipped[0].Reason)
		f.tickets.AssertNotCalled(t, "UpdateConditional")
	})

	t.Run("mid-batch concurrent claim skips the ticket and continues", func(t *testing.T) {
		f := newWorkloadFixture()

		f.tickets.On("ListUnassignedByDepartment", ctx, int64(1)).
			Return([]*domain.Ticket{unclaimed(1), unclaimed(2)}, nil)
		f.users.On("ListActiveByDepartment", ctx, int64(1)).
			Return(departmentUsers(userA), nil)
		f.tickets.On("CountOpenByAssignee", ctx, int64(1)).
			Return(map[uuid.UUID]int{}, nil)

		f.tickets.On("UpdateConditional", ctx, mock.MatchedBy(func(tk *domain.Ticket) bool {
			return tk.ID == 1
		}), mock.Anything).Return(nil, apperrors.ErrConcurrentModification)
		f.tickets.On("UpdateConditional", ctx, mock.MatchedBy(func(tk *domain.Ticket) bool {
			return tk.ID == 2
		}), mock.Anything).Return(unclaimed(2), nil)

		report, err := f.svc.DistributeUnassigned(ctx, elevatedCaps, 1)

		require.NoError(t, err)
		require.Len(t, report.Skipped, 1)
		assert.Equal(t, int64(1), report.Skipped[0].TicketID)
		assert.Equal(t, "claimed concurrently", report.Skipped[0].Reason)
		require.Len(t, report.Assigned, 1)
		assert.Equal(t, int64(2), report.Assigned[0].TicketID)
	})

	t.Run("cancellation aborts remaining work", func(t *testing.T) {
		f := newWorkloadFixture()
		cancelledCtx, cancel := context.WithCancel(context.Background())

		f.tickets.On("ListUnassignedByDepartment", cancelledCtx, int64(1)).
			Return([]*domain.Ticket{unclaimed(1)}, nil)
		f.users.On("ListActiveByDepartment", cancelledCtx, int64(1)).
			Return(departmentUsers(userA), nil)
		f.tickets.On("CountOpenByAssignee", cancelledCtx, int64(1)).
			Return(map[uuid.UUID]int{}, nil)

		cancel()
		report, err := f.svc.DistributeUnassigned(cancelledCtx, elevatedCaps, 1)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, report.Assigned)
		f.tickets.AssertNotCalled(t, "UpdateConditional")
	})
}

func TestWorkloadService_AssignOne(t *testing.T) {
	ctx := context.Background()

	assignedTicket := func() *domain.Ticket {
		id := userB
		return &domain.Ticket{
			ID:           1,
			DepartmentID: 1,
			CreatorID:    uuid.New(),
			AssigneeID:   &id,
			Status:       domain.StatusInProgress,
		}
	}

	t.Run("assigns an unclaimed ticket to an eligible user", func(t *testing.T) {
		f := newWorkloadFixture()

		f.tickets.On("GetByID", ctx, int64(1)).Return(unclaimed(1), nil)
		f.users.On("GetByID", ctx, userA).
			Return(&domain.User{ID: userA, DepartmentID: 1}, nil)
		f.tickets.On("UpdateConditional", ctx, mock.AnythingOfType("*domain.Ticket"),
			ports.ExpectedTicketState{Status: domain.StatusNew, AssigneeID: nil}).
			Run(func(args mock.Arguments) {
				ticket := args.Get(1).(*domain.Ticket)
				require.NotNil(t, ticket.AssigneeID)
				assert.Equal(t, userA, *ticket.AssigneeID)
			}).
			Return(unclaimed(1), nil)

		_, err := f.svc.AssignOne(ctx, elevatedCaps, ports.AssignTicketParams{
			TicketID:   1,
			AssigneeID: userA,
		})

		require.NoError(t, err)
		f.tickets.AssertExpectations(t)
	})

	t.Run("requires elevated rights", func(t *testing.T) {
		f := newWorkloadFixture()

		_, err := f.svc.AssignOne(ctx, domain.Capabilities{UserID: userA}, ports.AssignTicketParams{
			TicketID:   1,
			AssigneeID: userA,
		})

		assert.ErrorIs(t, err, apperrors.ErrDenied)
		f.tickets.AssertNotCalled(t, "GetByID")
	})

	t.Run("already assigned without override", func(t *testing.T) {
		f := newWorkloadFixture()

		f.tickets.On("GetByID", ctx, int64(1)).Return(assignedTicket(), nil)

		_, err := f.svc.AssignOne(ctx, elevatedCaps, ports.AssignTicketParams{
			TicketID:   1,
			AssigneeID: userA,
		})

		assert.ErrorIs(t, err, apperrors.ErrAlreadyAssigned)
		f.tickets.AssertNotCalled(t, "UpdateConditional")
	})

	t.Run("override is admin-only", func(t *testing.T) {
		f := newWorkloadFixture()

		_, err := f.svc.AssignOne(ctx, elevatedCaps, ports.AssignTicketParams{
			TicketID:   1,
			AssigneeID: userA,
			Override:   true,
		})

		assert.ErrorIs(t, err, apperrors.ErrDenied)
		f.tickets.AssertNotCalled(t, "GetByID")
	})

	t.Run("admin override reassigns", func(t *testing.T) {
		f := newWorkloadFixture()
		adminCaps := domain.Capabilities{UserID: userC, IsAdmin: true}

		f.tickets.On("GetByID", ctx, int64(1)).Return(assignedTicket(), nil)
		f.users.On("GetByID", ctx, userA).
			Return(&domain.User{ID: userA, DepartmentID: 1}, nil)
		f.tickets.On("UpdateConditional", ctx, mock.Anything,
			ports.ExpectedTicketState{Status: domain.StatusInProgress, AssigneeID: &userB}).
			Return(assignedTicket(), nil)

		_, err := f.svc.AssignOne(ctx, adminCaps, ports.AssignTicketParams{
			TicketID:   1,
			AssigneeID: userA,
			Override:   true,
		})

		require.NoError(t, err)
		f.tickets.AssertExpectations(t)
	})

	t.Run("terminal ticket cannot be assigned", func(t *testing.T) {
		f := newWorkloadFixture()

		closed := unclaimed(1)
		closed.Status = domain.StatusCancelled
		f.tickets.On("GetByID", ctx, int64(1)).Return(closed, nil)

		_, err := f.svc.AssignOne(ctx, elevatedCaps, ports.AssignTicketParams{
			TicketID:   1,
			AssigneeID: userA,
		})

		assert.ErrorIs(t, err, apperrors.ErrAlreadyTerminal)
	})

	t.Run("disabled target is not eligible", func(t *testing.T) {
		f := newWorkloadFixture()

		f.tickets.On("GetByID", ctx, int64(1)).Return(unclaimed(1), nil)
		f.users.On("GetByID", ctx, userA).
			Return(&domain.User{ID: userA, DepartmentID: 1, Disabled: true}, nil)

		_, err := f.svc.AssignOne(ctx, elevatedCaps, ports.AssignTicketParams{
			TicketID:   1,
			AssigneeID: userA,
		})

		assert.ErrorIs(t, err, apperrors.ErrNotEligible)
		f.tickets.AssertNotCalled(t, "UpdateConditional")
	})

	t.Run("target from another department is not eligible", func(t *testing.T) {
		f := newWorkloadFixture()

		f.tickets.On("GetByID", ctx, int64(1)).Return(unclaimed(1), nil)
		f.users.On("GetByID", ctx, userA).
			Return(&domain.User{ID: userA, DepartmentID: 2}, nil)

		_, err := f.svc.AssignOne(ctx, elevatedCaps, ports.AssignTicketParams{
			TicketID:   1,
			AssigneeID: userA,
		})

		assert.ErrorIs(t, err, apperrors.ErrNotEligible)
		f.tickets.AssertNotCalled(t, "UpdateConditional")
	})
}
