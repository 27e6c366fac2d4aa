package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/portal-backend/internal/core/domain"
	apperrors "github.com/lorrc/portal-backend/internal/core/errors"
	"github.com/lorrc/portal-backend/internal/core/ports"
)

// createTestDepartment creates a fresh department so tests do not interfere
// with each other.
func createTestDepartment(t *testing.T, ctx context.Context, isSpecific bool) *domain.Department {
	t.Helper()
	dept, err := NewDepartmentStore(testPool).Create(ctx, &domain.Department{
		Name:       "Department " + uuid.NewString(),
		IsSpecific: isSpecific,
	})
	require.NoError(t, err)
	return dept
}

func createTestUser(t *testing.T, ctx context.Context, departmentID int64) *domain.User {
	t.Helper()
	user, err := NewUserStore(testPool).Create(ctx, &domain.User{
		ID:           uuid.New(),
		FullName:     "Test User",
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "irrelevant",
		DepartmentID: departmentID,
		CreatedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)
	return user
}

func createTestTicket(t *testing.T, ctx context.Context, departmentID int64, creatorID uuid.UUID) *domain.Ticket {
	t.Helper()
	ticket, err := NewTicketStore(testPool).Create(ctx, &domain.Ticket{
		Title:        "Test Ticket",
		Text:         "Something is broken",
		Type:         domain.TypeTicket,
		DepartmentID: departmentID,
		CreatorID:    creatorID,
		Status:       domain.StatusNew,
		CreatedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)
	return ticket
}

func TestTicketStore_CreateGet(t *testing.T) {
	ctx := context.Background()
	store := NewTicketStore(testPool)

	dept := createTestDepartment(t, ctx, false)
	user := createTestUser(t, ctx, dept.ID)

	created := createTestTicket(t, ctx, dept.ID, user.ID)
	assert.NotZero(t, created.ID)

	found, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, "Test Ticket", found.Title)
	assert.Equal(t, "Something is broken", found.Text)
	assert.Equal(t, domain.TypeTicket, found.Type)
	assert.Equal(t, user.ID, found.CreatorID)
	assert.Equal(t, domain.StatusNew, found.Status)
	assert.Nil(t, found.AssigneeID)
	assert.Nil(t, found.Feedback)
	assert.Nil(t, found.ClosedAt)
}

func TestTicketStore_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	store := NewTicketStore(testPool)

	_, err := store.GetByID(ctx, 999999999)
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
}

func TestTicketStore_ListUnassignedByDepartment(t *testing.T) {
	ctx := context.Background()
	store := NewTicketStore(testPool)

	dept := createTestDepartment(t, ctx, false)
	user := createTestUser(t, ctx, dept.ID)

	t1 := createTestTicket(t, ctx, dept.ID, user.ID)
	t2 := createTestTicket(t, ctx, dept.ID, user.ID)

	// Assign one of them; it must drop out of the unclaimed pool.
	t2.AssigneeID = &user.ID
	_, err := store.UpdateConditional(ctx, t2, ports.ExpectedTicketState{
		Status:     domain.StatusNew,
		AssigneeID: nil,
	})
	require.NoError(t, err)

	unassigned, err := store.ListUnassignedByDepartment(ctx, dept.ID)
	require.NoError(t, err)

	require.Len(t, unassigned, 1)
	assert.Equal(t, t1.ID, unassigned[0].ID)
}

func TestTicketStore_CountOpenByAssignee(t *testing.T) {
	ctx := context.Background()
	store := NewTicketStore(testPool)

	dept := createTestDepartment(t, ctx, false)
	worker := createTestUser(t, ctx, dept.ID)
	other := createTestUser(t, ctx, dept.ID)

	assign := func(tk *domain.Ticket, to uuid.UUID) *domain.Ticket {
		tk.AssigneeID = &to
		updated, err := store.UpdateConditional(ctx, tk, ports.ExpectedTicketState{
			Status:     domain.StatusNew,
			AssigneeID: nil,
		})
		require.NoError(t, err)
		return updated
	}

	assign(createTestTicket(t, ctx, dept.ID, worker.ID), worker.ID)
	assign(createTestTicket(t, ctx, dept.ID, worker.ID), worker.ID)
	closedTicket := assign(createTestTicket(t, ctx, dept.ID, worker.ID), other.ID)

	// Close one ticket; terminal tickets never count as load.
	closedTicket.Status = domain.StatusCancelled
	feedback := "obsolete"
	closedTicket.Feedback = &feedback
	closedAt := time.Now().UTC()
	closedTicket.ClosedAt = &closedAt
	_, err := store.UpdateConditional(ctx, closedTicket, ports.ExpectedTicketState{
		Status:     domain.StatusNew,
		AssigneeID: &other.ID,
	})
	require.NoError(t, err)

	counts, err := store.CountOpenByAssignee(ctx, dept.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, counts[worker.ID])
	assert.Zero(t, counts[other.ID])
}

func TestTicketStore_UpdateConditional_Conflict(t *testing.T) {
	ctx := context.Background()
	store := NewTicketStore(testPool)

	dept := createTestDepartment(t, ctx, false)
	user := createTestUser(t, ctx, dept.ID)
	ticket := createTestTicket(t, ctx, dept.ID, user.ID)

	// First writer wins.
	ticket.Status = domain.StatusInProgress
	ticket.AssigneeID = &user.ID
	updated, err := store.UpdateConditional(ctx, ticket, ports.ExpectedTicketState{
		Status:     domain.StatusNew,
		AssigneeID: nil,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, updated.Status)

	// Second writer still holds the stale expectation and must be rejected.
	stale := *ticket
	_, err = store.UpdateConditional(ctx, &stale, ports.ExpectedTicketState{
		Status:     domain.StatusNew,
		AssigneeID: nil,
	})
	assert.ErrorIs(t, err, apperrors.ErrConcurrentModification)

	// The winning write is untouched.
	current, err := store.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, current.Status)
	require.NotNil(t, current.AssigneeID)
	assert.Equal(t, user.ID, *current.AssigneeID)
}

func TestTicketStore_UpdateConditional_ConcurrentClaims(t *testing.T) {
	ctx := context.Background()
	store := NewTicketStore(testPool)

	dept := createTestDepartment(t, ctx, false)
	alice := createTestUser(t, ctx, dept.ID)
	bob := createTestUser(t, ctx, dept.ID)
	ticket := createTestTicket(t, ctx, dept.ID, alice.ID)

	claim := func(claimer uuid.UUID) error {
		copied := *ticket
		copied.Status = domain.StatusInProgress
		copied.AssigneeID = &claimer
		_, err := store.UpdateConditional(ctx, &copied, ports.ExpectedTicketState{
			Status:     domain.StatusNew,
			AssigneeID: nil,
		})
		return err
	}

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, claimer := range []uuid.UUID{alice.ID, bob.ID} {
		wg.Add(1)
		go func(i int, claimer uuid.UUID) {
			defer wg.Done()
			results[i] = claim(claimer)
		}(i, claimer)
	}
	wg.Wait()

	var succeeded, conflicted int
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, apperrors.ErrConcurrentModification):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one concurrent claim must win")
	assert.Equal(t, 1, conflicted, "the loser must see a conflict")
}

func TestTicketStore_UpdateConditional_NotFound(t *testing.T) {
	ctx := context.Background()
	store := NewTicketStore(testPool)

	ghost := &domain.Ticket{
		ID:     999999999,
		Status: domain.StatusInProgress,
	}
	_, err := store.UpdateConditional(ctx, ghost, ports.ExpectedTicketState{
		Status: domain.StatusNew,
	})
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
}
