package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/portal-backend/internal/core/domain"
	apperrors "github.com/lorrc/portal-backend/internal/core/errors"
	"github.com/lorrc/portal-backend/internal/core/ports"
)

const ticketColumns = `id, title, text, type, department_id, creator_id, assignee_id, status, feedback, created_at, closed_at`

// TicketStore is the secondary adapter for ticket persistence.
type TicketStore struct {
	pool *pgxpool.Pool
}

var _ ports.TicketStore = (*TicketStore)(nil)

// NewTicketStore creates a new ticket store.
func NewTicketStore(pool *pgxpool.Pool) *TicketStore {
	return &TicketStore{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var t domain.Ticket
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Text,
		&t.Type,
		&t.DepartmentID,
		&t.CreatorID,
		&t.AssigneeID,
		&t.Status,
		&t.Feedback,
		&t.CreatedAt,
		&t.ClosedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create persists a new ticket entity.
func (s *TicketStore) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO tickets (title, text, type, department_id, creator_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+ticketColumns,
		ticket.Title,
		ticket.Text,
		string(ticket.Type),
		ticket.DepartmentID,
		ticket.CreatorID,
		string(ticket.Status),
		ticket.CreatedAt,
	)
	return scanTicket(row)
}

// GetByID retrieves a single ticket by its ID.
func (s *TicketStore) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}
	return ticket, nil
}

// ListByDepartment retrieves a department's tickets with optional filters.
func (s *TicketStore) ListByDepartment(ctx context.Context, departmentID int64, filter ports.TicketFilter) ([]*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE department_id = $1`
	args := []any{departmentID}

	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Type != nil {
		args = append(args, string(*filter.Type))
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}

	query += " ORDER BY id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTickets(rows)
}

// ListUnassignedByDepartment retrieves the department's unclaimed pool: open
// tickets with no assignee, ordered by id so distribution order is stable.
func (s *TicketStore) ListUnassignedByDepartment(ctx context.Context, departmentID int64) ([]*domain.Ticket, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE department_id = $1
		  AND assignee_id IS NULL
		  AND status NOT IN ('COMPLETED', 'CANCELLED')
		ORDER BY id`,
		departmentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTickets(rows)
}

// CountOpenByAssignee counts non-terminal tickets per assignee in the
// department.
func (s *TicketStore) CountOpenByAssignee(ctx context.Context, departmentID int64) (map[uuid.UUID]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT assignee_id, COUNT(*)
		FROM tickets
		WHERE department_id = $1
		  AND assignee_id IS NOT NULL
		  AND status NOT IN ('COMPLETED', 'CANCELLED')
		GROUP BY assignee_id`,
		departmentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var assigneeID uuid.UUID
		var count int
		if err := rows.Scan(&assigneeID, &count); err != nil {
			return nil, err
		}
		counts[assigneeID] = count
	}
	return counts, rows.Err()
}

// UpdateConditional writes status, assignee, feedback and closedAt in one
// statement, predicated on the expected prior status/assignee pair. A row
// that moved on is never overwritten: the caller gets
// ErrConcurrentModification and must re-read.
func (s *TicketStore) UpdateConditional(ctx context.Context, ticket *domain.Ticket, expected ports.ExpectedTicketState) (*domain.Ticket, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE tickets
		SET status = $2, assignee_id = $3, feedback = $4, closed_at = $5
		WHERE id = $1
		  AND status = $6
		  AND assignee_id IS NOT DISTINCT FROM $7
		RETURNING `+ticketColumns,
		ticket.ID,
		string(ticket.Status),
		ticket.AssigneeID,
		ticket.Feedback,
		ticket.ClosedAt,
		string(expected.Status),
		expected.AssigneeID,
	)

	updated, err := scanTicket(row)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// Zero rows: either the ticket is gone or its state moved on.
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets WHERE id = $1)`, ticket.ID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.ErrTicketNotFound
	}
	return nil, apperrors.ErrConcurrentModification
}

func collectTickets(rows pgx.Rows) ([]*domain.Ticket, error) {
	var tickets []*domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}
