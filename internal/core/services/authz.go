package services

import (
	"github.com/lorrc/portal-backend/internal/core/domain"
	apperrors "github.com/lorrc/portal-backend/internal/core/errors"
)

// Decision is the outcome of a capability check. A denial always carries a
// human-readable reason; checks never allow by accident.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Err converts a denial into a DeniedError, or nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return apperrors.NewDeniedError(d.Reason)
}

// The predicates below are pure functions of the resolved capabilities and
// the entity in question: no store access, no globals. That keeps them
// testable in isolation from the identity and HTTP layers.

// IsAdmin allows admins only.
func IsAdmin(caps domain.Capabilities) Decision {
	if caps.IsAdmin {
		return allow()
	}
	return deny("admin rights required")
}

// IsAdminOrSpecDepartment allows admins and members of a specific
// department. This governs who may claim tickets from the unclaimed pool.
func IsAdminOrSpecDepartment(caps domain.Capabilities) Decision {
	if caps.IsAdmin || caps.DepartmentIsSpecific {
		return allow()
	}
	return deny("admin rights or specific department membership required")
}

// HasRightsOnTicket allows admins, the current assignee and the creator.
// This governs viewing and updating a specific ticket.
func HasRightsOnTicket(caps domain.Capabilities, ticket *domain.Ticket) Decision {
	if caps.IsAdmin || ticket.IsAssignedTo(caps.UserID) || ticket.IsCreatedBy(caps.UserID) {
		return allow()
	}
	return deny("must be admin, assignee or creator of the ticket")
}

// IsAdminOrSender allows admins and the original submitter. This governs
// cancellation of a new ticket and visibility of sensitive fields.
func IsAdminOrSender(caps domain.Capabilities, ticket *domain.Ticket) Decision {
	if caps.IsAdmin || ticket.IsCreatedBy(caps.UserID) {
		return allow()
	}
	return deny("must be admin or creator of the ticket")
}

// IsAdminOrPublisher allows admins and users with publishing rights. Posts
// live outside the engine; the check is here because it composes the same
// capability record.
func IsAdminOrPublisher(caps domain.Capabilities) Decision {
	if caps.IsAdmin || caps.HasPublishedRights {
		return allow()
	}
	return deny("admin or publishing rights required")
}

// canTrigger decides who may drive a given status transition, per the
// lifecycle rules: claiming needs elevated rights in the ticket's
// department, closing needs the assignee, cancelling a fresh ticket is the
// submitter's call. Admins may do all of it.
func canTrigger(caps domain.Capabilities, ticket *domain.Ticket, target domain.TicketStatus) Decision {
	switch {
	case ticket.Status == domain.StatusNew && target == domain.StatusInProgress:
		if d := IsAdminOrSpecDepartment(caps); !d.Allowed {
			return d
		}
		if !caps.IsAdmin && caps.DepartmentID != ticket.DepartmentID {
			return deny("specific department must match the ticket's department")
		}
		return allow()

	case ticket.Status == domain.StatusNew && target == domain.StatusCancelled:
		return IsAdminOrSender(caps, ticket)

	case ticket.Status == domain.StatusInProgress && target.IsTerminal():
		if caps.IsAdmin || ticket.IsAssignedTo(caps.UserID) {
			return allow()
		}
		return deny("must be admin or current assignee to close the ticket")

	default:
		// Not a legal edge; the domain transition check reports the
		// specific states. Nobody is allowed to drive it.
		return allow()
	}
}
