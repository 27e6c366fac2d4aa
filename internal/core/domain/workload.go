package domain

import (
	"sort"

	"github.com/google/uuid"
)

// UserLoad is one entry of a workload snapshot: how many open (non-terminal)
// tickets a user currently holds. Snapshots are derived on demand and never
// persisted or cached, so they always reflect the latest assignment state.
type UserLoad struct {
	UserID      uuid.UUID
	OpenTickets int
}

// SortLoads orders a snapshot ascending by load, ties broken by user id, so
// the distribution algorithm is deterministic for a given input state.
func SortLoads(loads []UserLoad) {
	sort.Slice(loads, func(i, j int) bool {
		if loads[i].OpenTickets != loads[j].OpenTickets {
			return loads[i].OpenTickets < loads[j].OpenTickets
		}
		return loads[i].UserID.String() < loads[j].UserID.String()
	})
}

// Assignment records one ticket handed to one user during distribution.
type Assignment struct {
	TicketID int64
	UserID   uuid.UUID
}

// SkippedTicket records a ticket the distribution pass could not assign,
// with the reason it was left alone.
type SkippedTicket struct {
	TicketID int64
	Reason   string
}

// DistributionReport aggregates the per-ticket outcomes of one distribution
// pass. Distribution is best-effort: individual failures never abort the
// batch, they land here.
type DistributionReport struct {
	Assigned []Assignment
	Skipped  []SkippedTicket
}
