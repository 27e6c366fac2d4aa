package domain

import "github.com/google/uuid"

// Capabilities is the resolved set of rights derived from a caller identity.
// It is computed once per request by the identity resolver and passed
// explicitly into every permission check; engine code never re-fetches it.
// DepartmentID is carried because claiming a ticket requires the caller's
// department to match the ticket's.
type Capabilities struct {
	UserID               uuid.UUID
	IsAdmin              bool
	DepartmentID         int64
	DepartmentIsSpecific bool
	HasPublishedRights   bool
}
