package domain

// Department groups users and tickets. A "specific" department (for example
// the help desk) gives its members elevated ticket-handling rights without
// making them admins.
type Department struct {
	ID         int64
	Name       string
	IsSpecific bool
}
