package domain

// EventType identifies the kind of ticket event pushed to connected clients.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketStatusChanged EventType = "ticket_status_changed"
)

// Event is a real-time notification about a ticket, broadcast to clients
// subscribed to that ticket's department.
type Event struct {
	Type         EventType   `json:"type"`
	TicketID     int64       `json:"ticketId"`
	DepartmentID int64       `json:"departmentId"`
	Payload      interface{} `json:"payload,omitempty"`
}
