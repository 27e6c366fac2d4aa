package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lorrc/portal-backend/internal/adapters/primary/validation"
	"github.com/lorrc/portal-backend/internal/core/domain"
	"github.com/lorrc/portal-backend/internal/core/ports"
)

const maxTicketsPerPage = 100

// TicketHandler handles HTTP requests for tickets
type TicketHandler struct {
	ticketService   ports.TicketService
	identity        ports.IdentityResolver
	workloadHandler *WorkloadHandler
	errorHandler    *ErrorHandler
	logger          *slog.Logger
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(
	ticketService ports.TicketService,
	identity ports.IdentityResolver,
	workloadHandler *WorkloadHandler,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *TicketHandler {
	return &TicketHandler{
		ticketService:   ticketService,
		identity:        identity,
		workloadHandler: workloadHandler,
		errorHandler:    errorHandler,
		logger:          logger.With("handler", "ticket"),
	}
}

// RegisterRoutes sets up the routing for all ticket endpoints.
func (h *TicketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListTickets)
	r.Post("/", h.HandleCreateTicket)

	// Routes for a specific ticket
	r.Route("/{ticketID}", func(r chi.Router) {
		r.Get("/", h.HandleGetTicket)
		r.Patch("/status", h.HandleChangeStatus)

		// Direct assignment shares the ticket subtree
		if h.workloadHandler != nil {
			r.Patch("/assignee", h.workloadHandler.HandleAssignTicket)
		}
	})
}

// --- Request/Response DTOs ---

// CreateTicketRequest defines the expected JSON body for creating a ticket
type CreateTicketRequest struct {
	Title        string `json:"title"`
	Text         string `json:"text"`
	Type         string `json:"type"`
	DepartmentID int64  `json:"departmentId"`
}

// Validate validates the create ticket request
func (r *CreateTicketRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("title", r.Title).
		MaxLength("title", r.Title, domain.MaxTitleLength)

	v.MaxLength("text", r.Text, domain.MaxTextLength)

	v.Required("type", r.Type).
		OneOf("type", r.Type, []string{"TICKET", "SUGGESTION"})

	v.PositiveID("departmentId", r.DepartmentID)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// ChangeStatusRequest defines the expected JSON body for status updates.
// Feedback is required for the terminal states.
type ChangeStatusRequest struct {
	Status   string `json:"status"`
	Feedback string `json:"feedback"`
}

// Validate validates the change status request
func (r *ChangeStatusRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("status", r.Status).
		OneOf("status", r.Status, []string{"NEW", "IN_PROGRESS", "COMPLETED", "CANCELLED"})

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// TicketDTO defines the JSON response for tickets.
type TicketDTO struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Text         string  `json:"text"`
	Type         string  `json:"type"`
	Status       string  `json:"status"`
	DepartmentID int64   `json:"departmentId"`
	CreatorID    string  `json:"creatorId"`
	AssigneeID   *string `json:"assigneeId"`
	Feedback     *string `json:"feedback"`
	CreatedAt    string  `json:"createdAt"`
	ClosedAt     *string `json:"closedAt"`
}

func toTicketDTO(ticket *domain.Ticket) TicketDTO {
	var assigneeID *string
	if ticket.AssigneeID != nil {
		value := ticket.AssigneeID.String()
		assigneeID = &value
	}

	var closedAt *string
	if ticket.ClosedAt != nil {
		value := ticket.ClosedAt.Format(time.RFC3339)
		closedAt = &value
	}

	return TicketDTO{
		ID:           ticket.ID,
		Title:        ticket.Title,
		Text:         ticket.Text,
		Type:         string(ticket.Type),
		Status:       string(ticket.Status),
		DepartmentID: ticket.DepartmentID,
		CreatorID:    ticket.CreatorID.String(),
		AssigneeID:   assigneeID,
		Feedback:     ticket.Feedback,
		CreatedAt:    ticket.CreatedAt.Format(time.RFC3339),
		ClosedAt:     closedAt,
	}
}

func toTicketDTOs(tickets []*domain.Ticket) []TicketDTO {
	response := make([]TicketDTO, 0, len(tickets))
	for _, ticket := range tickets {
		response = append(response, toTicketDTO(ticket))
	}
	return response
}

// --- Handlers ---

// HandleListTickets handles GET /tickets?departmentId=N
func (h *TicketHandler) HandleListTickets(w http.ResponseWriter, r *http.Request) {
	caps, ok := resolveCaps(w, r, h.identity, h.errorHandler)
	if !ok {
		return
	}

	v := validation.NewValidator()

	departmentID, valid := validation.ParseInt64PathParam(r.URL.Query().Get("departmentId"))
	if !valid {
		v.Custom("departmentId", false, "Must be a positive identifier")
	}

	pagination := validation.ParsePagination(r, maxTicketsPerPage)

	var status *domain.TicketStatus
	if raw := validation.ParseStringQueryParam(r, "status"); raw != nil {
		parsed := domain.TicketStatus(*raw)
		if !parsed.IsValid() {
			v.Custom("status", false, "Must be a valid ticket status")
		} else {
			status = &parsed
		}
	}

	var ticketType *domain.TicketType
	if raw := validation.ParseStringQueryParam(r, "type"); raw != nil {
		parsed := domain.TicketType(*raw)
		if !parsed.IsValid() {
			v.Custom("type", false, "Must be TICKET or SUGGESTION")
		} else {
			ticketType = &parsed
		}
	}

	if v.HasErrors() {
		h.errorHandler.Handle(w, r, v.Errors())
		return
	}

	params := ports.ListTicketsParams{
		DepartmentID: departmentID,
		Filter: ports.TicketFilter{
			Status: status,
			Type:   ticketType,
			Limit:  int32(pagination.Limit + 1),
			Offset: int32(pagination.Offset),
		},
	}

	tickets, err := h.ticketService.ListTickets(r.Context(), caps, params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WritePaginatedSimple(w, toTicketDTOs(tickets), pagination.Limit, pagination.Offset)
}

// HandleCreateTicket handles POST /tickets
func (h *TicketHandler) HandleCreateTicket(w http.ResponseWriter, r *http.Request) {
	caps, ok := resolveCaps(w, r, h.identity, h.errorHandler)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[CreateTicketRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.CreateTicketParams{
		Title:        req.Title,
		Text:         req.Text,
		Type:         domain.TicketType(req.Type),
		DepartmentID: req.DepartmentID,
	}

	ticket, err := h.ticketService.CreateTicket(r.Context(), caps, params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("ticket created",
		"ticket_id", ticket.ID,
		"user_id", caps.UserID,
	)

	WriteCreated(w, toTicketDTO(ticket))
}

// HandleGetTicket handles GET /tickets/{ticketID}
func (h *TicketHandler) HandleGetTicket(w http.ResponseWriter, r *http.Request) {
	caps, ok := resolveCaps(w, r, h.identity, h.errorHandler)
	if !ok {
		return
	}

	ticketID, err := parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.ticketService.GetTicket(r.Context(), caps, ticketID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toTicketDTO(ticket))
}

// HandleChangeStatus handles PATCH /tickets/{ticketID}/status
func (h *TicketHandler) HandleChangeStatus(w http.ResponseWriter, r *http.Request) {
	caps, ok := resolveCaps(w, r, h.identity, h.errorHandler)
	if !ok {
		return
	}

	ticketID, err := parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[ChangeStatusRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.ChangeStatusParams{
		TicketID: ticketID,
		Status:   domain.TicketStatus(req.Status),
		Feedback: req.Feedback,
	}

	ticket, err := h.ticketService.ChangeStatus(r.Context(), caps, params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("ticket status changed",
		"ticket_id", ticketID,
		"new_status", req.Status,
		"user_id", caps.UserID,
	)

	WriteJSON(w, http.StatusOK, toTicketDTO(ticket))
}

// parseTicketID extracts and validates the ticket ID from the URL
func parseTicketID(r *http.Request) (int64, error) {
	ticketID, ok := validation.ParseInt64PathParam(chi.URLParam(r, "ticketID"))
	if !ok {
		v := validation.NewValidator()
		v.Custom("ticketID", false, "Invalid ticket ID")
		return 0, v.Errors()
	}
	return ticketID, nil
}
