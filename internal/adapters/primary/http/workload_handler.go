package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/lorrc/portal-backend/internal/adapters/primary/http/middleware"
	"github.com/lorrc/portal-backend/internal/adapters/primary/validation"
	"github.com/lorrc/portal-backend/internal/core/domain"
	apperrors "github.com/lorrc/portal-backend/internal/core/errors"
	"github.com/lorrc/portal-backend/internal/core/ports"
)

// WorkloadHandler handles HTTP requests for load snapshots, direct
// assignment and bulk distribution.
type WorkloadHandler struct {
	workloadService   ports.WorkloadService
	identity          ports.IdentityResolver
	distributeLimiter *mw.RateLimitByKey
	errorHandler      *ErrorHandler
	logger            *slog.Logger
}

// NewWorkloadHandler creates a new workload handler. The distribute limiter
// is optional; when set, bulk distribution is throttled per caller.
func NewWorkloadHandler(
	workloadService ports.WorkloadService,
	identity ports.IdentityResolver,
	distributeLimiter *mw.RateLimitByKey,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *WorkloadHandler {
	return &WorkloadHandler{
		workloadService:   workloadService,
		identity:          identity,
		distributeLimiter: distributeLimiter,
		errorHandler:      errorHandler,
		logger:            logger.With("handler", "workload"),
	}
}

// RegisterDepartmentRoutes sets up the department-scoped workload endpoints.
// The ticket-scoped assignment endpoint is mounted by the ticket handler.
func (h *WorkloadHandler) RegisterDepartmentRoutes(r chi.Router) {
	r.Route("/{departmentID}", func(r chi.Router) {
		r.Get("/load", h.HandleSnapshotLoad)
		r.Post("/distribute", h.HandleDistribute)
	})
}

// --- Request/Response DTOs ---

// AssignTicketRequest defines the expected JSON body for assigning a ticket
type AssignTicketRequest struct {
	AssigneeID string `json:"assigneeId"`
	Override   bool   `json:"override"`
}

// Validate validates the assign ticket request
func (r *AssignTicketRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("assigneeId", r.AssigneeID).
		UUID("assigneeId", r.AssigneeID)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// UserLoadDTO is one row of a department load snapshot.
type UserLoadDTO struct {
	UserID      string `json:"userId"`
	OpenTickets int    `json:"openTickets"`
}

func toUserLoadDTOs(loads []domain.UserLoad) []UserLoadDTO {
	response := make([]UserLoadDTO, 0, len(loads))
	for _, load := range loads {
		response = append(response, UserLoadDTO{
			UserID:      load.UserID.String(),
			OpenTickets: load.OpenTickets,
		})
	}
	return response
}

// AssignmentDTO records one ticket handed out during distribution.
type AssignmentDTO struct {
	TicketID int64  `json:"ticketId"`
	UserID   string `json:"userId"`
}

// SkippedTicketDTO records one ticket distribution left alone.
type SkippedTicketDTO struct {
	TicketID int64  `json:"ticketId"`
	Reason   string `json:"reason"`
}

// DistributionReportDTO is the JSON response of a distribution pass.
type DistributionReportDTO struct {
	Assigned []AssignmentDTO    `json:"assigned"`
	Skipped  []SkippedTicketDTO `json:"skipped"`
}

func toDistributionReportDTO(report *domain.DistributionReport) DistributionReportDTO {
	dto := DistributionReportDTO{
		Assigned: make([]AssignmentDTO, 0, len(report.Assigned)),
		Skipped:  make([]SkippedTicketDTO, 0, len(report.Skipped)),
	}
	for _, a := range report.Assigned {
		dto.Assigned = append(dto.Assigned, AssignmentDTO{
			TicketID: a.TicketID,
			UserID:   a.UserID.String(),
		})
	}
	for _, s := range report.Skipped {
		dto.Skipped = append(dto.Skipped, SkippedTicketDTO{
			TicketID: s.TicketID,
			Reason:   s.Reason,
		})
	}
	return dto
}

// --- Handlers ---

// HandleSnapshotLoad handles GET /departments/{departmentID}/load
func (h *WorkloadHandler) HandleSnapshotLoad(w http.ResponseWriter, r *http.Request) {
	caps, ok := resolveCaps(w, r, h.identity, h.errorHandler)
	if !ok {
		return
	}

	departmentID, err := parseDepartmentID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	loads, err := h.workloadService.SnapshotLoad(r.Context(), caps, departmentID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, toUserLoadDTOs(loads))
}

// HandleAssignTicket handles PATCH /tickets/{ticketID}/assignee
func (h *WorkloadHandler) HandleAssignTicket(w http.ResponseWriter, r *http.Request) {
	caps, ok := resolveCaps(w, r, h.identity, h.errorHandler)
	if !ok {
		return
	}

	ticketID, err := parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[AssignTicketRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	assigneeID, err := uuid.Parse(req.AssigneeID)
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid assignee ID"))
		return
	}

	params := ports.AssignTicketParams{
		TicketID:   ticketID,
		AssigneeID: assigneeID,
		Override:   req.Override,
	}

	ticket, err := h.workloadService.AssignOne(r.Context(), caps, params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("ticket assigned",
		"ticket_id", ticketID,
		"assignee_id", assigneeID,
		"user_id", caps.UserID,
	)

	WriteJSON(w, http.StatusOK, toTicketDTO(ticket))
}

// HandleDistribute handles POST /departments/{departmentID}/distribute
func (h *WorkloadHandler) HandleDistribute(w http.ResponseWriter, r *http.Request) {
	caps, ok := resolveCaps(w, r, h.identity, h.errorHandler)
	if !ok {
		return
	}

	departmentID, err := parseDepartmentID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	// A distribution pass touches every unclaimed ticket in the department,
	// so callers are throttled individually.
	if h.distributeLimiter != nil && !h.distributeLimiter.Allow(caps.UserID.String()) {
		h.errorHandler.Handle(w, r, apperrors.NewRateLimitError())
		return
	}

	report, err := h.workloadService.DistributeUnassigned(r.Context(), caps, departmentID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("distribution pass finished",
		"department_id", departmentID,
		"assigned", len(report.Assigned),
		"skipped", len(report.Skipped),
		"user_id", caps.UserID,
	)

	WriteJSON(w, http.StatusOK, toDistributionReportDTO(report))
}

// parseDepartmentID extracts and validates the department ID from the URL
func parseDepartmentID(r *http.Request) (int64, error) {
	departmentID, ok := validation.ParseInt64PathParam(chi.URLParam(r, "departmentID"))
	if !ok {
		v := validation.NewValidator()
		v.Custom("departmentID", false, "Invalid department ID")
		return 0, v.Errors()
	}
	return departmentID, nil
}
