package workflow

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rmaffei/scheduling-api/internal/model"
	"github.com/rmaffei/scheduling-api/internal/service/workflow"
	"github.com/rmaffei/scheduling-api/pkg/errors"
	"github.com/rmaffei/scheduling-api/pkg/httputil"
)

type Handler struct {
	service *workflow.Service
}

func NewHandler(service *workflow.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	workflows := r.Group("/workflows")
	{
		workflows.POST("", h.OpenWorkflow)
		workflows.GET("/:id", h.GetWorkflow)
		workflows.POST("/:id/patient", h.SelectPatient)
		workflows.POST("/:id/contact", h.UseContact)
		workflows.POST("/:id/slot", h.ConfigureSlot)
		workflows.GET("/:id/return-candidates", h.ListReturnCandidates)
		workflows.POST("/:id/return", h.LinkReturn)
		workflows.POST("/:id/submit", h.Submit)
		workflows.POST("/:id/cancel", h.CancelBooking)
	}
}

type openWorkflowRequest struct {
	BookingID      *int64 `json:"booking_id"`
	ProfessionalID int64  `json:"professional_id"`
	Date           string `json:"date"`
	Start          string `json:"start"`
	End            string `json:"end"`
	PatientID      *int64 `json:"patient_id"`
}

// OpenWorkflow starts a booking session, either over an existing booking or
// from an empty grid cell.
func (h *Handler) OpenWorkflow(c *gin.Context) {
	var req openWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid request body", err))
		return
	}

	open := workflow.OpenRequest{
		BookingID:      req.BookingID,
		ProfessionalID: req.ProfessionalID,
		Start:          req.Start,
		End:            req.End,
		PatientID:      req.PatientID,
	}
	if req.BookingID == nil {
		if req.ProfessionalID == 0 {
			httputil.RespondWithError(c, errors.NewValidation("professional_id is required"))
			return
		}
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			httputil.RespondWithError(c, errors.NewBadRequest("invalid date format", err))
			return
		}
		open.Date = date
	}

	session, err := h.service.Open(c.Request.Context(), open)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, session.View())
}

func (h *Handler) GetWorkflow(c *gin.Context) {
	session, err := h.service.Get(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, session.View())
}

type selectPatientRequest struct {
	PatientID int64 `json:"patient_id" binding:"required"`
}

func (h *Handler) SelectPatient(c *gin.Context) {
	var req selectPatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid request body", err))
		return
	}

	session, err := h.service.SelectPatient(c.Request.Context(), c.Param("id"), req.PatientID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, session.View())
}

type useContactRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// UseContact switches the session to contact-only mode.
func (h *Handler) UseContact(c *gin.Context) {
	var req useContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid request body", err))
		return
	}

	session, err := h.service.UseContact(c.Param("id"), req.Name, req.Phone)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, session.View())
}

type configureSlotRequest struct {
	Date        *string `json:"date"`
	Start       *string `json:"start"`
	End         *string `json:"end"`
	RoomID      *int64  `json:"room_id"`
	Type        *string `json:"type"`
	Status      *string `json:"status"`
	Observation *string `json:"observation"`
}

func (h *Handler) ConfigureSlot(c *gin.Context) {
	var req configureSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid request body", err))
		return
	}

	input := workflow.SlotInput{
		Start:       req.Start,
		End:         req.End,
		RoomID:      req.RoomID,
		Observation: req.Observation,
	}
	if req.Date != nil {
		date, err := time.Parse("2006-01-02", *req.Date)
		if err != nil {
			httputil.RespondWithError(c, errors.NewBadRequest("invalid date format", err))
			return
		}
		input.Date = &date
	}
	if req.Type != nil {
		t := model.BookingType(*req.Type)
		input.Type = &t
	}
	if req.Status != nil {
		st := model.BookingStatus(*req.Status)
		input.Status = &st
	}

	session, err := h.service.ConfigureSlot(c.Param("id"), input)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, session.View())
}

// ListReturnCandidates lists the prior visits eligible to anchor a return
// booking for the session's patient.
func (h *Handler) ListReturnCandidates(c *gin.Context) {
	candidates, err := h.service.ReturnCandidates(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, candidates)
}

type linkReturnRequest struct {
	AttendanceID int64 `json:"attendance_id" binding:"required"`
}

func (h *Handler) LinkReturn(c *gin.Context) {
	var req linkReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid request body", err))
		return
	}

	session, err := h.service.LinkReturn(c.Request.Context(), c.Param("id"), req.AttendanceID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, session.View())
}

func (h *Handler) Submit(c *gin.Context) {
	saved, err := h.service.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, saved)
}

func (h *Handler) CancelBooking(c *gin.Context) {
	rows, err := h.service.CancelBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"cancelled_rows": rows})
}
