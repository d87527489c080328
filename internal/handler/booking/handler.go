package booking

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rmaffei/scheduling-api/internal/model"
	"github.com/rmaffei/scheduling-api/internal/service/booking"
	"github.com/rmaffei/scheduling-api/pkg/errors"
	"github.com/rmaffei/scheduling-api/pkg/httputil"
)

type Handler struct {
	service *booking.Service
}

func NewHandler(service *booking.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	bookings := r.Group("/bookings")
	{
		bookings.GET("", h.ListBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.GET("/:id/chain", h.GetBookingChain)
		bookings.POST("/:id/reschedule", h.RescheduleBooking)
		bookings.POST("/:id/cancel", h.CancelBooking)
	}
}

func (h *Handler) GetBooking(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid booking ID", err))
		return
	}

	b, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, b)
}

// GetBookingChain returns the primary row and its continuations.
func (h *Handler) GetBookingChain(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid booking ID", err))
		return
	}

	chain, err := h.service.Chain(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, chain)
}

func (h *Handler) ListBookings(c *gin.Context) {
	professionalID, err := strconv.ParseInt(c.Query("professional_id"), 10, 64)
	if err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid professional ID", err))
		return
	}

	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid from date", err))
		return
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid to date", err))
		return
	}

	bookings, err := h.service.List(c.Request.Context(), professionalID, from, to)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, bookings)
}

// RescheduleBooking commits a drag-drop onto the target cell. The drop is
// refused when the target is occupied; the client re-fetches the grid after
// success.
func (h *Handler) RescheduleBooking(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid booking ID", err))
		return
	}

	var target model.SlotTarget
	if err := c.ShouldBindJSON(&target); err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid reschedule target", err))
		return
	}

	b, err := h.service.Reschedule(c.Request.Context(), id, target)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, b)
}

func (h *Handler) CancelBooking(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid booking ID", err))
		return
	}

	rows, err := h.service.Cancel(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"cancelled_rows": rows})
}
