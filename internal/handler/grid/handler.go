package grid

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rmaffei/scheduling-api/internal/model"
	"github.com/rmaffei/scheduling-api/internal/service/grid"
	"github.com/rmaffei/scheduling-api/pkg/errors"
	"github.com/rmaffei/scheduling-api/pkg/httputil"
)

type Handler struct {
	service *grid.Service
}

func NewHandler(service *grid.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/grid", h.GetWeekGrid)
}

// GetWeekGrid renders the weekly availability grid for a professional.
func (h *Handler) GetWeekGrid(c *gin.Context) {
	professionalID, err := strconv.ParseInt(c.Query("professional_id"), 10, 64)
	if err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid professional ID", err))
		return
	}

	anchor := time.Now()
	if dateStr := c.Query("date"); dateStr != "" {
		anchor, err = time.Parse("2006-01-02", dateStr)
		if err != nil {
			httputil.RespondWithError(c, errors.NewBadRequest("invalid date format", err))
			return
		}
	}

	weekGrid, err := h.service.BuildWeek(c.Request.Context(), model.GridQuery{
		ProfessionalID: professionalID,
		AnchorDate:     anchor,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, weekGrid)
}
