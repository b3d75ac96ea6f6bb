package alert

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medtrack/flagging-engine/internal/service/alert"
	apperrors "github.com/medtrack/flagging-engine/pkg/errors"
	"github.com/medtrack/flagging-engine/pkg/httputil"
)

type Handler struct {
	service *alert.Service
}

func NewHandler(service *alert.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	alerts := r.Group("/alerts")
	{
		alerts.POST("/:id/read", h.MarkRead)
		alerts.POST("/:id/acknowledge", h.Acknowledge)
		alerts.POST("/:id/dismiss", h.Dismiss)
	}
	r.GET("/doctors/:id/alerts", h.GetDoctorAlerts)
}

func (h *Handler) GetDoctorAlerts(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid doctor ID", err))
		return
	}

	unreadOnly := c.Query("unread_only") == "true"

	alerts, err := h.service.GetDoctorAlerts(c.Request.Context(), doctorID, unreadOnly)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, alerts)
}

func (h *Handler) MarkRead(c *gin.Context) {
	h.transition(c, h.service.MarkRead)
}

func (h *Handler) Acknowledge(c *gin.Context) {
	h.transition(c, h.service.Acknowledge)
}

func (h *Handler) Dismiss(c *gin.Context) {
	h.transition(c, h.service.Dismiss)
}

func (h *Handler) transition(c *gin.Context, fn func(ctx context.Context, alertID uuid.UUID) error) {
	alertID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid alert ID", err))
		return
	}

	if err := fn(c.Request.Context(), alertID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"id": alertID})
}
