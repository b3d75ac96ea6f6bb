package audit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medtrack/flagging-engine/internal/model"
	"github.com/medtrack/flagging-engine/internal/service/audit"
	apperrors "github.com/medtrack/flagging-engine/pkg/errors"
	"github.com/medtrack/flagging-engine/pkg/httputil"
)

type Handler struct {
	service *audit.Service
}

func NewHandler(service *audit.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/audit-entries", h.ListEntries)
}

// ListEntries returns audit entries newest first. All filters are optional
// query parameters.
func (h *Handler) ListEntries(c *gin.Context) {
	filters := &model.AuditFilters{
		Action: model.AuditAction(c.Query("action")),
	}

	for param, dst := range map[string]*uuid.UUID{
		"flag_id":    &filters.FlagID,
		"patient_id": &filters.PatientID,
		"doctor_id":  &filters.DoctorID,
	} {
		if raw := c.Query(param); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				httputil.RespondWithError(c, apperrors.Validation("invalid "+param, err))
				return
			}
			*dst = id
		}
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			httputil.RespondWithError(c, apperrors.Validation("invalid limit", err))
			return
		}
		filters.Limit = limit
	}

	entries, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, entries)
}
