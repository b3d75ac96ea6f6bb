package summary

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medtrack/flagging-engine/internal/service/summary"
	apperrors "github.com/medtrack/flagging-engine/pkg/errors"
	"github.com/medtrack/flagging-engine/pkg/httputil"
)

type Handler struct {
	service *summary.Service
}

func NewHandler(service *summary.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/patients/:id/flag-summary", h.GetPatientSummary)
	r.GET("/doctors/:id/flagged-patients", h.GetFlaggedPatients)
}

func (h *Handler) GetPatientSummary(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid patient ID", err))
		return
	}

	sum, err := h.service.GetPatientSummary(c.Request.Context(), patientID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, sum)
}

func (h *Handler) GetFlaggedPatients(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid doctor ID", err))
		return
	}

	patients, err := h.service.ListFlaggedPatients(c.Request.Context(), doctorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, patients)
}
