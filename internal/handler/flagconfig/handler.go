package flagconfig

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/medtrack/flagging-engine/internal/model"
	"github.com/medtrack/flagging-engine/internal/service/flagconfig"
	apperrors "github.com/medtrack/flagging-engine/pkg/errors"
	"github.com/medtrack/flagging-engine/pkg/httputil"
)

type Handler struct {
	service  *flagconfig.Service
	validate *validator.Validate
}

func NewHandler(service *flagconfig.Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/doctors/:id/flagging-config", h.GetConfig)
	r.PUT("/doctors/:id/flagging-config", h.UpdateConfig)
}

// GetConfig returns the doctor's flagging configuration, creating the
// defaults on first access.
func (h *Handler) GetConfig(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid doctor ID", err))
		return
	}

	cfg, err := h.service.GetOrCreate(c.Request.Context(), doctorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, cfg)
}

func (h *Handler) UpdateConfig(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid doctor ID", err))
		return
	}

	var req model.UpdateFlaggingConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid request body", err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	cfg, err := h.service.Update(c.Request.Context(), doctorID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, cfg)
}
