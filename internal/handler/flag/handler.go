package flag

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/medtrack/flagging-engine/internal/model"
	"github.com/medtrack/flagging-engine/internal/repository"
	"github.com/medtrack/flagging-engine/internal/service/alert"
	"github.com/medtrack/flagging-engine/internal/service/flag"
	"github.com/medtrack/flagging-engine/internal/service/flagconfig"
	apperrors "github.com/medtrack/flagging-engine/pkg/errors"
	"github.com/medtrack/flagging-engine/pkg/httputil"
)

type Handler struct {
	flagSvc      *flag.Service
	alertSvc     *alert.Service
	configSvc    *flagconfig.Service
	appointments repository.AppointmentSource
	validate     *validator.Validate
}

func NewHandler(flagSvc *flag.Service, alertSvc *alert.Service, configSvc *flagconfig.Service, appointments repository.AppointmentSource) *Handler {
	return &Handler{
		flagSvc:      flagSvc,
		alertSvc:     alertSvc,
		configSvc:    configSvc,
		appointments: appointments,
		validate:     validator.New(),
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	flags := r.Group("/flags")
	{
		flags.POST("", h.CreateFlag)
		flags.GET("/:id", h.GetFlag)
		flags.GET("/:id/revisions", h.GetRevisions)
		flags.POST("/:id/resolve", h.ResolveFlag)
		flags.POST("/:id/amend", h.AmendFlag)
	}
	r.GET("/patients/:id/flags", h.GetPatientFlags)
}

// CreateFlag creates a flag manually on behalf of a doctor. The same
// compliance gate and uniqueness rules apply as for automatic flagging.
func (h *Handler) CreateFlag(c *gin.Context) {
	var req model.CreateFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid request body", err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	appointmentID, _ := uuid.Parse(req.AppointmentID)
	createdBy, _ := uuid.Parse(req.CreatedBy)

	apt, err := h.appointments.Get(c.Request.Context(), appointmentID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	cfg, err := h.configSvc.GetOrCreate(c.Request.Context(), apt.DoctorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	created, err := h.flagSvc.CreateFlag(c.Request.Context(), flag.CreateParams{
		Appointment: apt,
		Reason:      model.FlagReasonNoResponse,
		Severity:    model.FlagSeverity(req.Severity),
		Description: req.Description,
		CreatedBy:   createdBy,
		ActorType:   model.ActorTypeDoctor,
	}, cfg)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if _, err := h.alertSvc.CreateAlert(c.Request.Context(), created, apt, cfg); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, created)
}

func (h *Handler) GetFlag(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid flag ID", err))
		return
	}

	found, err := h.flagSvc.GetFlag(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, found)
}

func (h *Handler) GetRevisions(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid flag ID", err))
		return
	}

	revisions, err := h.flagSvc.GetRevisions(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, revisions)
}

func (h *Handler) ResolveFlag(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid flag ID", err))
		return
	}

	var req model.ResolveFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid request body", err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	resolvedBy, _ := uuid.Parse(req.ResolvedBy)

	resolved, err := h.flagSvc.ResolveFlag(c.Request.Context(), id, req.ResolutionNotes, resolvedBy)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, resolved)
}

func (h *Handler) AmendFlag(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid flag ID", err))
		return
	}

	var req model.AmendFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid request body", err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	amendedBy, _ := uuid.Parse(req.AmendedBy)

	params := flag.AmendmentParams{
		Description:     req.Description,
		ResolutionNotes: req.ResolutionNotes,
		ChangeReason:    req.ChangeReason,
		AmendedBy:       amendedBy,
		ActorType:       model.ActorTypeDoctor,
	}
	if req.Severity != nil {
		sev := model.FlagSeverity(*req.Severity)
		params.Severity = &sev
	}

	amended, err := h.flagSvc.ApplyAmendment(c.Request.Context(), id, params)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, amended)
}

func (h *Handler) GetPatientFlags(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid patient ID", err))
		return
	}

	includeResolved := c.Query("include_resolved") == "true"

	flags, err := h.flagSvc.GetPatientFlags(c.Request.Context(), patientID, includeResolved)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, flags)
}
