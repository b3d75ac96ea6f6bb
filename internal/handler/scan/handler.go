package scan

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medtrack/flagging-engine/internal/service/scanner"
	"github.com/medtrack/flagging-engine/pkg/httputil"
)

type Handler struct {
	service *scanner.Service
}

func NewHandler(service *scanner.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/scans", h.RunScan)
}

// RunScan triggers a flagging pass synchronously and returns its result.
// Individual appointment failures are reported in the result, not as an
// HTTP error; only a failure to list candidates aborts the pass.
func (h *Handler) RunScan(c *gin.Context) {
	result, err := h.service.RunFlaggingPass(c.Request.Context(), time.Now().UTC())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, result)
}
