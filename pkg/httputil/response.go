package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medtrack/flagging-engine/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, code int, data interface{}) {
	c.JSON(code, Response{Status: "success", Data: data})
}

// RespondWithError sends an error response, mapping AppError codes to HTTP
// statuses. Unknown errors surface as 500 without leaking internals.
func RespondWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch errors.CodeOf(err) {
	case errors.ErrValidation:
		status = http.StatusBadRequest
		message = err.Error()
	case errors.ErrNotFound:
		status = http.StatusNotFound
		message = err.Error()
	case errors.ErrAlreadyResolved, errors.ErrConcurrencyConflict:
		status = http.StatusConflict
		message = err.Error()
	case errors.ErrGDPRCompliance:
		status = http.StatusUnprocessableEntity
		message = err.Error()
	case errors.ErrStoreUnavailable:
		status = http.StatusServiceUnavailable
		message = "store unavailable"
	}

	c.JSON(status, Response{Status: "error", Message: message})
}
