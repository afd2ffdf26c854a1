package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace/internal/domain"
)

const authRealm = `Basic realm="marketplace"`

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError aborts the request with the status matching err's kind.
// Storage and unexpected failures are logged and answered generically.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", authRealm)
	}
	if status == http.StatusInternalServerError {
		h.log.WithError(err).WithFields(requestFields(c)).Error("request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": domain.Message(err)})
}
