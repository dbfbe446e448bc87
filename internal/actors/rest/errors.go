package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rbroggi/cookbook/internal/core/model"
	log "github.com/sirupsen/logrus"
)

type messageResponse struct {
	Message string `json:"message"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, model.ErrInfrastructure):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError translates err into its status code. Server-side failures do not leak their cause.
func writeError(c *gin.Context, operation string, err error) {
	status := statusFor(err)
	logger := log.WithError(err).WithField("operation", operation)
	message := err.Error()
	switch status {
	case http.StatusServiceUnavailable:
		logger.Error("dependency unavailable")
		message = "service unavailable"
	case http.StatusInternalServerError:
		logger.Error("error invoking usecase")
		message = "internal error"
	default:
		logger.Debug("request rejected")
	}
	c.AbortWithStatusJSON(status, messageResponse{Message: message})
}
