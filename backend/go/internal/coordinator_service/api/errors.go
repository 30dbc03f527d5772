package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
)

// statusFor maps the coordinator's sentinel errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrUnknownAgent),
		errors.Is(err, models.ErrUnknownTask),
		errors.Is(err, models.ErrUnknownIntervention):
		return http.StatusNotFound
	case errors.Is(err, models.ErrDuplicateAgent),
		errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidArgument),
		errors.Is(err, models.ErrInvalidStatus),
		errors.Is(err, models.ErrNotRegistered):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotAssignee):
		return http.StatusForbidden
	case errors.Is(err, models.ErrStoreUnavailable),
		errors.Is(err, models.ErrAssessmentCycle),
		errors.Is(err, models.ErrDeliveryFailure),
		errors.Is(err, models.ErrNotificationChannel):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorType names the error class in logs and responses.
func errorType(err error) string {
	switch {
	case errors.Is(err, models.ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, models.ErrAssessmentCycle):
		return "assessment_cycle"
	case errors.Is(err, models.ErrDeliveryFailure):
		return "delivery_failure"
	case errors.Is(err, models.ErrNotificationChannel):
		return "notification_channel"
	}
	return ""
}

// apiError writes err as a JSON error response. Server-side failures are logged;
// client mistakes are not.
func (a *API) apiError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.WithError(models.ErrorInfo{
			Message:    err.Error(),
			Type:       errorType(err),
			StatusCode: status,
		}).WithRequest(requestInfo(c)).Error("Request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
