package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"downtime-tracker-backend/internal/calendar"
	"downtime-tracker-backend/internal/impact"
	"downtime-tracker-backend/internal/notification"
	"downtime-tracker-backend/internal/store"
	"downtime-tracker-backend/internal/validate"
)

// Notifier dispatches record lifecycle events to the push worker pool.
type Notifier interface {
	Dispatch(evt notification.Event)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store          store.Store
	notifier       Notifier // nil when push is not configured
	vapidPublicKey string
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, notifier Notifier, vapidPublicKey string) *Handler {
	return &Handler{
		store:          s,
		notifier:       notifier,
		vapidPublicKey: vapidPublicKey,
	}
}

// writeEngineError maps the engine's recoverable error taxonomy onto HTTP
// statuses. Anything unrecognized is a store failure and surfaces as 500.
func writeEngineError(c *gin.Context, err error) {
	var verrs validate.Errors
	switch {
	case errors.As(err, &verrs):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"errors": verrs})
	case errors.Is(err, calendar.ErrInvalidInterval):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"errors": []validate.FieldError{{Field: "end_time", Reason: err.Error()}},
		})
	case errors.Is(err, impact.ErrMissingFactor):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"errors": []validate.FieldError{{Field: "impact", Reason: err.Error()}},
		})
	case errors.Is(err, store.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrReferentialViolation):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
