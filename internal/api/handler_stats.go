package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"downtime-tracker-backend/internal/calendar"
	"downtime-tracker-backend/internal/store"
)

// GetStats handles GET /api/stats: the aggregate contract for dashboard
// consumption. Accepts the same filter parameters as the record list plus
// a group_by CSV over site, service, client, week and month. Sums are
// taken over the stored impact values; nothing is recomputed here.
func (h *Handler) GetStats(c *gin.Context) {
	var f store.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// A week filter without explicit dates expands to the week's range,
	// so ISO weeks spanning a month boundary are covered.
	if f.Week != "" && f.DateFrom == "" && f.DateTo == "" {
		monday, sunday, err := calendar.WeekBounds(f.Week)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		f.Week = ""
		f.DateFrom = monday.Format(calendar.DateLayout)
		f.DateTo = sunday.Format(calendar.DateLayout)
	}

	var groupBy []string
	if raw := c.Query("group_by"); raw != "" {
		groupBy = strings.Split(raw, ",")
	}

	rows, err := h.store.Aggregate(c.Request.Context(), f, groupBy)
	if err != nil {
		if errors.Is(err, store.ErrUnknownDimension) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"groups": rows})
}
