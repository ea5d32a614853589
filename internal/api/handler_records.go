package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"downtime-tracker-backend/internal/model"
	"downtime-tracker-backend/internal/notification"
	"downtime-tracker-backend/internal/store"
	"downtime-tracker-backend/internal/validate"
)

const maxPageSize = 200

// CreateRecord handles POST /api/records: runs the computation pipeline
// and returns the finalized record.
func (h *Handler) CreateRecord(c *gin.Context) {
	var in validate.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.store.Create(c.Request.Context(), in)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	h.notify(rec)
	c.JSON(http.StatusCreated, rec)
}

// ListRecords handles GET /api/records with the filter contract.
func (h *Handler) ListRecords(c *gin.Context) {
	var f store.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if f.Limit <= 0 || f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}

	total, err := h.store.Count(c.Request.Context(), f)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	records, err := h.store.Query(c.Request.Context(), f)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total": total,
		"items": records,
	})
}

// GetRecord handles GET /api/records/:id.
func (h *Handler) GetRecord(c *gin.Context) {
	id, ok := recordID(c)
	if !ok {
		return
	}

	rec, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// UpdateRecord handles PATCH /api/records/:id: the patch is merged over
// the stored record and the whole pipeline reruns.
func (h *Handler) UpdateRecord(c *gin.Context) {
	id, ok := recordID(c)
	if !ok {
		return
	}

	var patch validate.Input
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.store.Update(c.Request.Context(), id, patch)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	if rec.Status == model.StatusResolved {
		h.notify(rec)
	}
	c.JSON(http.StatusOK, rec)
}

// DeleteRecord handles DELETE /api/records/:id.
func (h *Handler) DeleteRecord(c *gin.Context) {
	id, ok := recordID(c)
	if !ok {
		return
	}

	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		writeEngineError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) notify(rec model.DowntimeRecord) {
	if h.notifier == nil {
		return
	}
	h.notifier.Dispatch(notification.Event{
		RecordID:    rec.ID,
		Site:        rec.Site,
		Status:      rec.Status,
		Description: rec.Description,
	})
}

func recordID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid record ID"})
		return 0, false
	}
	return id, true
}
