package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"downtime-tracker-backend/internal/store"
)

// GetCatalogs handles GET /api/catalogs: read access to the current
// reference data (sites with buildings, clients, services, matrix).
func (h *Handler) GetCatalogs(c *gin.Context) {
	view, err := h.store.Catalogs(c.Request.Context())
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ReplaceCatalog handles PUT /api/catalogs/:kind: bulk replace of one
// reference set. A replace that would orphan existing records is refused
// with 409.
func (h *Handler) ReplaceCatalog(c *gin.Context) {
	kind := store.CatalogKind(c.Param("kind"))

	var update store.CatalogUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch kind {
	case store.CatalogSites, store.CatalogClients, store.CatalogServices, store.CatalogMatrix:
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown catalog kind"})
		return
	}

	if err := h.store.ReplaceCatalog(c.Request.Context(), kind, update); err != nil {
		writeEngineError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
