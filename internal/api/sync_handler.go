package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/advisync/advisync/internal/middleware"
	"github.com/advisync/advisync/internal/sync"
)

// handleTriggerSync runs one ingestion pass for the caller's organization.
// POST /api/v1/sync?full=true forces a full-history scan. The request
// context is passed through, so a client disconnect cancels the run at the
// next stage boundary and the partial result is simply discarded with the
// connection.
func (r *Router) handleTriggerSync(c *gin.Context) {
	orgID := middleware.OrgID(c)
	opts := sync.Options{FullSync: c.Query("full") == "true"}

	result, err := r.sync.PerformSync(c.Request.Context(), orgID, opts)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, sync.ErrNoCredentials) {
			status = http.StatusPreconditionFailed
		}
		c.JSON(status, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
