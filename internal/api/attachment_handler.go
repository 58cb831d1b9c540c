package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/advisync/advisync/internal/middleware"
	"github.com/advisync/advisync/internal/repository"
	"github.com/advisync/advisync/internal/storage"
)

// handleDownloadPDF streams the stored PDF for an invoice. Invoices may
// legitimately have no PDF (storage was unavailable during ingestion);
// that surfaces as 404, same as a descriptor whose file has gone missing.
func (r *Router) handleDownloadPDF(c *gin.Context) {
	orgID := middleware.OrgID(c)

	inv, err := r.invoices.GetByID(c.Request.Context(), orgID, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "invoice not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to get invoice"})
		return
	}
	if inv.PDFPath == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "no pdf stored for this invoice"})
		return
	}

	data, err := r.files.Open(c.Request.Context(), *inv.PDFPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "pdf not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to read pdf"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+inv.ID+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", data)
}
