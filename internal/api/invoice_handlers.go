package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/advisync/advisync/internal/middleware"
	"github.com/advisync/advisync/internal/models"
	"github.com/advisync/advisync/internal/repository"
)

// handleListInvoices handles GET /api/v1/invoices with optional filters:
// status, location, month (YYYY-MM), page, limit.
func (r *Router) handleListInvoices(c *gin.Context) {
	orgID := middleware.OrgID(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}

	filter := repository.ListFilter{
		Status:   c.Query("status"),
		Location: c.Query("location"),
		Month:    c.Query("month"),
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}

	invoices, err := r.invoices.List(c.Request.Context(), orgID, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to list invoices"})
		return
	}
	if invoices == nil {
		invoices = []models.Invoice{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": invoices, "page": page, "limit": limit})
}

func (r *Router) handleGetInvoice(c *gin.Context) {
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
	c.JSON(http.StatusOK, gin.H{"success": true, "data": inv})
}

type statusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
}

// handleUpdateInvoiceStatus transitions an invoice between lifecycle
// states, typically Processed -> Paid.
func (r *Router) handleUpdateInvoiceStatus(c *gin.Context) {
	orgID := middleware.OrgID(c)

	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	switch req.Status {
	case models.StatusPending, models.StatusProcessed, models.StatusPaid:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unknown status"})
		return
	}

	err := r.invoices.UpdateStatus(c.Request.Context(), orgID, c.Param("id"), req.Status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "invoice not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to update status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleInvoiceStats feeds the dashboard charts: totals per location and
// per month.
func (r *Router) handleInvoiceStats(c *gin.Context) {
	orgID := middleware.OrgID(c)
	ctx := c.Request.Context()

	byLocation, err := r.invoices.StatsByLocation(ctx, orgID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to aggregate invoices"})
		return
	}
	byMonth, err := r.invoices.StatsByMonth(ctx, orgID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to aggregate invoices"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"by_location": byLocation,
			"by_month":    byMonth,
		},
	})
}
