package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/advisync/advisync/internal/middleware"
	"github.com/advisync/advisync/internal/models"
	"github.com/advisync/advisync/internal/repository"
)

func (r *Router) handleGetSettings(c *gin.Context) {
	orgID := middleware.OrgID(c)

	settings, err := r.settings.GetByOrg(c.Request.Context(), orgID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"success": true, "data": models.OrgSettings{OrgID: orgID}})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load settings"})
		return
	}
	// The password never leaves the server; the json tag on the model
	// already hides it, has_password tells the UI whether one is stored.
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"data":         settings,
		"has_password": settings.EmailPassword != "",
	})
}

type settingsUpdateRequest struct {
	EmailSearchTerm  string `json:"email_search_term"`
	SyncLookbackDays int    `json:"sync_lookback_days"`
	EmailUser        string `json:"email_user"`
	EmailPassword    string `json:"email_password"`
}

func (r *Router) handleUpdateSettings(c *gin.Context) {
	orgID := middleware.OrgID(c)

	var req settingsUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if req.SyncLookbackDays < 0 || req.SyncLookbackDays > 365 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "sync_lookback_days out of range"})
		return
	}

	settings := &models.OrgSettings{
		OrgID:            orgID,
		EmailSearchTerm:  req.EmailSearchTerm,
		SyncLookbackDays: req.SyncLookbackDays,
		EmailUser:        req.EmailUser,
		EmailPassword:    req.EmailPassword,
	}
	if err := r.settings.Upsert(c.Request.Context(), settings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to save settings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
