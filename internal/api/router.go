package api

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/advisync/advisync/internal/middleware"
	"github.com/advisync/advisync/internal/models"
	"github.com/advisync/advisync/internal/repository"
	"github.com/advisync/advisync/internal/sync"
)

type syncTrigger interface {
	PerformSync(ctx context.Context, orgID string, opts sync.Options) (*models.SyncResult, error)
}

type invoiceStore interface {
	List(ctx context.Context, orgID string, filter repository.ListFilter) ([]models.Invoice, error)
	GetByID(ctx context.Context, orgID, id string) (*models.Invoice, error)
	UpdateStatus(ctx context.Context, orgID, id, status string) error
	StatsByLocation(ctx context.Context, orgID string) ([]repository.StatsRow, error)
	StatsByMonth(ctx context.Context, orgID string) ([]repository.StatsRow, error)
}

type settingsStore interface {
	GetByOrg(ctx context.Context, orgID string) (*models.OrgSettings, error)
	Upsert(ctx context.Context, s *models.OrgSettings) error
}

type fileOpener interface {
	Open(ctx context.Context, descriptor string) ([]byte, error)
}

// Router wires the HTTP surface over the application services.
type Router struct {
	engine    *gin.Engine
	sync      syncTrigger
	invoices  invoiceStore
	settings  settingsStore
	files     fileOpener
	jwtSecret string
}

// NewRouter creates the API router.
func NewRouter(syncService syncTrigger, invoices invoiceStore, settings settingsStore, files fileOpener, jwtSecret string) *Router {
	return &Router{
		engine:    gin.Default(),
		sync:      syncService,
		invoices:  invoices,
		settings:  settings,
		files:     files,
		jwtSecret: jwtSecret,
	}
}

// SetupRoutes registers all endpoints.
func (r *Router) SetupRoutes() {
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.engine.Group("/api/v1")
	v1.Use(middleware.AuthRequired(r.jwtSecret))
	{
		v1.POST("/sync", r.handleTriggerSync)
		v1.GET("/invoices", r.handleListInvoices)
		v1.GET("/invoices/stats", r.handleInvoiceStats)
		v1.GET("/invoices/:id", r.handleGetInvoice)
		v1.PATCH("/invoices/:id/status", r.handleUpdateInvoiceStatus)
		v1.GET("/invoices/:id/pdf", r.handleDownloadPDF)
		v1.GET("/settings", r.handleGetSettings)
		v1.PUT("/settings", r.handleUpdateSettings)
	}
}

// Engine exposes the underlying gin engine for serving.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
