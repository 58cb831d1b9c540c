// Package app wires the application graph shared by the server and the
// CLI: database, storage backends, mailbox dialer, sync service, router.
package app

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/advisync/advisync/internal/api"
	"github.com/advisync/advisync/internal/config"
	"github.com/advisync/advisync/internal/database"
	"github.com/advisync/advisync/internal/mailbox"
	"github.com/advisync/advisync/internal/repository"
	"github.com/advisync/advisync/internal/storage"
	"github.com/advisync/advisync/internal/sync"
)

// App holds the assembled application graph.
type App struct {
	Cfg      *config.Config
	DB       *sql.DB
	Invoices *repository.InvoiceRepository
	Settings *repository.SettingsRepository
	Store    *storage.FallbackStore
	Sync     *sync.Service
	Router   *api.Router
}

// Build assembles the application from loaded configuration.
func Build(cfg *config.Config) (*App, error) {
	db, err := database.Connect(&cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.EnsureSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	invoices := repository.NewInvoiceRepository(db)
	settings := repository.NewSettingsRepository(db)

	r2, err := storage.NewR2Backend(storage.R2Config{
		Endpoint:  cfg.Storage.R2.Endpoint,
		Bucket:    cfg.Storage.R2.Bucket,
		AccessKey: cfg.Storage.R2.AccessKey,
		SecretKey: cfg.Storage.R2.SecretKey,
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	store := storage.NewFallbackStore(
		log.New(os.Stdout, "", log.LstdFlags),
		r2,
		storage.NewFilesystemBackend(cfg.Storage.Documents.Path),
	)

	dialer := mailbox.NewIMAPDialer()
	syncService := sync.NewService(invoices, settings, dialer, store, cfg.Email, cfg.Sync)

	jwtSecret := cfg.Auth.JWT.Secret
	if jwtSecret == "" {
		jwtSecret = os.Getenv("JWT_SECRET")
	}
	if jwtSecret == "" {
		db.Close()
		return nil, fmt.Errorf("auth.jwt.secret is not configured")
	}

	router := api.NewRouter(syncService, invoices, settings, store, jwtSecret)
	router.SetupRoutes()

	return &App{
		Cfg:      cfg,
		DB:       db,
		Invoices: invoices,
		Settings: settings,
		Store:    store,
		Sync:     syncService,
		Router:   router,
	}, nil
}

// Close releases application resources.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}
