package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/advisync/advisync/internal/app"
	"github.com/advisync/advisync/internal/config"
	"github.com/advisync/advisync/internal/runner"
	"github.com/advisync/advisync/internal/runner/tasks"
	"github.com/advisync/advisync/internal/sync"
)

var (
	version = "dev"
	commit  = "none"
)

var rootCmd = &cobra.Command{
	Use:     "advisync",
	Short:   "advisync - payment advice ingestion and dashboard backend",
	Long:    `advisync ingests payment-advice PDF invoices from a mailbox, extracts structured fields, and serves them to the dashboard.`,
	Version: fmt.Sprintf("%s (commit: %s)", version, commit),
}

var configPathFlag string

func loadApp() (*app.App, error) {
	if err := config.Load(configPathFlag); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	cfg := config.Get()
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return app.Build(cfg)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := loadApp()
		if err != nil {
			return err
		}
		defer application.Close()
		return application.Router.Engine().Run(application.Cfg.Server.GetServerAddr())
	},
}

var (
	syncOrgFlag  string
	syncFullFlag bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one ingestion pass for an organization",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := loadApp()
		if err != nil {
			return err
		}
		defer application.Close()

		result, err := application.Sync.PerformSync(cmd.Context(), syncOrgFlag, sync.Options{FullSync: syncFullFlag})
		if err != nil {
			return err
		}
		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))
		return nil
	},
}

var runnerCmd = &cobra.Command{
	Use:   "runner",
	Short: "Start the scheduled sync runner",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := loadApp()
		if err != nil {
			return err
		}
		defer application.Close()

		task := tasks.NewInvoiceSyncTask(application.Settings, application.Sync, application.Cfg.Sync.Schedule)
		return runner.New(task).Start(context.Background())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPathFlag, "config", ".", "Directory containing config.yaml")
	syncCmd.Flags().StringVar(&syncOrgFlag, "org", "", "Organization id to sync (required)")
	syncCmd.Flags().BoolVar(&syncFullFlag, "full", false, "Search the full mailbox history instead of the lookback window")
	syncCmd.MarkFlagRequired("org")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(runnerCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
