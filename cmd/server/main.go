package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/advisync/advisync/internal/app"
	"github.com/advisync/advisync/internal/config"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "."
	}
	if err := config.Load(configPath); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := config.Get()

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	application, err := app.Build(cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer application.Close()

	addr := cfg.Server.GetServerAddr()
	log.Printf("Starting advisync server on %s", addr)
	log.Fatal(application.Router.Engine().Run(addr))
}
