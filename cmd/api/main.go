package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/osswatch/maintainer-dashboard/internal/api"
	"github.com/osswatch/maintainer-dashboard/internal/collector"
	"github.com/osswatch/maintainer-dashboard/internal/config"
	"github.com/osswatch/maintainer-dashboard/internal/logger"
	"github.com/osswatch/maintainer-dashboard/internal/report"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := logger.Initialize(cfg.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize the GitHub data source
	source := collector.NewGitHubSource(cfg.GitHubToken)

	var roster collector.RosterSource
	if cfg.TeamOrg != "" {
		roster = collector.NewGitHubRosterSource(context.Background(), cfg.GitHubToken)
	}

	// Initialize handler
	handler := api.NewHandler(source, roster, report.NewAssembler(), cfg)

	// Setup routes
	router := api.SetupRoutes(handler)

	// Start server
	addr := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	zap.L().Info("starting API server",
		zap.String("addr", addr),
		zap.String("default_repository", cfg.DefaultOwner+"/"+cfg.DefaultRepo))

	if err := router.Run(addr); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
		os.Exit(1)
	}
}
