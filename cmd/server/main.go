package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fin-processor/backend/internal/api"
	"github.com/fin-processor/backend/internal/catalog"
	"github.com/fin-processor/backend/internal/config"
	"github.com/fin-processor/backend/internal/logging"
	"github.com/fin-processor/backend/internal/parser"
	"github.com/fin-processor/backend/internal/storage"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configFlag := flag.String("config", "", "path to the XML configuration file")
	flag.Parse()

	if err := config.LoadEnvFiles(); err != nil {
		fmt.Printf("Failed to load .env: %v\n", err)
		os.Exit(1)
	}

	configPath := *configFlag
	if configPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			fmt.Printf("%v\n", err)
			os.Exit(1)
		}
		configPath = p
	}

	// Load XML configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Advanced.LogLevel, cfg.Advanced.LogFormat)
	log := logging.NewLogger("server")

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		log.WithError(err).Fatal("failed to create directories")
	}

	// Initialize storage
	fileStore, err := storage.NewLocalStore(cfg.GetUploadDir())
	if err != nil {
		log.WithError(err).Fatal("failed to initialize storage")
	}

	// Workbooks are deleted after processing; this catches leftovers from crashes.
	if n, err := fileStore.PurgeOlderThan(cfg.PurgeAfter()); err != nil {
		log.WithError(err).Warn("failed to purge stored uploads")
	} else if n > 0 {
		log.WithField("count", n).Info("purged stale uploads")
	}

	cat := catalog.Default()
	opts := parser.OptionsFromCatalog(cat)
	opts.HeaderRow = cfg.Processing.HeaderRow
	opts.IndexLabel = cfg.Processing.IndexLabel

	e := echo.New()
	e.HideBanner = true

	api.SetupMiddleware(e, api.MiddlewareConfig{
		BodyLimit:      cfg.Server.BodyLimit,
		EnableCORS:     cfg.Server.EnableCORS,
		AllowOrigins:   cfg.AllowOriginList(),
		RequestLogging: cfg.Advanced.EnableRequestLogging,
		ShowDetails:    Version == "dev",
		Log:            log,
	})

	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Store:             fileStore,
		Registry:          parser.GetGlobalRegistry(),
		Catalog:           cat,
		Options:           opts,
		AllowedExtensions: cfg.AllowedExtensionList(),
		Version:           Version,
	}))

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Financial Statement Processing Service          ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Health:    http://%-38s║\n", cfg.GetServerAddr()+"/api/health")
	fmt.Printf("║  Upload:    http://%-38s║\n", cfg.GetServerAddr()+"/api/upload")
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown failed")
	}
}
