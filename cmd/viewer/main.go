package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/fin-processor/backend/internal/catalog"
	"github.com/fin-processor/backend/internal/config"
	"github.com/fin-processor/backend/internal/events"
	"github.com/fin-processor/backend/internal/health"
	"github.com/fin-processor/backend/internal/httperr"
	"github.com/fin-processor/backend/internal/logging"
	"github.com/fin-processor/backend/internal/processor"
	"github.com/fin-processor/backend/internal/render"
	"github.com/fin-processor/backend/internal/session"
	"github.com/fin-processor/backend/internal/upload"
	"github.com/fin-processor/backend/internal/web"
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

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Advanced.LogLevel, cfg.Advanced.LogFormat)
	log := logging.NewLogger("viewer")

	format, err := processor.ParseFormat(cfg.Viewer.ResponseFormat)
	if err != nil {
		log.WithError(err).Warn("falling back to json responses")
		format = processor.FormatJSON
	}

	client := processor.NewClient(cfg.Viewer.ServiceURL,
		processor.WithTimeout(cfg.UploadTimeout()),
		processor.WithFormat(format),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := events.NewHub()

	monitor := health.NewMonitor(client,
		health.WithInterval(cfg.HealthInterval()),
		health.WithProbeTimeout(cfg.ProbeTimeout()),
	)
	go web.ForwardHealth(ctx, monitor, hub)
	monitor.Start(ctx)
	defer monitor.Stop()

	allowed := cfg.AllowedExtensionList()
	sessions := session.NewManager(func(id string) *upload.Session {
		return upload.NewSession(id, client,
			upload.WithNotifier(hub),
			upload.WithAllowedExtensions(allowed),
		)
	}, cfg.Viewer.MaxSessions)
	go sessions.RunCleanup(ctx, cfg.CleanupInterval(), cfg.SessionTimeout())

	renderer := render.NewRenderer(
		render.WithLocale(render.ParseLocale(cfg.Viewer.Locale)),
		render.WithMaxRows(cfg.Viewer.MaxRows),
	)

	maxUpload, err := cfg.MaxUploadBytes()
	if err != nil {
		log.WithError(err).Warn("invalid MaxUploadSize, using default")
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httperr.NewErrorHandler(log, Version == "dev")

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return path == "/healthz" ||
				path == "/api/status" ||
				path == "/ws" ||
				strings.HasPrefix(path, "/static/")
		},
	}))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	srv := web.NewServer(ctx, web.Config{
		Sessions:       sessions,
		Monitor:        monitor,
		Hub:            hub,
		Renderer:       renderer,
		Catalog:        catalog.Default(),
		ServiceURL:     client.BaseURL(),
		UploadTimeout:  cfg.UploadTimeout(),
		MaxUploadBytes: maxUpload,
		Log:            logging.NewLogger("web"),
	})
	if err := srv.Register(e); err != nil {
		log.WithError(err).Fatal("failed to register routes")
	}

	s := &http.Server{
		Addr:        cfg.GetViewerAddr(),
		ReadTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		IdleTimeout: time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Financial Statement Viewer                      ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetViewerAddr())
	fmt.Printf("║  Service:   %-46s║\n", client.BaseURL())
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("viewer stopped")
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
