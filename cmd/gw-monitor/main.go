package main

import (
	"context"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/karthiivan/sih/internal/alerts"
	httpapi "github.com/karthiivan/sih/internal/api/http"
	"github.com/karthiivan/sih/internal/broadcast"
	"github.com/karthiivan/sih/internal/config"
	"github.com/karthiivan/sih/internal/external"
	"github.com/karthiivan/sih/internal/logger"
	"github.com/karthiivan/sih/internal/notes"
	"github.com/karthiivan/sih/internal/observability"
	"github.com/karthiivan/sih/internal/scheduler"
	"github.com/karthiivan/sih/internal/sim"
	"github.com/karthiivan/sih/internal/store"
	"github.com/karthiivan/sih/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("info")
		logger.Logger.Fatal().Err(err).Msg("failed to load config")
	}

	logger.Init(cfg.LogLevel)
	log := logger.WithComponent("main")

	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	// Shared HTTP client for outbound upstream calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	// Series store seeded with synthetic history per region.
	seriesStore := store.NewSeriesStore(cfg.MaxHistory)
	now := time.Now().UTC()
	for i, region := range cfg.Regions {
		seriesStore.Initialize(region.ID, telemetry.GenerateSeed(now, cfg.SeedDays, i))
	}

	broadcaster := broadcast.New(seriesStore, cfg.Regions[0].ID, logger.WithComponent("broadcast"), metrics)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	driver, err := sim.New(seriesStore, broadcaster, cfg.Regions, rng, clock,
		logger.WithComponent("sim"), metrics)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize simulation driver")
	}

	// Notification channels. Missing credentials degrade to simulated sends.
	emailNotifier := alerts.NewEmailNotifier(cfg.SMTP)

	var smsSender alerts.SMSSender
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" && cfg.TwilioFrom != "" {
		smsSender = external.NewTwilioClient(httpClient, cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFrom)
	}
	smsNotifier := alerts.NewSMSNotifier(smsSender)

	monitor := alerts.NewMonitor(seriesStore, emailNotifier, alerts.NewFileStore(cfg.ThresholdsFile),
		cfg.Cooldown, cfg.AlertsDryRun, clock, logger.WithComponent("alerts"), metrics)

	notesStore := notes.NewStore(cfg.NotesFile, clock, logger.WithComponent("notes"))

	// Background loops: simulation feed and threshold evaluation.
	sched := scheduler.New(logger.WithComponent("scheduler"))
	if err := sched.AddJob("simulation", cfg.SimInterval, driver.Tick); err != nil {
		log.Fatal().Err(err).Msg("failed to schedule simulation driver")
	}
	if err := sched.AddJob("thresholds", cfg.MonitorInterval, monitor.Tick); err != nil {
		log.Fatal().Err(err).Msg("failed to schedule threshold monitor")
	}
	sched.Start()
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "gw-monitor",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "gw-monitor",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	httpapi.RegisterRoutes(app, &httpapi.Handlers{
		Store:        seriesStore,
		Regions:      cfg.Regions,
		Monitor:      monitor,
		Notes:        notesStore,
		Broadcaster:  broadcaster,
		Email:        emailNotifier,
		SMS:          smsNotifier,
		Nominatim:    external.NewNominatimClient(httpClient),
		OpenMeteo:    external.NewOpenMeteoClient(httpClient),
		Elevation:    external.NewOpenElevationClient(httpClient),
		AlertsDryRun: cfg.AlertsDryRun,
		Log:          logger.WithComponent("http"),
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("fiber server stopped")
		}
	}()
	log.Info().Str("port", cfg.Port).Int("regions", len(cfg.Regions)).Msg("gw-monitor started")

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
}
