package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/i474232898/irrigation-advisor/internal/advisor"
	httpapi "github.com/i474232898/irrigation-advisor/internal/api/http"
	"github.com/i474232898/irrigation-advisor/internal/config"
	"github.com/i474232898/irrigation-advisor/internal/dedup"
	"github.com/i474232898/irrigation-advisor/internal/irrigation"
	"github.com/i474232898/irrigation-advisor/internal/logging"
	"github.com/i474232898/irrigation-advisor/internal/metrics"
	"github.com/i474232898/irrigation-advisor/internal/predictor"
	"github.com/i474232898/irrigation-advisor/internal/scheduler"
	"github.com/i474232898/irrigation-advisor/internal/store"
	"github.com/i474232898/irrigation-advisor/internal/telemetry"
	"github.com/i474232898/irrigation-advisor/internal/weather"
	"github.com/i474232898/irrigation-advisor/internal/weather/providers"
)

const appName = "irrigation-advisor"

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logging.New(os.Stdout, cfg.AppEnv, cfg.LogLevel, appName)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("irrigation advisor stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Shared HTTP client for outbound provider and predictor calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Weather snapshots always live in memory; the recommendation log and
	// sensor readings follow STORE_DRIVER.
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)
	var (
		records  store.RecordStore  = memStore
		readings store.ReadingStore = memStore
	)
	if cfg.StoreDriver == config.DriverSQLite {
		db, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer db.Close()
		records, readings = db, db
		log.Info("using sqlite store", "path", cfg.SQLitePath)
	}

	var exporters []store.Appender
	if cfg.InfluxEnabled() {
		exp, err := store.NewInfluxExporter(store.InfluxConfig{
			URL:    cfg.InfluxURL,
			Token:  cfg.InfluxToken,
			Org:    cfg.InfluxOrg,
			Bucket: cfg.InfluxBucket,
		})
		if err != nil {
			return err
		}
		defer exp.Close()
		exporters = append(exporters, exp)
		log.Info("exporting recommendations to influxdb", "url", cfg.InfluxURL, "bucket", cfg.InfluxBucket)
	}
	recordLog := store.NewFanout(records, log, exporters...)

	engine, err := newEngine(cfg, httpClient, log)
	if err != nil {
		return err
	}

	// Providers with resilience (backoff + circuit breaker).
	loc := cfg.Location()
	var provs []weather.Provider
	if cfg.OpenWeatherAPIKey != "" {
		provs = append(provs, providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey))
	}
	if cfg.WeatherAPIKey != "" {
		provs = append(provs, providers.NewWeatherAPIProvider(httpClient, cfg.WeatherAPIKey))
	}
	if loc.HasCoordinates() {
		provs = append(provs, providers.NewOpenMeteoProvider(httpClient))
	}
	if len(provs) == 0 {
		log.Warn("no weather providers configured; recommendations use default conditions")
	}

	weatherSvc := weather.NewService(memStore, provs, loc,
		weather.WithLogger(log),
		weather.WithMaxAge(cfg.WeatherMaxAge),
		weather.WithFailureHook(m.WeatherFailure),
	)

	advOpts := []advisor.Option{
		advisor.WithReadings(readings, cfg.SensorMaxAge),
		advisor.WithMetrics(m),
		advisor.WithLogger(log),
		advisor.WithTimezone(cfg.TimeZone()),
	}

	if cfg.MQTTEnabled() {
		client := telemetry.NewClient(telemetry.Config{
			Broker:   cfg.MQTTBroker,
			Port:     cfg.MQTTPort,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUser,
			Password: cfg.MQTTPassword,
		}, log)

		ingest := telemetry.NewSensorIngest(readings, dedup.New(2*time.Minute, 10000), m, log)
		if err := client.Subscribe(cfg.MQTTSensorTopic, 1, ingest.Handle); err != nil {
			return err
		}

		ctrl, err := telemetry.NewController(client, cfg.MQTTControlTopic, cfg.FieldAreaM2, cfg.PumpFlowLPM, m, log)
		if err != nil {
			return err
		}
		advOpts = append(advOpts, advisor.WithDispatcher(ctrl))

		go func() {
			if err := client.Connect(ctx); err != nil {
				log.Error("mqtt unavailable", "broker", cfg.MQTTBroker, "error", err)
			}
		}()
		defer client.Disconnect()
	}

	adv := advisor.New(engine, weatherSvc, recordLog, advOpts...)

	// Scheduler: weather refresh and optional unattended evaluation.
	sched := scheduler.New(log)
	if len(provs) > 0 {
		sched.Add("weather-refresh", cfg.FetchInterval, func(ctx context.Context) error {
			_, err := weatherSvc.Refresh(ctx)
			return err
		})
	}
	sched.Add("auto-evaluate", cfg.AutoEvaluateInterval, func(ctx context.Context) error {
		_, err := adv.Evaluate(ctx, advisor.Request{}, store.TriggerScheduler)
		return err
	})
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": appName,
		})
	})

	httpapi.RegisterRoutes(app, adv, weatherSvc, m)

	go func() {
		log.Info("http server listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
			stop()
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
	return nil
}

// newEngine prefers a remote model server and falls back to the bundled model file.
func newEngine(cfg *config.AppConfig, httpClient *http.Client, log *slog.Logger) (*irrigation.Engine, error) {
	if cfg.PredictorURL != "" {
		log.Info("using remote predictor", "url", cfg.PredictorURL)
		remote := predictor.NewRemote(httpClient, cfg.PredictorURL)
		return irrigation.NewEngine(remote, remote), nil
	}

	model, err := predictor.LoadLinearModel(cfg.ModelPath)
	if err != nil {
		return nil, err
	}
	log.Info("loaded model file", "path", cfg.ModelPath)
	return irrigation.NewEngine(model, model), nil
}
