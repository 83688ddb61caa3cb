package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"docgate/docs"
	"docgate/internal/config"
	handlers "docgate/internal/http/handler"
	"docgate/internal/http/middleware"
	"docgate/internal/logging"
	tracing "docgate/internal/otel"
	"docgate/internal/service"
	"docgate/internal/storage"
	"docgate/internal/transform"
	"docgate/internal/worker"
)

// @title Document Conversion Gateway
// @version 1.0
// @description Stateless PDF and DOCX transformations over HTTP.
// @BasePath /
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		logrus.WithError(err).Fatal("docgate stopped")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "docgate",
		Usage: "document conversion gateway",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "YAML configuration file", EnvVars: []string{"CONFIG_FILE"}},
			&cli.StringFlag{Name: "host", Usage: "listen host (overrides APP_HOST)"},
			&cli.StringFlag{Name: "port", Usage: "listen port (overrides PORT)"},
			&cli.StringFlag{Name: "scratch-dir", Usage: "scratch root directory (overrides SCRATCH_DIR)"},
			&cli.StringFlag{Name: "log-level", Usage: "log level (overrides LOG_LEVEL)"},
		},
		Action: run,
	}
}

// loadConfig reads the file and environment, then applies flags on top.
func loadConfig(c *cli.Context) (*config.AppConfig, error) {
	cfg, err := config.LoadFile(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("host") {
		cfg.Server.Host = c.String("host")
	}
	if c.IsSet("port") {
		cfg.Server.Port = c.String("port")
	}
	if c.IsSet("scratch-dir") {
		cfg.Scratch.Dir = c.String("scratch-dir")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	return cfg, nil
}

func run(c *cli.Context) error {
	ctx := c.Context

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	log, err := logging.New(os.Stdout, cfg.LogLevel, cfg.Location())
	if err != nil {
		return err
	}

	shutdownTracing, err := tracing.Init(ctx, cfg.ServiceName, log)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.WithError(err).Warn("tracing shutdown failed")
		}
	}()

	// Per-request scratch workspaces under a single locked root
	store, err := storage.NewLocal(cfg.Scratch, log)
	if err != nil {
		return err
	}
	defer store.Close()

	sweeperCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go worker.NewScratchSweeper(store, cfg.Scratch.SweepInterval, cfg.Scratch.TTL, log).Start(sweeperCtx)

	app := fiber.New(fiber.Config{
		AppName:               "docgate",
		ErrorHandler:          handlers.ErrorHandler(),
		BodyLimit:             cfg.BodyLimit(),
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(otelfiber.Middleware())

	var (
		svcOpts   []service.Option
		routeOpts handlers.RouteOptions
	)
	if cfg.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		prom, err := middleware.NewPrometheusMiddleware(reg)
		if err != nil {
			return err
		}
		app.Use(prom.Handler())

		metrics, err := service.NewMetrics(reg)
		if err != nil {
			return err
		}
		svcOpts = append(svcOpts, service.WithMetrics(metrics))
		routeOpts.Gatherer = reg
	}
	app.Use(middleware.Logger(log))

	caps := transform.DefaultRegistry()
	svc := service.NewTransformService(store, caps, log, svcOpts...)
	handlers.RegisterRoutes(app, svc, routeOpts)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":        cfg.Addr(),
			"scratch_dir": cfg.Scratch.Dir,
			"metrics":     cfg.Metrics,
			"kinds":       caps.Kinds(),
		}).Info("docgate listening")
		errCh <- app.Listen(cfg.Addr())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
