package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"asrama/internal/amqp"
	"asrama/internal/cache"
	"asrama/internal/cli"
	"asrama/internal/config"
	apphttp "asrama/internal/http"
	applog "asrama/internal/log"
	"asrama/internal/period"
	"asrama/internal/services"
	"asrama/internal/session"
)

const (
	seriesCacheSize = 64
	seriesCacheTTL  = 5 * time.Minute
	shutdownTimeout = 30 * time.Second
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	res := cli.InitBackend(context.Background(), logger, cfg)
	defer cli.Close(logger, res)

	// A nil interface keeps events off; a typed nil *amqp.Client would not.
	var publisher services.Publisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		amqpClient, publisher = c, c
		defer amqpClient.Close()
		logger.Info("AMQP publishing enabled", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	loc := cfg.Location()
	seriesCache := cache.NewLRUCache[period.Series](seriesCacheSize, seriesCacheTTL)
	finance := services.NewFinanceService(res.Backend, publisher, seriesCache, logger)

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Backend:            res.Backend,
		Finance:            finance,
		Attendance:         services.NewAttendanceService(res.Backend, logger),
		Minutes:            services.NewMinutesService(res.Backend, publisher, logger),
		Dashboard:          services.NewDashboardService(res.Backend, finance, loc),
		Sessions:           session.NewManager(cfg.SessionSecret, cfg.SessionTTL, cfg.CookieSecure, logger),
		SeriesCache:        seriesCache,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
		Location:           loc,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	})

	logger.Info("Starting asrama server",
		"port", cfg.Port,
		applog.FieldBackend, cfg.DataBackend,
		"timezone", loc.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
