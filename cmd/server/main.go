// Package main is the entry point for the configuration server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vitaliisemenov/configserver/internal/api"
	"github.com/vitaliisemenov/configserver/internal/backend"
	"github.com/vitaliisemenov/configserver/internal/cache"
	"github.com/vitaliisemenov/configserver/internal/config"
	"github.com/vitaliisemenov/configserver/internal/gitrepo"
	"github.com/vitaliisemenov/configserver/internal/refresh"
	"github.com/vitaliisemenov/configserver/internal/resolver"
	"github.com/vitaliisemenov/configserver/pkg/logger"
)

const (
	serviceName    = "configserver"
	serviceVersion = "1.0.0"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath  = flag.String("config", "", "Path to config file (YAML)")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s version %s\n", serviceName, serviceVersion)
		return 0
	}

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadConfig(*configPath)
	} else {
		cfg, err = config.LoadConfigFromEnv()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		return 1
	}

	log := logger.NewLogger(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	log.Info("starting configuration server", "service", serviceName, "version", serviceVersion)

	creds := gitrepo.Credentials{Username: cfg.Repository.Username, Password: cfg.Repository.Password}
	driver := gitrepo.New(cfg.Repository.MirrorPath, cfg.Repository.URI, creds,
		cfg.Repository.CloneTimeout, cfg.Repository.FetchTimeout, logger.WithComponent(log, "gitrepo"))

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), cfg.Repository.CloneTimeout)
	defer cancelStartup()
	if err := driver.EnsureMirror(startupCtx); err != nil {
		log.Error("failed to establish repository mirror", "error", err)
		if cfg.Repository.StrictFirstClone {
			return 1
		}
		log.Warn("continuing startup without a synchronized mirror; requests will fail until the next refresh succeeds")
	}

	res := resolver.New(cfg.Repository.MaxFileSize, logger.WithComponent(log, "resolver"))

	responseCache := cache.New(cache.Config{
		MaxEntries: cfg.Cache.MaxEntries,
		TTL:        cfg.Cache.TTL,
	})

	refreshWorker := refresh.New(driver, responseCache, refresh.Config{
		DefaultLabel:  cfg.Repository.DefaultLabel,
		BaseInterval:  cfg.Refresh.Interval,
		BackoffFactor: cfg.Refresh.BackoffFactor,
		MaxBackoff:    cfg.Refresh.MaxBackoff,
	}, logger.WithComponent(log, "refresh"))

	refreshCtx, cancelRefresh := context.WithCancel(context.Background())
	defer cancelRefresh()
	go refreshWorker.Run(refreshCtx)

	go func() {
		forceCtx, cancelForce := context.WithTimeout(refreshCtx, cfg.Repository.CloneTimeout)
		defer cancelForce()
		if _, err := refreshWorker.ForceRefresh(forceCtx); err != nil {
			log.Warn("initial forced refresh did not complete; health stays DOWN until the next scheduled cycle succeeds", "error", err)
		}
	}()

	be := backend.New(driver, refreshWorker, res, cfg.Repository.MirrorPath, cfg.Repository.SearchPaths, logger.WithComponent(log, "backend"))

	server := api.NewServer(be, responseCache, refreshWorker, cfg.Server.RequestTimeout, log)
	router := api.NewRouter(server, cfg.RateLimit, log)
	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods("GET")
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	signals := NewSignalHandler(refreshWorker, log)
	signals.Start()

	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, syscall.SIGINT, syscall.SIGTERM)

	serverErrs := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrs <- err
		}
	}()

	select {
	case <-signals.Done():
		log.Info("shutdown signal received")
	case err := <-serverErrs:
		log.Error("HTTP server failed", "error", err)
		signals.Stop()
		cancelRefresh()
		return 1
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer cancelShutdown()

	refreshWorker.Shutdown()
	cancelRefresh()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced to shutdown", "error", err)
		signals.Stop()
		return 1
	}

	signals.Stop()
	log.Info("configuration server exited cleanly")
	return 0
}
