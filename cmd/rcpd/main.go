// rcpd is the routing control platform daemon. It subscribes to the
// upstream event feed, maintains the network graph, selects best paths
// and reconciles them into the FIB, and serves read-only queries.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/routelab/rcp/pkg/api"
	"github.com/routelab/rcp/pkg/config"
	"github.com/routelab/rcp/pkg/engine"
	"github.com/routelab/rcp/pkg/feed"
	"github.com/routelab/rcp/pkg/fib"
	"github.com/routelab/rcp/pkg/graph"
	"github.com/routelab/rcp/pkg/ingest"
	"github.com/routelab/rcp/pkg/logging"
	"github.com/routelab/rcp/pkg/metrics"
	"github.com/routelab/rcp/pkg/server"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(cfg.Log.Level))
	logging.SetDefaultLogger(logger)

	fmt.Printf("RCP - Routing Control Platform\n")
	fmt.Printf("==============================\n\n")

	store := graph.NewStoreWithConfig(graph.StoreConfig{Logger: logger})
	defer store.Close()

	// FIB side: device driver, state table, applier, engine
	router := fib.NewMemoryRouter()
	table := fib.NewTable()
	applier := fib.NewApplier(router, table, fib.ApplierConfig{
		MaxAttempts: cfg.Fib.MaxAttempts,
		BaseBackoff: cfg.Fib.BaseBackoff,
		MaxBackoff:  cfg.Fib.MaxBackoff,
		CallTimeout: cfg.Fib.CallTimeout,
		Logger:      logger,
	})

	eng, err := engine.New(store, applier, table, engine.Config{
		Debounce: cfg.Engine.Debounce,
		Workers:  cfg.Engine.Workers,
		Logger:   logger,
	})
	if err != nil {
		log.Fatalf("Failed to create convergence engine: %v", err)
	}
	if err := eng.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start convergence engine: %v", err)
	}
	defer eng.Stop()

	// Ingest side: feed listener feeding the per-peer dispatcher
	ingestor := ingest.New(store, ingest.Config{
		DedupWindow: cfg.Ingest.DedupWindow,
		MaxRetries:  cfg.Ingest.MaxRetries,
		Logger:      logger,
	})
	defer ingestor.Close()

	dispatcher := ingest.NewDispatcher(ingestor, cfg.Ingest.QueueSize)
	defer dispatcher.Stop()

	listener, err := feed.NewListener(feed.NewSocketFactory(), feed.ListenerConfig{
		UpstreamAddr: cfg.Feed.UpstreamAddr,
		RecvTimeout:  cfg.Feed.RecvTimeout,
		StaleAfter:   cfg.Feed.StaleAfter,
	}, dispatcher, logger)
	if err != nil {
		log.Fatalf("Failed to create feed listener: %v", err)
	}
	if err := listener.Start(); err != nil {
		log.Fatalf("Failed to start feed listener: %v", err)
	}
	defer func() {
		if err := listener.Stop(); err != nil {
			logger.Error("feed listener stop failed", logging.Error(err))
		}
	}()

	go updateSystemMetrics()

	// Query service
	queryService := api.NewServer(store, table, api.ServerConfig{
		JWTSecret: cfg.HTTP.JWTSecret,
		Logger:    logger,
	})

	fmt.Printf("Feed upstream: %s\n", cfg.Feed.UpstreamAddr)
	fmt.Printf("Query service: http://localhost%s\n\n", cfg.HTTP.Listen)

	httpServer := server.NewGracefulServer(cfg.HTTP.Listen, queryService.Handler(), server.Options{
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		Logger:       logger,
	})
	if err := httpServer.Start(); err != nil {
		log.Fatalf("HTTP server failed: %v", err)
	}
}

// updateSystemMetrics refreshes process-level gauges every 10 seconds
func updateSystemMetrics() {
	reg := metrics.DefaultRegistry()
	start := time.Now()
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		reg.UpdateSystemMetrics(start)
	}
}
