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

	"go.uber.org/zap"

	"github.com/zhcheck/zhcheck/internal/cache"
	"github.com/zhcheck/zhcheck/internal/config"
	"github.com/zhcheck/zhcheck/internal/csc"
	"github.com/zhcheck/zhcheck/internal/detect"
	"github.com/zhcheck/zhcheck/internal/engine"
	"github.com/zhcheck/zhcheck/internal/logger"
	"github.com/zhcheck/zhcheck/internal/report"
	"github.com/zhcheck/zhcheck/internal/rules"
	"github.com/zhcheck/zhcheck/internal/server"
	"github.com/zhcheck/zhcheck/internal/store"
	"github.com/zhcheck/zhcheck/internal/tagger"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	// Parse command line flags
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		healthCheck = flag.Bool("health-check", false, "Perform health check and exit")
	)
	flag.Parse()

	// Show version and exit
	if *showVersion {
		fmt.Printf("zhcheck %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	// Perform health check and exit
	if *healthCheck {
		performHealthCheck()
		return
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting zhcheck",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_date", date),
		zap.Int("port", cfg.Server.Port),
	)

	// Rule store, optionally hot-reloaded
	ruleStore := rules.NewStore(cfg.Rules.Dir, log.WithComponent("rules").Logger)
	defer ruleStore.Close()
	if cfg.Rules.Watch {
		if err := ruleStore.Watch(); err != nil {
			log.Warn("Rule hot reload disabled", zap.Error(err))
		}
	}

	// Part-of-speech tagger
	lexicon, err := tagger.LoadLexicon(cfg.Rules.LexiconPath)
	if err != nil {
		log.Fatal("Failed to load tagger lexicon", zap.Error(err))
	}
	tag := tagger.NewMaxMatch(lexicon)

	// Spelling-correction model (optional)
	var corrector csc.Corrector
	if cfg.Model.Enabled {
		corrector = csc.NewCorrector(csc.Config{
			ModelPath: cfg.Model.ModelPath,
			VocabPath: cfg.Model.VocabPath,
			MaxLength: cfg.Model.MaxLength,
			Timeout:   cfg.Model.Timeout,
		}, log.WithComponent("csc").Logger)
		defer corrector.Close()
	}

	detectors := []detect.Detector{
		detect.NewFormat(),
		detect.NewLexicon(),
		detect.NewRegexRule(),
		detect.NewPOSPattern(tag),
		detect.NewNeural(corrector, cfg.Model.Timeout),
		detect.NewTerm(),
	}
	eng := engine.New(ruleStore, detectors, cfg.Engine.Aggregate, log.WithComponent("engine").Logger)

	// Optional capabilities
	deps := server.Deps{Engine: eng}

	if cfg.Cache.Enabled {
		resultCache, err := cache.NewResultCache(&cache.Config{
			Addr:       cfg.Cache.Addr,
			Password:   cfg.Cache.Password,
			DB:         cfg.Cache.DB,
			DefaultTTL: cfg.Cache.TTL,
		}, log.WithComponent("cache").Logger)
		if err != nil {
			log.Warn("Result cache disabled", zap.Error(err))
		} else {
			deps.Cache = resultCache
			defer resultCache.Close()
		}
	}

	if cfg.History.Enabled {
		history, err := store.NewHistoryStore(&store.Config{
			DatabaseURL:  cfg.History.DatabaseURL,
			MaxOpenConns: cfg.History.MaxConns,
		}, log.WithComponent("history").Logger)
		if err != nil {
			log.Warn("Scan history disabled", zap.Error(err))
		} else {
			deps.History = history
			defer history.Close()
		}
	}

	exporter, err := report.NewExporter(cfg.Report.Dir, log.WithComponent("report").Logger)
	if err != nil {
		log.Fatal("Failed to create report exporter", zap.Error(err))
	}
	deps.Exporter = exporter

	// Create HTTP server
	srv, err := server.New(cfg, log, deps)
	if err != nil {
		log.Fatal("Failed to create server", zap.Error(err))
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		serverErrors <- srv.Start()
	}()

	// Setup graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErrors:
		log.Error("Server error", zap.Error(err))
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Stop(ctx); err != nil {
			log.Error("Failed to shutdown server gracefully", zap.Error(err))
			os.Exit(1)
		}

		log.Info("Server shutdown complete")
	}
}

// performHealthCheck performs a health check against the running server
func performHealthCheck() {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get("http://localhost:8080/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
	os.Exit(0)
}
