package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/summitos/summit-sync/internal/agents"
	"github.com/summitos/summit-sync/internal/artifact"
	"github.com/summitos/summit-sync/internal/config"
	"github.com/summitos/summit-sync/internal/match"
	"github.com/summitos/summit-sync/internal/pipeline"
	"github.com/summitos/summit-sync/internal/ratelimit"
	"github.com/summitos/summit-sync/internal/reconcile"
	"github.com/summitos/summit-sync/internal/scanning"
	"github.com/summitos/summit-sync/internal/telemetry"
	"github.com/summitos/summit-sync/internal/trip"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	zone, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		slog.Error("Invalid timezone", "timezone", cfg.Timezone, "error", err)
		os.Exit(1)
	}

	slog.Info("Initializing database...", "path", cfg.DBPath)
	db, err := trip.NewBoltDB(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var extractor scanning.Extractor
	switch cfg.Extractor {
	case "gemini":
		if cfg.GeminiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key or SUMMIT_SYNC_GEMINI_KEY")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini extractor...", "model", cfg.GeminiModel)
		extractor, err = scanning.NewGemini(cfg.GeminiKey, cfg.GeminiModel)
	case "ollama":
		slog.Info("Initializing Ollama extractor...", "url", cfg.OllamaURL, "model", cfg.OllamaModel)
		extractor, err = scanning.NewOllama(cfg.OllamaURL, cfg.OllamaModel)
	default:
		slog.Error("Invalid extractor type", "type", cfg.Extractor, "valid", "gemini or ollama")
		os.Exit(1)
	}
	if err != nil {
		slog.Error("Failed to initialize extractor", "error", err)
		os.Exit(1)
	}
	defer extractor.Close()

	slog.Info("Initializing telemetry client...", "vin", cfg.VehicleVIN)
	provider, err := telemetry.NewTessieClient(cfg.TessieBaseURL, cfg.TessieKey, cfg.VehicleVIN)
	if err != nil {
		slog.Error("Failed to initialize telemetry client", "error", err)
		os.Exit(1)
	}

	geocoder := telemetry.NewNominatimClient(cfg.NominatimBaseURL)

	matcher := match.NewEngine(provider, geocoder, match.Config{
		UberTolerance:    time.Duration(cfg.UberToleranceMin) * time.Minute,
		PrivateTolerance: time.Duration(cfg.PrivateToleranceMin) * time.Minute,
		CoarseWindow:     time.Duration(cfg.CoarseWindowHours) * time.Hour,
	})

	var elevator agents.ElevationResolver
	if cfg.ElevationKey != "" {
		elevator = agents.NewElevationClient(cfg.ElevationBaseURL, cfg.ElevationKey)
	} else {
		slog.Info("Elevation lookups disabled (no API key)")
	}

	orchestrator := agents.NewOrchestrator(
		agents.EVConfig{BatteryCapacityKWh: cfg.BatteryCapacityKWh},
		elevator,
		cfg.AgentWorkers,
	)

	slog.Info("Initializing artifact router...", "root", cfg.ArtifactRoot)
	router, err := artifact.NewRouter(cfg.ArtifactRoot)
	if err != nil {
		slog.Error("Failed to initialize artifact router", "error", err)
		os.Exit(1)
	}

	service := pipeline.NewService(db, extractor, matcher, orchestrator, router, zone)

	scheduler := reconcile.NewScheduler(db, matcher, reconcile.Config{
		Interval:        cfg.ReconcileInterval,
		Lookback:        cfg.ReconcileLookback,
		DefaultDuration: time.Duration(cfg.DefaultDurationMin) * time.Minute,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go scheduler.Run(ctx)

	limiter := ratelimit.NewLimiter(cfg.RateLimitPerMin)
	server := pipeline.NewServer(service, scheduler, pipeline.BasicAuth{
		Username: cfg.AuthUser,
		Password: cfg.AuthPass,
	}, limiter)

	addr := fmt.Sprintf(":%d", cfg.Port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if cfg.AuthUser != "" || cfg.AuthPass != "" {
		slog.Info("Basic auth enabled", "user", cfg.AuthUser)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
