// Package config assembles the single configuration struct the process
// runs on. Values layer as defaults, then an optional YAML file, then
// flags and SUMMIT_SYNC-prefixed environment variables. Nothing outside
// this package and main reads the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration, assembled once at startup and
// passed down by constructor injection.
type Config struct {
	Port         int    `yaml:"port"`
	DBPath       string `yaml:"db_path"`
	ArtifactRoot string `yaml:"artifact_root"`

	Extractor   string `yaml:"extractor"` // gemini or ollama
	GeminiKey   string `yaml:"gemini_key"`
	GeminiModel string `yaml:"gemini_model"`
	OllamaURL   string `yaml:"ollama_url"`
	OllamaModel string `yaml:"ollama_model"`

	TessieBaseURL string `yaml:"tessie_base_url"`
	TessieKey     string `yaml:"tessie_key"`
	VehicleVIN    string `yaml:"vehicle_vin"`

	NominatimBaseURL string `yaml:"nominatim_base_url"`
	ElevationBaseURL string `yaml:"elevation_base_url"`
	ElevationKey     string `yaml:"elevation_key"`

	UberToleranceMin    int     `yaml:"uber_tolerance_minutes"`
	PrivateToleranceMin int     `yaml:"private_tolerance_minutes"`
	CoarseWindowHours   int     `yaml:"coarse_window_hours"`
	BatteryCapacityKWh  float64 `yaml:"battery_capacity_kwh"`

	ReconcileInterval  time.Duration `yaml:"reconcile_interval"`
	ReconcileLookback  time.Duration `yaml:"reconcile_lookback"`
	DefaultDurationMin int           `yaml:"default_duration_minutes"`

	Timezone        string `yaml:"timezone"`
	RateLimitPerMin int    `yaml:"rate_limit_per_minute"`
	AgentWorkers    int    `yaml:"agent_workers"`

	AuthUser string `yaml:"auth_user"`
	AuthPass string `yaml:"auth_pass"`
}

// Default returns the observed operating defaults.
func Default() Config {
	return Config{
		Port:                8080,
		DBPath:              "summit-sync.db",
		ArtifactRoot:        "./artifacts",
		Extractor:           "gemini",
		GeminiModel:         "gemini-2.5-pro",
		OllamaURL:           "http://localhost:11434",
		OllamaModel:         "llava",
		UberToleranceMin:    20,
		PrivateToleranceMin: 120,
		CoarseWindowHours:   4,
		BatteryCapacityKWh:  82.0,
		ReconcileInterval:   time.Hour,
		ReconcileLookback:   7 * 24 * time.Hour,
		DefaultDurationMin:  30,
		Timezone:            "America/Denver",
		RateLimitPerMin:     20,
		AgentWorkers:        4,
	}
}

// configPathFromArgs pre-scans for --config so the YAML layer can seed
// flag defaults before ff parses.
func configPathFromArgs(args []string) string {
	for i, arg := range args {
		if arg == "--config" || arg == "-config" {
			if i+1 < len(args) {
				return args[i+1]
			}
		}
	}
	return ""
}

// Load assembles the configuration from args. A .env file in the working
// directory is applied to the environment first, if present.
func Load(args []string) (Config, error) {
	// Missing .env is fine; env vars may come from the real environment.
	_ = godotenv.Load()

	cfg := Default()

	if path := configPathFromArgs(args); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file: %w", err)
		}
	}

	fs := ff.NewFlagSet("summit-sync")
	var (
		_                   = fs.StringLong("config", "", "YAML config file path")
		port                = fs.IntLong("port", cfg.Port, "HTTP server port")
		dbPath              = fs.StringLong("db", cfg.DBPath, "Database file path")
		artifactRoot        = fs.StringLong("artifacts", cfg.ArtifactRoot, "Artifact root directory")
		extractor           = fs.StringLong("extractor", cfg.Extractor, "OCR extractor: 'gemini' or 'ollama'")
		geminiKey           = fs.StringLong("gemini-key", cfg.GeminiKey, "Google Gemini API key")
		geminiModel         = fs.StringLong("gemini-model", cfg.GeminiModel, "Google Gemini model name")
		ollamaURL           = fs.StringLong("ollama-url", cfg.OllamaURL, "Ollama API base URL")
		ollamaModel         = fs.StringLong("ollama-model", cfg.OllamaModel, "Ollama vision model name")
		tessieBaseURL       = fs.StringLong("tessie-url", cfg.TessieBaseURL, "Telemetry API base URL")
		tessieKey           = fs.StringLong("tessie-key", cfg.TessieKey, "Telemetry API key")
		vehicleVIN          = fs.StringLong("vin", cfg.VehicleVIN, "Vehicle VIN")
		nominatimBaseURL    = fs.StringLong("nominatim-url", cfg.NominatimBaseURL, "Reverse geocoder base URL")
		elevationBaseURL    = fs.StringLong("elevation-url", cfg.ElevationBaseURL, "Elevation API base URL")
		elevationKey        = fs.StringLong("elevation-key", cfg.ElevationKey, "Elevation API key")
		uberTolerance       = fs.IntLong("uber-tolerance-minutes", cfg.UberToleranceMin, "Match tolerance for rideshare trips")
		privateTolerance    = fs.IntLong("private-tolerance-minutes", cfg.PrivateToleranceMin, "Match tolerance for private trips")
		coarseWindow        = fs.IntLong("coarse-window-hours", cfg.CoarseWindowHours, "Telemetry query window around the event")
		batteryCapacity     = fs.Float64Long("battery-capacity-kwh", cfg.BatteryCapacityKWh, "Battery pack capacity for energy estimates")
		reconcileInterval   = fs.DurationLong("reconcile-interval", cfg.ReconcileInterval, "Reconciliation sweep interval")
		reconcileLookback   = fs.DurationLong("reconcile-lookback", cfg.ReconcileLookback, "Reconciliation lookback window")
		defaultDurationMin  = fs.IntLong("default-duration-minutes", cfg.DefaultDurationMin, "Assumed trip duration when unknown")
		timezone            = fs.StringLong("timezone", cfg.Timezone, "IANA zone for capture timestamps")
		rateLimitPerMin     = fs.IntLong("rate-limit", cfg.RateLimitPerMin, "Ingest requests per caller per minute (0 disables)")
		agentWorkers        = fs.IntLong("agent-workers", cfg.AgentWorkers, "Metrics agent worker pool size")
		authUser            = fs.StringLong("auth-user", cfg.AuthUser, "Basic auth username (optional)")
		authPass            = fs.StringLong("auth-pass", cfg.AuthPass, "Basic auth password (optional)")
	)

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("SUMMIT_SYNC")); err != nil {
		return cfg, err
	}

	cfg.Port = *port
	cfg.DBPath = *dbPath
	cfg.ArtifactRoot = *artifactRoot
	cfg.Extractor = *extractor
	cfg.GeminiKey = *geminiKey
	cfg.GeminiModel = *geminiModel
	cfg.OllamaURL = *ollamaURL
	cfg.OllamaModel = *ollamaModel
	cfg.TessieBaseURL = *tessieBaseURL
	cfg.TessieKey = *tessieKey
	cfg.VehicleVIN = *vehicleVIN
	cfg.NominatimBaseURL = *nominatimBaseURL
	cfg.ElevationBaseURL = *elevationBaseURL
	cfg.ElevationKey = *elevationKey
	cfg.UberToleranceMin = *uberTolerance
	cfg.PrivateToleranceMin = *privateTolerance
	cfg.CoarseWindowHours = *coarseWindow
	cfg.BatteryCapacityKWh = *batteryCapacity
	cfg.ReconcileInterval = *reconcileInterval
	cfg.ReconcileLookback = *reconcileLookback
	cfg.DefaultDurationMin = *defaultDurationMin
	cfg.Timezone = *timezone
	cfg.RateLimitPerMin = *rateLimitPerMin
	cfg.AgentWorkers = *agentWorkers
	cfg.AuthUser = *authUser
	cfg.AuthPass = *authPass

	// Fall back to the unprefixed key the Gemini SDK docs use.
	if cfg.GeminiKey == "" {
		cfg.GeminiKey = os.Getenv("GEMINI_API_KEY")
	}

	return cfg, nil
}
