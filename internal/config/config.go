package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/karthiivan/sih/internal/alerts"
	"github.com/karthiivan/sih/internal/telemetry"
)

type AppConfig struct {
	Port     string
	LogLevel string

	// HTTPTimeout bounds outbound calls to external APIs.
	HTTPTimeout time.Duration

	// Periodic task intervals.
	SimInterval     time.Duration
	MonitorInterval time.Duration
	Cooldown        time.Duration

	// Series retention and synthetic seed length.
	MaxHistory int
	SeedDays   int

	// JSON persistence paths.
	ThresholdsFile string
	NotesFile      string

	// AlertsDryRun keeps all notification dispatch simulated.
	AlertsDryRun bool

	SMTP SMTPConfig

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string

	// Regions to monitor; the first entry is the default region for
	// queries that omit one.
	Regions []telemetry.Region
}

// SMTPConfig aliases the alerts package type so main wires it through
// without re-mapping fields.
type SMTPConfig = alerts.SMTPConfig

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{
		Port:     getenvDefault("PORT", "8080"),
		LogLevel: getenvDefault("LOG_LEVEL", "info"),

		MaxHistory: getenvInt("STORE_MAX_HISTORY", 2000),
		SeedDays:   getenvInt("SEED_DAYS", 30),

		ThresholdsFile: getenvDefault("THRESHOLDS_FILE", "thresholds.json"),
		NotesFile:      getenvDefault("NOTES_FILE", "notes.json"),

		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:       os.Getenv("TWILIO_FROM"),
	}

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.SimInterval, err = getenvDuration("SIM_INTERVAL", "10s"); err != nil {
		return nil, err
	}
	if cfg.MonitorInterval, err = getenvDuration("MONITOR_INTERVAL", "60s"); err != nil {
		return nil, err
	}
	if cfg.Cooldown, err = getenvDuration("ALERT_COOLDOWN", "60m"); err != nil {
		return nil, err
	}

	// Dry-run is the default; only an explicit opt-out enables real sends.
	switch getenvDefault("ALERTS_DRY_RUN", "1") {
	case "0", "false", "no":
		cfg.AlertsDryRun = false
	default:
		cfg.AlertsDryRun = true
	}

	cfg.SMTP = SMTPConfig{
		Host: os.Getenv("SMTP_HOST"),
		Port: getenvInt("SMTP_PORT", 587),
		User: os.Getenv("SMTP_USER"),
		Pass: os.Getenv("SMTP_PASS"),
		From: os.Getenv("SMTP_FROM"),
	}

	regions, err := loadRegions()
	if err != nil {
		return nil, err
	}
	cfg.Regions = regions

	return cfg, nil
}

// loadRegions parses the REGIONS env (JSON array of regions) or falls
// back to the built-in station set.
func loadRegions() ([]telemetry.Region, error) {
	raw := os.Getenv("REGIONS")
	if raw == "" {
		return telemetry.DefaultRegions(), nil
	}

	var regions []telemetry.Region
	if err := json.Unmarshal([]byte(raw), &regions); err != nil {
		return nil, fmt.Errorf("invalid REGIONS: %w", err)
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("REGIONS must contain at least one region")
	}
	for _, r := range regions {
		if r.ID == "" {
			return nil, fmt.Errorf("REGIONS entries must have an id")
		}
	}
	return regions, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	v := getenvDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
