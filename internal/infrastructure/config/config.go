package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/davidleathers/auth-risk-engine/internal/domain/errors"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Server    ServerConfig    `koanf:"server"`
	Redis     RedisConfig     `koanf:"redis"`
	Risk      RiskConfig      `koanf:"risk"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	RateLimit RateLimitConfig `koanf:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `koanf:"requests_per_second"`
	BurstSize         int `koanf:"burst_size"`
}

type RedisConfig struct {
	// Enabled toggles the redis-backed reputation source. When off, only
	// the statically configured lists are loaded.
	Enabled  bool   `koanf:"enabled"`
	URL      string `koanf:"url"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	OTLPEndpoint string  `koanf:"otlp_endpoint"`
	SamplingRate float64 `koanf:"sampling_rate"`
}

// RiskConfig is the tuning surface of the assessment engine. Everything
// here is overridable per environment without code changes.
type RiskConfig struct {
	// Classification thresholds: score >= HighThreshold is high,
	// score >= MediumThreshold is medium, anything below is low.
	MediumThreshold float64 `koanf:"medium_threshold"`
	HighThreshold   float64 `koanf:"high_threshold"`

	CacheTTL time.Duration `koanf:"cache_ttl"`

	// Working-set history caps.
	LocationHistoryCap int `koanf:"location_history_cap"`
	TimeHistoryCap     int `koanf:"time_history_cap"`
	DeviceLocationCap  int `koanf:"device_location_cap"`

	// Detector tuning.
	UnusualLocationRadiusKm float64 `koanf:"unusual_location_radius_km"`
	MaxTravelSpeedKmh       float64 `koanf:"max_travel_speed_kmh"`
	UnusualTimeWindowHours  int     `koanf:"unusual_time_window_hours"`

	// Static reputation data; the redis source, when enabled, is merged
	// on top of these at initialization.
	DenyListIPs       []string `koanf:"deny_list_ips"`
	AnonymizerIPs     []string `koanf:"anonymizer_ips"`
	HighRiskCountries []string `koanf:"high_risk_countries"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 100,
				BurstSize:         200,
			},
		},
		Redis: RedisConfig{
			DB: 0,
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
			SamplingRate: 1.0,
		},
		Risk: RiskConfig{
			MediumThreshold:         60,
			HighThreshold:           90,
			CacheTTL:                30 * time.Minute,
			LocationHistoryCap:      10,
			TimeHistoryCap:          30,
			DeviceLocationCap:       5,
			UnusualLocationRadiusKm: 100,
			MaxTravelSpeedKmh:       1100,
			UnusualTimeWindowHours:  2,
		},
	}

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// Config file is optional.
	if path == "" {
		path = "configs/config.yaml"
	}
	_ = k.Load(file.Provider(path), yaml.Parser())

	// Override with environment variables. An env name cannot tell the
	// section separator apart from an underscore inside a key
	// (RISK_RISK_HIGH_THRESHOLD vs risk.high_threshold), so match the
	// flattened name against the keys already loaded from the defaults.
	knownKeys := make(map[string]string, len(k.Keys()))
	for _, key := range k.Keys() {
		knownKeys[strings.ReplaceAll(key, ".", "_")] = key
	}
	if err := k.Load(env.Provider("RISK_", ".", func(s string) string {
		name := strings.ToLower(strings.TrimPrefix(s, "RISK_"))
		if key, ok := knownKeys[name]; ok {
			return key
		}
		// Unknown variables are ignored rather than planted as stray keys.
		return ""
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects nonsensical settings. A misordered threshold pair would
// silently misclassify every assessment, so this is fatal at startup.
func (c *Config) Validate() error {
	r := c.Risk
	if r.MediumThreshold <= 0 || r.HighThreshold <= 0 {
		return errors.NewConfigurationError("INVALID_THRESHOLDS",
			"risk thresholds must be positive")
	}
	if r.MediumThreshold >= r.HighThreshold {
		return errors.NewConfigurationError("INVALID_THRESHOLDS",
			fmt.Sprintf("medium threshold %.0f must be below high threshold %.0f",
				r.MediumThreshold, r.HighThreshold))
	}
	if r.CacheTTL < 0 {
		return errors.NewConfigurationError("INVALID_CACHE_TTL",
			"cache ttl cannot be negative")
	}
	if r.LocationHistoryCap <= 0 || r.TimeHistoryCap <= 0 || r.DeviceLocationCap <= 0 {
		return errors.NewConfigurationError("INVALID_HISTORY_CAPS",
			"history caps must be positive")
	}
	if r.MaxTravelSpeedKmh <= 0 {
		return errors.NewConfigurationError("INVALID_TRAVEL_SPEED",
			"max travel speed must be positive")
	}
	if r.UnusualLocationRadiusKm <= 0 {
		return errors.NewConfigurationError("INVALID_LOCATION_RADIUS",
			"unusual location radius must be positive")
	}
	return nil
}
