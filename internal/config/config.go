// README: Config loader with env defaults for HTTP, storage backends, meter tuning and maps.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

const (
	TariffBackendMemory   = "memory"
	TariffBackendRedis    = "redis"
	TariffBackendPostgres = "postgres"
)

type MeterConfig struct {
	TickInterval         time.Duration
	FilterMinKm          float64
	FilterMaxKm          float64
	PositionMinInterval  time.Duration
	PositionMinDistanceM float64
}

type Config struct {
	Env      string
	Timezone string
	HTTP     struct {
		Addr string
	}
	DB struct {
		DSN string
	}
	Redis struct {
		Addr string
	}
	Tariff struct {
		Backend string
		Refresh time.Duration
	}
	Meter MeterConfig
	Maps  struct {
		APIKey               string
		Country              string
		Language             string
		Timeout              time.Duration
		AutocompleteDebounce time.Duration
	}
	AI struct {
		GeminiKey string
	}
	Firebase struct {
		DatabaseURL     string
		CredentialsFile string
	}
}

// Load reads METER_* environment variables, falling back to an optional .env file in the
// working directory (keys without the prefix) and then to defaults.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.SetEnvPrefix("METER")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("reading .env: %w", err)
	}

	var cfg Config
	cfg.Env = v.GetString("ENV")
	cfg.Timezone = v.GetString("TIMEZONE")
	cfg.HTTP.Addr = v.GetString("HTTP_ADDR")
	cfg.DB.DSN = v.GetString("DB_DSN")
	cfg.Redis.Addr = v.GetString("REDIS_ADDR")
	cfg.Tariff.Backend = v.GetString("TARIFF_BACKEND")
	cfg.Tariff.Refresh = v.GetDuration("TARIFF_REFRESH")
	cfg.Meter.TickInterval = v.GetDuration("TICK_INTERVAL")
	cfg.Meter.FilterMinKm = v.GetFloat64("FILTER_MIN_KM")
	cfg.Meter.FilterMaxKm = v.GetFloat64("FILTER_MAX_KM")
	cfg.Meter.PositionMinInterval = v.GetDuration("POSITION_MIN_INTERVAL")
	cfg.Meter.PositionMinDistanceM = v.GetFloat64("POSITION_MIN_DISTANCE_M")
	cfg.Maps.APIKey = v.GetString("MAPS_API_KEY")
	cfg.Maps.Country = v.GetString("MAPS_COUNTRY")
	cfg.Maps.Language = v.GetString("MAPS_LANGUAGE")
	cfg.Maps.Timeout = v.GetDuration("MAPS_TIMEOUT")
	cfg.Maps.AutocompleteDebounce = v.GetDuration("AUTOCOMPLETE_DEBOUNCE")
	cfg.AI.GeminiKey = v.GetString("GEMINI_API_KEY")
	cfg.Firebase.DatabaseURL = v.GetString("FIREBASE_DATABASE_URL")
	cfg.Firebase.CredentialsFile = v.GetString("FIREBASE_CREDENTIALS_FILE")

	return cfg, cfg.Validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "production")
	v.SetDefault("TIMEZONE", "Asia/Kolkata")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DB_DSN", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("TARIFF_BACKEND", TariffBackendMemory)
	v.SetDefault("TARIFF_REFRESH", time.Second)
	v.SetDefault("TICK_INTERVAL", time.Second)
	v.SetDefault("FILTER_MIN_KM", 0.01)
	v.SetDefault("FILTER_MAX_KM", 1.0)
	v.SetDefault("POSITION_MIN_INTERVAL", time.Second)
	v.SetDefault("POSITION_MIN_DISTANCE_M", 0.0)
	v.SetDefault("MAPS_API_KEY", "")
	v.SetDefault("MAPS_COUNTRY", "in")
	v.SetDefault("MAPS_LANGUAGE", "en")
	v.SetDefault("MAPS_TIMEOUT", 10*time.Second)
	v.SetDefault("AUTOCOMPLETE_DEBOUNCE", 300*time.Millisecond)
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("FIREBASE_DATABASE_URL", "")
	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
}

func (c Config) Validate() error {
	switch c.Tariff.Backend {
	case TariffBackendMemory:
	case TariffBackendRedis:
		if c.Redis.Addr == "" {
			return errors.New("METER_REDIS_ADDR is required for the redis tariff backend")
		}
	case TariffBackendPostgres:
		if c.DB.DSN == "" {
			return errors.New("METER_DB_DSN is required for the postgres tariff backend")
		}
	default:
		return fmt.Errorf("unknown tariff backend %q", c.Tariff.Backend)
	}
	if c.Tariff.Refresh <= 0 || c.Maps.Timeout <= 0 {
		return errors.New("refresh and maps timeout intervals must be positive")
	}
	// Each tick counts one elapsed second on the meter.
	if c.Meter.TickInterval != time.Second {
		return fmt.Errorf("METER_TICK_INTERVAL must be 1s, got %v", c.Meter.TickInterval)
	}
	if c.Meter.PositionMinInterval < 0 || c.Meter.PositionMinDistanceM < 0 || c.Maps.AutocompleteDebounce < 0 {
		return errors.New("position and debounce settings must not be negative")
	}
	if c.Meter.FilterMinKm < 0 || c.Meter.FilterMaxKm <= c.Meter.FilterMinKm {
		return fmt.Errorf("invalid distance filter bounds: min=%v max=%v", c.Meter.FilterMinKm, c.Meter.FilterMaxKm)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the time zone used for the night window.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
