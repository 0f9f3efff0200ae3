package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/noah-isme/mathla-go-api/internal/models"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName              string
	AppEnv               string
	AppPort              string
	AllowOrigins         string
	DatabaseURL          string
	AutoMigrate          bool
	RedisURL             string
	NATSURL              string
	EventsChannel        string
	EventsKeepAlive      time.Duration
	JWTSecret            string
	HomeworkCacheTTL     time.Duration
	AutosaveRateMax      int
	AutosaveRateWindow   time.Duration
	DefaultProblemFormat models.ProblemFormat
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("MATHLA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Mathla API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.allow_origins", "*")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("events.channel", "mathla")
	v.SetDefault("events.keepalive", "30s")
	v.SetDefault("homework.cache_ttl", "2m")
	v.SetDefault("ratelimit.autosave_max", 30)
	v.SetDefault("ratelimit.autosave_window", "1m")
	v.SetDefault("problems.default_format", string(models.ProblemFormatASCIIMath))

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	homeworkTTL, err := parseDuration(v, "homework.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	keepAlive, err := parseDuration(v, "events.keepalive")
	if err != nil {
		return Config{}, err
	}
	autosaveWindow, err := parseDuration(v, "ratelimit.autosave_window")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:              v.GetString("app.name"),
		AppEnv:               v.GetString("app.env"),
		AppPort:              v.GetString("app.port"),
		AllowOrigins:         v.GetString("app.allow_origins"),
		DatabaseURL:          v.GetString("database.url"),
		AutoMigrate:          v.GetBool("database.auto_migrate"),
		RedisURL:             v.GetString("redis.url"),
		NATSURL:              v.GetString("nats.url"),
		EventsChannel:        v.GetString("events.channel"),
		EventsKeepAlive:      keepAlive,
		JWTSecret:            v.GetString("jwt.secret"),
		HomeworkCacheTTL:     homeworkTTL,
		AutosaveRateMax:      v.GetInt("ratelimit.autosave_max"),
		AutosaveRateWindow:   autosaveWindow,
		DefaultProblemFormat: models.ProblemFormat(strings.ToUpper(strings.TrimSpace(v.GetString("problems.default_format")))),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if !cfg.DefaultProblemFormat.Valid() {
		return Config{}, fmt.Errorf("invalid default problem format %q", cfg.DefaultProblemFormat)
	}

	if cfg.AutosaveRateMax <= 0 {
		cfg.AutosaveRateMax = 30
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}
	duration, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if duration < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return duration, nil
}
