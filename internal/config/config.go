package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is built once at startup and passed explicitly to every component.
// Nothing in it is mutated after Load returns.
type Config struct {
	Server    ServerConfig
	Model     ModelConfig
	Engine    EngineConfig
	Audio     AudioConfig
	Auth      AuthConfig
	Redis     RedisConfig
	Database  DatabaseConfig
	Telemetry TelemetryConfig
	Reaper    ReaperConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration // zero means no limit
	CORSOrigins  []string
}

type ModelConfig struct {
	ID string
}

type EngineConfig struct {
	Backend string // "exec" or "openai"
	Command string // exec: command line, parsed with shell rules
	BaseURL string // openai: e.g. "http://localhost:8178/v1"
	APIKey  string
}

type AudioConfig struct {
	TempDir              string
	TempSuffix           string
	MaxUploadBytes       int64
	AllowEmptyTranscript bool
}

type AuthConfig struct {
	APIKey    string
	JWTSecret string
}

func (a AuthConfig) Enabled() bool {
	return a.APIKey != "" || a.JWTSecret != ""
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (r RedisConfig) Enabled() bool { return r.Addr != "" }

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

func (d DatabaseConfig) Enabled() bool { return d.URL != "" }

type TelemetryConfig struct {
	LogLevel       slog.Level
	MetricsEnabled bool
	OTLPEndpoint   string
}

type ReaperConfig struct {
	MaxAge        time.Duration
	SweepInterval time.Duration
	Concurrency   int
}

const (
	BackendExec   = "exec"
	BackendOpenAI = "openai"
)

// DefaultEngineCommand is the adapter shipped in scripts/. It accepts the
// flags the exec backend passes and prints the mlx-whisper result as JSON.
// The mlx_whisper CLI itself takes a positional path and writes files, so it
// cannot be used directly.
const DefaultEngineCommand = "python3 scripts/mlx_transcribe.py"

// Load reads the environment (after an optional .env file) into a Config.
func Load() (*Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	port, err := getEnvInt("PORT", 9000)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	readTimeout, err := getEnvInt("SERVER_READ_TIMEOUT_S", 60)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_READ_TIMEOUT_S: %w", err)
	}

	writeTimeout, err := getEnvInt("SERVER_WRITE_TIMEOUT_S", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_WRITE_TIMEOUT_S: %w", err)
	}

	maxUploadMB, err := getEnvInt("MAX_UPLOAD_MB", 25)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_MB: %w", err)
	}

	allowEmpty, err := getEnvBool("ALLOW_EMPTY_TRANSCRIPT", false)
	if err != nil {
		return nil, fmt.Errorf("invalid ALLOW_EMPTY_TRANSCRIPT: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 1)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	metricsEnabled, err := getEnvBool("METRICS_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("invalid METRICS_ENABLED: %w", err)
	}

	logLevel, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	maxAgeMin, err := getEnvInt("REAPER_MAX_AGE_MIN", 60)
	if err != nil {
		return nil, fmt.Errorf("invalid REAPER_MAX_AGE_MIN: %w", err)
	}

	sweepMin, err := getEnvInt("REAPER_SWEEP_INTERVAL_MIN", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid REAPER_SWEEP_INTERVAL_MIN: %w", err)
	}

	reaperConcurrency, err := getEnvInt("REAPER_CONCURRENCY", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid REAPER_CONCURRENCY: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("HOST", "0.0.0.0"),
			Port:         port,
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
			CORSOrigins:  splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		},
		Model: ModelConfig{
			ID: getEnv("WHISPER_MODEL", "mlx-community/whisper-large-v3-turbo"),
		},
		Engine: EngineConfig{
			Backend: strings.ToLower(getEnv("ENGINE_BACKEND", BackendExec)),
			Command: getEnv("ENGINE_COMMAND", DefaultEngineCommand),
			BaseURL: getEnv("ENGINE_BASE_URL", "http://localhost:8178/v1"),
			APIKey:  getEnv("ENGINE_API_KEY", ""),
		},
		Audio: AudioConfig{
			TempDir:              getEnv("AUDIO_TEMP_DIR", filepath.Join(os.TempDir(), "whisper-service")),
			TempSuffix:           getEnv("AUDIO_TEMP_SUFFIX", ".wav"),
			MaxUploadBytes:       int64(maxUploadMB) << 20,
			AllowEmptyTranscript: allowEmpty,
		},
		Auth: AuthConfig{
			APIKey:    getEnv("AUTH_API_KEY", ""),
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Telemetry: TelemetryConfig{
			LogLevel:       logLevel,
			MetricsEnabled: metricsEnabled,
			OTLPEndpoint:   getEnv("OTLP_ENDPOINT", ""),
		},
		Reaper: ReaperConfig{
			MaxAge:        time.Duration(maxAgeMin) * time.Minute,
			SweepInterval: time.Duration(sweepMin) * time.Minute,
			Concurrency:   reaperConcurrency,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Model.ID) == "" {
		problems = append(problems, "WHISPER_MODEL must not be empty")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("PORT %d out of range", c.Server.Port))
	}
	switch c.Engine.Backend {
	case BackendExec:
		if strings.TrimSpace(c.Engine.Command) == "" {
			problems = append(problems, "ENGINE_COMMAND must not be empty for the exec backend")
		}
	case BackendOpenAI:
		if c.Engine.BaseURL == "" {
			problems = append(problems, "ENGINE_BASE_URL must not be empty for the openai backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown ENGINE_BACKEND %q", c.Engine.Backend))
	}
	if c.Audio.MaxUploadBytes <= 0 {
		problems = append(problems, "MAX_UPLOAD_MB must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseBool(v)
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(s))
	return level, err
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
