package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ServerPort              string        `yaml:"server_port"`
	ServerReadHeaderTimeout time.Duration `yaml:"server_read_header_timeout"`
	ServerWriteTimeout      time.Duration `yaml:"server_write_timeout"`
	ServerIdleTimeout       time.Duration `yaml:"server_idle_timeout"`
	RequestTimeout          time.Duration `yaml:"request_timeout"`
	UploadTimeout           time.Duration `yaml:"upload_timeout"`
	UploadIdleTimeout       time.Duration `yaml:"upload_idle_timeout"`
	MaxUploadSize           int64         `yaml:"max_upload_size"`

	BackendURL           string        `yaml:"backend_url"`
	BackendTimeout       time.Duration `yaml:"backend_timeout"`
	BackendUploadTimeout time.Duration `yaml:"backend_upload_timeout"`

	PollInterval      time.Duration `yaml:"poll_interval"`
	AcceptedExtension string        `yaml:"accepted_extension"`
	GroupSeparator    string        `yaml:"group_separator"`
	GroupLocale       string        `yaml:"group_locale"`

	StatusErrorTTL   time.Duration `yaml:"status_error_ttl"`
	StatusSuccessTTL time.Duration `yaml:"status_success_ttl"`
	StatusInfoTTL    time.Duration `yaml:"status_info_ttl"`

	CORSOrigins        []string `yaml:"cors_origins"`
	RateLimitRPM       int      `yaml:"rate_limit_rpm"`
	UploadRateLimitRPM int      `yaml:"upload_rate_limit_rpm"`

	ConfirmSecret string        `yaml:"confirm_secret"`
	ConfirmTTL    time.Duration `yaml:"confirm_ttl"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func Default() *Config {
	return &Config{
		ServerPort:              "8080",
		ServerReadHeaderTimeout: 10 * time.Second,
		ServerWriteTimeout:      0,
		ServerIdleTimeout:       120 * time.Second,
		RequestTimeout:          30 * time.Second,
		UploadTimeout:           10 * time.Minute,
		UploadIdleTimeout:       60 * time.Second,
		MaxUploadSize:           100 << 20,
		BackendURL:              "http://localhost:8000",
		BackendTimeout:          10 * time.Second,
		BackendUploadTimeout:    5 * time.Minute,
		PollInterval:            5 * time.Second,
		AcceptedExtension:       ".pdf",
		GroupSeparator:          "_",
		StatusErrorTTL:          6 * time.Second,
		StatusSuccessTTL:        4 * time.Second,
		StatusInfoTTL:           0,
		CORSOrigins:             []string{"*"},
		RateLimitRPM:            300,
		UploadRateLimitRPM:      20,
		ConfirmTTL:              2 * time.Minute,
		LogLevel:                "info",
		LogFormat:               "pretty",
	}
}

// Load builds the configuration from defaults, an optional YAML file named
// by CONFIG_FILE and finally environment variables (.env included).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFile overlays the values present in a YAML file. Durations are
// written as strings such as "5s".
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ServerPort = getEnv("SERVER_PORT", c.ServerPort)
	c.ServerReadHeaderTimeout = getDuration("SERVER_READ_HEADER_TIMEOUT", c.ServerReadHeaderTimeout)
	c.ServerWriteTimeout = getDuration("SERVER_WRITE_TIMEOUT", c.ServerWriteTimeout)
	c.ServerIdleTimeout = getDuration("SERVER_IDLE_TIMEOUT", c.ServerIdleTimeout)
	c.RequestTimeout = getDuration("REQUEST_TIMEOUT", c.RequestTimeout)
	c.UploadTimeout = getDuration("UPLOAD_TIMEOUT", c.UploadTimeout)
	c.UploadIdleTimeout = getDuration("UPLOAD_IDLE_TIMEOUT", c.UploadIdleTimeout)
	c.MaxUploadSize = getInt64("MAX_UPLOAD_SIZE", c.MaxUploadSize)

	c.BackendURL = getEnv("BACKEND_URL", c.BackendURL)
	c.BackendTimeout = getDuration("BACKEND_TIMEOUT", c.BackendTimeout)
	c.BackendUploadTimeout = getDuration("BACKEND_UPLOAD_TIMEOUT", c.BackendUploadTimeout)

	c.PollInterval = getDuration("POLL_INTERVAL", c.PollInterval)
	c.AcceptedExtension = getEnv("ACCEPTED_EXTENSION", c.AcceptedExtension)
	c.GroupSeparator = getEnv("GROUP_SEPARATOR", c.GroupSeparator)
	c.GroupLocale = getEnv("GROUP_LOCALE", c.GroupLocale)

	c.StatusErrorTTL = getDuration("STATUS_ERROR_TTL", c.StatusErrorTTL)
	c.StatusSuccessTTL = getDuration("STATUS_SUCCESS_TTL", c.StatusSuccessTTL)
	c.StatusInfoTTL = getDuration("STATUS_INFO_TTL", c.StatusInfoTTL)

	if origins := splitCSV(os.Getenv("CORS_ORIGINS")); len(origins) > 0 {
		c.CORSOrigins = origins
	}
	c.RateLimitRPM = getInt("RATE_LIMIT_RPM", c.RateLimitRPM)
	c.UploadRateLimitRPM = getInt("UPLOAD_RATE_LIMIT_RPM", c.UploadRateLimitRPM)

	c.ConfirmSecret = getEnv("CONFIRM_SECRET", c.ConfirmSecret)
	c.ConfirmTTL = getDuration("CONFIRM_TTL", c.ConfirmTTL)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
}

func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	backend, err := url.Parse(c.BackendURL)
	if err != nil || (backend.Scheme != "http" && backend.Scheme != "https") || backend.Host == "" {
		return fmt.Errorf("BACKEND_URL must be an absolute http(s) URL, got %q", c.BackendURL)
	}

	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.UploadTimeout <= 0 {
		return fmt.Errorf("UPLOAD_TIMEOUT must be positive")
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}

	if strings.Trim(strings.TrimSpace(c.AcceptedExtension), ".") == "" {
		return fmt.Errorf("ACCEPTED_EXTENSION cannot be empty")
	}

	if c.GroupSeparator == "" {
		return fmt.Errorf("GROUP_SEPARATOR cannot be empty")
	}

	if c.StatusErrorTTL <= 0 || c.StatusSuccessTTL <= 0 {
		return fmt.Errorf("STATUS_ERROR_TTL and STATUS_SUCCESS_TTL must be positive")
	}

	if c.StatusInfoTTL < 0 {
		return fmt.Errorf("STATUS_INFO_TTL cannot be negative")
	}

	if c.RateLimitRPM <= 0 || c.UploadRateLimitRPM <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPM and UPLOAD_RATE_LIMIT_RPM must be positive")
	}

	if _, err := c.SlogLevel(); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}

	switch strings.ToLower(c.LogFormat) {
	case "pretty", "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be pretty, text or json, got %q", c.LogFormat)
	}

	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getInt64(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
