// Package config loads service settings from defaults, an optional YAML
// file, a .env file and the environment, in that order of precedence
// (environment wins).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vainnor/flightlog/db"
	"github.com/vainnor/flightlog/insight"
)

const (
	DefaultLLMBaseURL = "https://api.groq.com/openai/v1"
	DefaultLLMModel   = "meta-llama/llama-4-scout-17b-16e-instruct"
)

var ErrInvalid = errors.New("invalid configuration")

type Server struct {
	ListenAddr     string        `yaml:"listen_addr"`
	MaxUploadMB    int64         `yaml:"max_upload_mb"`
	CORSOrigins    []string      `yaml:"cors_origins"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps"`
	RateLimitBurst int           `yaml:"rate_limit_burst"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	// APIKeys bypass rate limiting. MasterKey guards /api/keys. Both are
	// only read from the environment.
	APIKeys   []string `yaml:"-"`
	MasterKey string   `yaml:"-"`
}

// MaxUploadBytes converts the megabyte limit for http.MaxBytesReader.
func (s Server) MaxUploadBytes() int64 {
	return s.MaxUploadMB << 20
}

type Decode struct {
	MaxMessages      int `yaml:"max_messages"`
	MaxDecodeSeconds int `yaml:"max_decode_seconds"`
}

func (d Decode) MaxDuration() time.Duration {
	return time.Duration(d.MaxDecodeSeconds) * time.Second
}

type LLM struct {
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	APIKey         string `yaml:"-"`
	MaxTokens      int    `yaml:"max_tokens"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Enabled reports whether an API key is available.
func (l LLM) Enabled() bool {
	return l.APIKey != ""
}

// Insight tunes the events handed to the language model.
type Insight struct {
	AltitudeDropMetres   float64 `yaml:"altitude_drop_metres"`
	AltitudeDropWindowMs int     `yaml:"altitude_drop_window_ms"`
	MinSatellites        int     `yaml:"min_satellites"`
	LowVoltage           float64 `yaml:"low_voltage"`
	LowBatteryPercent    int     `yaml:"low_battery_percent"`
	MaxFindings          int     `yaml:"max_findings"`
}

func (i Insight) Thresholds() insight.Thresholds {
	return insight.Thresholds{
		AltitudeDropMetres:   i.AltitudeDropMetres,
		AltitudeDropWindowMs: uint32(i.AltitudeDropWindowMs),
		MinSatellites:        uint8(i.MinSatellites),
		LowVoltage:           i.LowVoltage,
		LowBatteryPercent:    int8(i.LowBatteryPercent),
		MaxFindings:          i.MaxFindings,
	}
}

func insightDefaults() Insight {
	th := insight.DefaultThresholds()
	return Insight{
		AltitudeDropMetres:   th.AltitudeDropMetres,
		AltitudeDropWindowMs: int(th.AltitudeDropWindowMs),
		MinSatellites:        int(th.MinSatellites),
		LowVoltage:           th.LowVoltage,
		LowBatteryPercent:    int(th.LowBatteryPercent),
		MaxFindings:          th.MaxFindings,
	}
}

type Database struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"-"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

func (d Database) Enabled() bool {
	return d.Host != ""
}

func (d Database) Settings() db.Settings {
	return db.Settings{
		Host:     d.Host,
		Port:     d.Port,
		User:     d.User,
		Password: d.Password,
		Name:     d.Name,
		SSLMode:  d.SSLMode,
	}
}

type Config struct {
	Server   Server   `yaml:"server"`
	Decode   Decode   `yaml:"decode"`
	LLM      LLM      `yaml:"llm"`
	Insight  Insight  `yaml:"insight"`
	Database Database `yaml:"database"`
	LogLevel string   `yaml:"log_level"`

	// Warnings collects non-fatal load problems, such as a missing .env file,
	// for the caller to log once a logger exists.
	Warnings []string `yaml:"-"`
}

func Default() Config {
	return Config{
		Server: Server{
			ListenAddr:     ":8080",
			MaxUploadMB:    64,
			CORSOrigins:    []string{"*"},
			RateLimitRPS:   5,
			RateLimitBurst: 20,
			ReadTimeout:    60 * time.Second,
			WriteTimeout:   120 * time.Second,
		},
		Decode: Decode{
			MaxMessages:      5_000_000,
			MaxDecodeSeconds: 120,
		},
		LLM: LLM{
			BaseURL:        DefaultLLMBaseURL,
			Model:          DefaultLLMModel,
			MaxTokens:      1024,
			TimeoutSeconds: 60,
		},
		Insight: insightDefaults(),
		Database: Database{
			Port:    "5432",
			SSLMode: "disable",
		},
		LogLevel: "info",
	}
}

// Load builds the configuration. path may be empty, in which case
// FLIGHTLOG_CONFIG is consulted.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil {
		cfg.Warnings = append(cfg.Warnings, "no .env file found, using environment variables")
	}

	if path == "" {
		path = os.Getenv("FLIGHTLOG_CONFIG")
	}
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return cfg, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	str("LISTEN_ADDR", &c.Server.ListenAddr)
	if v, ok := lookup("MAX_UPLOAD_MB"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("MAX_UPLOAD_MB: %w", err))
		} else {
			c.Server.MaxUploadMB = n
		}
	}
	if v, ok := lookup("CORS_ORIGINS"); ok && v != "" {
		c.Server.CORSOrigins = splitList(v)
	}
	float("RATE_LIMIT_RPS", &c.Server.RateLimitRPS)
	num("RATE_LIMIT_BURST", &c.Server.RateLimitBurst)
	if v, ok := lookup("API_KEYS"); ok && v != "" {
		c.Server.APIKeys = splitList(v)
	}
	str("MASTER_API_KEY", &c.Server.MasterKey)

	num("MAX_MESSAGES", &c.Decode.MaxMessages)
	num("MAX_DECODE_SECONDS", &c.Decode.MaxDecodeSeconds)

	str("LLM_BASE_URL", &c.LLM.BaseURL)
	str("LLM_MODEL", &c.LLM.Model)
	str("GROQ_API_KEY", &c.LLM.APIKey)
	str("LLM_API_KEY", &c.LLM.APIKey)
	num("LLM_MAX_TOKENS", &c.LLM.MaxTokens)

	float("INSIGHT_ALTITUDE_DROP_METRES", &c.Insight.AltitudeDropMetres)
	num("INSIGHT_ALTITUDE_DROP_WINDOW_MS", &c.Insight.AltitudeDropWindowMs)
	num("INSIGHT_MIN_SATELLITES", &c.Insight.MinSatellites)
	float("INSIGHT_LOW_VOLTAGE", &c.Insight.LowVoltage)
	num("INSIGHT_LOW_BATTERY_PERCENT", &c.Insight.LowBatteryPercent)
	num("INSIGHT_MAX_FINDINGS", &c.Insight.MaxFindings)

	str("DB_HOST", &c.Database.Host)
	str("DB_PORT", &c.Database.Port)
	str("DB_USER", &c.Database.User)
	str("DB_PASSWORD", &c.Database.Password)
	str("DB_NAME", &c.Database.Name)
	str("DB_SSLMODE", &c.Database.SSLMode)

	str("LOG_LEVEL", &c.LogLevel)

	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c Config) Validate() error {
	var errs []error
	if c.Server.ListenAddr == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	if c.Server.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("max upload size must be positive, got %d MB", c.Server.MaxUploadMB))
	}
	if c.Server.RateLimitRPS <= 0 || c.Server.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("rate limit rps and burst must be positive"))
	}
	if c.Decode.MaxMessages < 0 {
		errs = append(errs, errors.New("max messages cannot be negative"))
	}
	if c.Decode.MaxDecodeSeconds < 0 {
		errs = append(errs, errors.New("max decode seconds cannot be negative"))
	}
	if c.LLM.Enabled() && c.LLM.BaseURL == "" {
		errs = append(errs, errors.New("llm base url is empty"))
	}
	if c.Insight.AltitudeDropMetres <= 0 || c.Insight.AltitudeDropWindowMs <= 0 {
		errs = append(errs, errors.New("insight altitude drop and window must be positive"))
	}
	if c.Insight.MinSatellites < 0 || c.Insight.MinSatellites > 255 {
		errs = append(errs, fmt.Errorf("insight min satellites out of range: %d", c.Insight.MinSatellites))
	}
	if c.Insight.LowBatteryPercent < 0 || c.Insight.LowBatteryPercent > 100 {
		errs = append(errs, fmt.Errorf("insight low battery percent out of range: %d", c.Insight.LowBatteryPercent))
	}
	if c.Insight.MaxFindings < 0 {
		errs = append(errs, errors.New("insight max findings cannot be negative"))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Level parses LogLevel for slog.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
