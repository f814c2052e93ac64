package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Configuration errors
var (
	ErrConfigInvalidEndpoint = errors.New("config: api.endpoint must be an absolute http(s) URL")
	ErrConfigInvalidSampling = errors.New("config: telemetry.sampling_ratio must be between 0.0 and 1.0")
	ErrConfigInsecureAPI     = errors.New("config: api.endpoint must use https in production")
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	API       APIConfig
	Log       LogConfig
	Twin      TwinConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// APIConfig holds the remote accounting API connection settings
type APIConfig struct {
	Endpoint        string
	AgreementNumber int64
	UserName        string
	Password        string
	Timeout         time.Duration
	MaxResponseSize int64 // bytes
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// TwinConfig holds settings of the local API twin server
type TwinConfig struct {
	Port            string
	AgreementNumber int64
	UserName        string
	Password        string
	FixturesPath    string // optional YAML seed file
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string
	Insecure          bool // Use insecure (non-TLS) connection (development only)
}

// Load loads configuration from config.toml in the working directory and
// environment variables.
// Priority (highest to lowest):
// 1. Environment variables with ECONOMIC_ prefix (e.g., ECONOMIC_API_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches the
// default locations; a missing default file is not an error.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/economic")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("ECONOMIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		API: APIConfig{
			Endpoint:        v.GetString("api.endpoint"),
			AgreementNumber: v.GetInt64("api.agreement_number"),
			UserName:        v.GetString("api.user_name"),
			Password:        v.GetString("api.password"),
			Timeout:         v.GetDuration("api.timeout"),
			MaxResponseSize: v.GetInt64("api.max_response_size"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Twin: TwinConfig{
			Port:            v.GetString("twin.port"),
			AgreementNumber: v.GetInt64("twin.agreement_number"),
			UserName:        v.GetString("twin.user_name"),
			Password:        v.GetString("twin.password"),
			FixturesPath:    v.GetString("twin.fixtures_path"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "economic"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.API.Endpoint == "" {
		cfg.API.Endpoint = "http://localhost:8089/rpc"
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 30 * time.Second
	}
	if cfg.API.MaxResponseSize == 0 {
		cfg.API.MaxResponseSize = 10 << 20 // 10MB
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stderr"
	}
	if cfg.Twin.Port == "" {
		cfg.Twin.Port = "8089"
	}
	if cfg.Twin.AgreementNumber == 0 {
		cfg.Twin.AgreementNumber = 123456
	}
	if cfg.Twin.UserName == "" {
		cfg.Twin.UserName = "api"
	}
	if cfg.Twin.Password == "" {
		cfg.Twin.Password = "passw0rd"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	u, err := url.Parse(c.API.Endpoint)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrConfigInvalidEndpoint, c.API.Endpoint)
	}
	if c.App.Env == "production" && u.Scheme != "https" {
		return ErrConfigInsecureAPI
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("%w, got %f", ErrConfigInvalidSampling, c.Telemetry.SamplingRatio)
	}
	return nil
}

// IsProduction reports whether the app runs in the production environment
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
