package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Synthesis providers.
const (
	ProviderNone      = "none"
	ProviderAnthropic = "anthropic"
	ProviderAzure     = "azure"
	ProviderGemini    = "gemini"
)

// Store drivers.
const (
	DriverNone     = "none"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds the full application configuration.
type Config struct {
	IHub       IHubConfig       `yaml:"ihub" mapstructure:"ihub"`
	Synthesis  SynthesisConfig  `yaml:"synthesis" mapstructure:"synthesis"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Azure      AzureConfig      `yaml:"azure" mapstructure:"azure"`
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// IHubConfig holds assistant backend settings.
type IHubConfig struct {
	APIKey         string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL        string        `yaml:"base_url" mapstructure:"base_url"`
	UseMock        bool          `yaml:"use_mock" mapstructure:"use_mock"`
	TimeoutSecs    int           `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	PollAttempts   int           `yaml:"poll_attempts" mapstructure:"poll_attempts"`
	PollIntervalMs int           `yaml:"poll_interval_ms" mapstructure:"poll_interval_ms"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	Retry          RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Circuit        CircuitConfig `yaml:"circuit" mapstructure:"circuit"`
}

// RetryConfig configures backoff for transient upstream failures.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// CircuitConfig configures the upstream circuit breaker.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// SynthesisConfig selects the LLM used to rewrite answers.
type SynthesisConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// AzureConfig holds Azure OpenAI settings.
type AzureConfig struct {
	Key        string `yaml:"key" mapstructure:"key"`
	Endpoint   string `yaml:"endpoint" mapstructure:"endpoint"`
	APIVersion string `yaml:"api_version" mapstructure:"api_version"`
	Deployment string `yaml:"deployment" mapstructure:"deployment"`
}

// GeminiConfig holds Google Gemini settings.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// StoreConfig configures the exchange audit store.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// MonitoringConfig configures evidence-quality alerting over recorded
// exchanges.
type MonitoringConfig struct {
	Enabled                 bool    `yaml:"enabled" mapstructure:"enabled"`
	CheckIntervalSecs       int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours     int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	NoEvidenceRateThreshold float64 `yaml:"no_evidence_rate_threshold" mapstructure:"no_evidence_rate_threshold"`
	OutdatedShareThreshold  float64 `yaml:"outdated_share_threshold" mapstructure:"outdated_share_threshold"`
	WebhookURL              string  `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GUARDED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Secrets default to "" so AutomaticEnv can bind them.
	v.SetDefault("ihub.api_key", "")
	v.SetDefault("ihub.base_url", "")
	v.SetDefault("ihub.use_mock", false)
	v.SetDefault("ihub.timeout_secs", 30)
	v.SetDefault("ihub.poll_attempts", 10)
	v.SetDefault("ihub.poll_interval_ms", 2000)
	v.SetDefault("ihub.rate_limit_rps", 5.0)
	v.SetDefault("ihub.retry.max_attempts", 3)
	v.SetDefault("ihub.retry.initial_backoff_ms", 500)
	v.SetDefault("ihub.retry.max_backoff_ms", 5000)
	v.SetDefault("ihub.circuit.failure_threshold", 5)
	v.SetDefault("ihub.circuit.reset_timeout_secs", 30)
	v.SetDefault("synthesis.provider", ProviderNone)
	v.SetDefault("synthesis.max_tokens", 1024)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("azure.key", "")
	v.SetDefault("azure.endpoint", "")
	v.SetDefault("azure.api_version", "2024-10-21")
	v.SetDefault("azure.deployment", "")
	v.SetDefault("gemini.key", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("store.driver", DriverNone)
	v.SetDefault("store.database_url", "")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.no_evidence_rate_threshold", 0.5)
	v.SetDefault("monitoring.outdated_share_threshold", 0.5)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes: "chat"
// (ask), "serve", "migrate", "stats" and "assess". Every problem is reported at once.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		errs = append(errs, c.chatErrors()...)
		errs = append(errs, c.storeErrors(false)...)
		if c.Monitoring.Enabled && (c.Store.Driver == "" || c.Store.Driver == DriverNone) {
			errs = append(errs, "monitoring.enabled requires store.driver sqlite or postgres")
		}
	case "chat":
		errs = append(errs, c.chatErrors()...)
		errs = append(errs, c.storeErrors(false)...)
	case "migrate", "stats":
		errs = append(errs, c.storeErrors(true)...)
	case "assess":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) chatErrors() []string {
	var errs []string
	if !c.IHub.UseMock {
		if c.IHub.APIKey == "" {
			errs = append(errs, "ihub.api_key is required (or set ihub.use_mock)")
		}
		if c.IHub.BaseURL == "" {
			errs = append(errs, "ihub.base_url is required (or set ihub.use_mock)")
		}
	}

	switch c.Synthesis.Provider {
	case "", ProviderNone:
	case ProviderAnthropic:
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
	case ProviderAzure:
		if c.Azure.Key == "" {
			errs = append(errs, "azure.key is required")
		}
		if c.Azure.Endpoint == "" {
			errs = append(errs, "azure.endpoint is required")
		}
		if c.Azure.Deployment == "" {
			errs = append(errs, "azure.deployment is required")
		}
	case ProviderGemini:
		if c.Gemini.Key == "" {
			errs = append(errs, "gemini.key is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("synthesis.provider %q is not one of none, anthropic, azure, gemini", c.Synthesis.Provider))
	}
	return errs
}

func (c *Config) storeErrors(required bool) []string {
	switch c.Store.Driver {
	case "", DriverNone:
		if required {
			return []string{"store.driver must be sqlite or postgres"}
		}
		return nil
	case DriverSQLite, DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required"}
		}
		return nil
	default:
		return []string{fmt.Sprintf("store.driver %q is not one of none, sqlite, postgres", c.Store.Driver)}
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
