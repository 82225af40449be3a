package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable that points at the optional
// config file.
const EnvConfigPath = "TRENDRANK_CONFIG"

// Default values applied when fields are absent from the config file.
const (
	DefaultConfigPath      = "trendrank.yaml"
	DefaultRegion          = "IN"
	DefaultTimeframe       = "now 7-d"
	DefaultOutputPath      = "public/trends.json"
	DefaultTopN            = 5
	DefaultBatchSize       = 5
	DefaultMaxAttempts     = 3
	DefaultPollInterval    = 30 * time.Second
	DefaultProviderTimeout = 30 * time.Second
	DefaultAMQPQueue       = "trends.updated"
	DefaultMirrorKey       = "trends.json"
)

// DefaultKeywords is the compiled-in category set tracked when the config
// file does not override it.
var DefaultKeywords = []string{
	"Embroidery",
	"Weaving",
	"Jewelry Making",
	"Handicrafts",
	"Pottery",
	"Textile Design",
	"Knitting",
	"Home Decor",
}

// Config is the full updater configuration.
// Fields map 1:1 to trendrank.example.yaml.
type Config struct {
	// Keywords is the ordered category set to query.
	Keywords []string `yaml:"keywords"`

	// Region is the provider geo code.
	Region string `yaml:"region"`

	// Timeframe is the provider window expression.
	Timeframe string `yaml:"timeframe"`

	// OutputPath is where the ranked artifact is published.
	OutputPath string `yaml:"output_path"`

	// TopN is the number of records kept in the artifact.
	TopN int `yaml:"top_n"`

	// BatchSize is the number of keywords per provider request.
	BatchSize int `yaml:"batch_size"`

	// MaxAttempts bounds provider calls per batch, first try included.
	MaxAttempts int `yaml:"max_attempts"`

	// PollInterval is how often the recurring scheduler checks for a due run.
	PollInterval time.Duration `yaml:"poll_interval"`

	Provider ProviderConfig `yaml:"provider"`
	Mirror   MirrorConfig   `yaml:"mirror"`
	Notify   NotifyConfig   `yaml:"notify"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ProviderConfig describes the trends data endpoint.
type ProviderConfig struct {
	// Endpoint is the full URL of the interest-over-time endpoint.
	Endpoint string `yaml:"endpoint"`

	// Timeout bounds a single provider request.
	Timeout time.Duration `yaml:"timeout"`

	// Auth configures how requests authenticate to the provider.
	Auth AuthConfig `yaml:"auth"`
}

// AuthConfig specifies the authentication mode for the provider.
type AuthConfig struct {
	// Mode is one of: apikey | bearer | none.
	Mode string `yaml:"mode"`

	// Header is the HTTP header the API key is sent in (apikey mode).
	Header string `yaml:"header"`

	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`

	// TokenEnv is the name of the environment variable that holds the token.
	TokenEnv string `yaml:"token_env"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// Token returns the bearer token value resolved from the environment.
func (a AuthConfig) Token() string {
	if a.TokenEnv == "" {
		return ""
	}
	return os.Getenv(a.TokenEnv)
}

// MirrorConfig configures the optional object-store copy of the artifact.
// The mirror is disabled when Endpoint is empty.
type MirrorConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Bucket       string `yaml:"bucket"`
	Key          string `yaml:"key"`
	// Region is the S3 region; empty lets the client discover it.
	Region       string `yaml:"region"`
	UseSSL       bool   `yaml:"use_ssl"`
	AccessKeyEnv string `yaml:"access_key_env"`
	SecretKeyEnv string `yaml:"secret_key_env"`
}

// Enabled reports whether a mirror endpoint is configured.
func (m MirrorConfig) Enabled() bool { return m.Endpoint != "" }

// AccessKey returns the access key resolved from the environment.
func (m MirrorConfig) AccessKey() string { return lookupEnv(m.AccessKeyEnv) }

// SecretKey returns the secret key resolved from the environment.
func (m MirrorConfig) SecretKey() string { return lookupEnv(m.SecretKeyEnv) }

// NotifyConfig holds the per-cycle report delivery targets.
type NotifyConfig struct {
	Webhooks []WebhookConfig `yaml:"webhooks"`
	AMQP     AMQPConfig      `yaml:"amqp"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable holding the webhook URL.
	URLEnv string `yaml:"url_env"`

	// OnlyFailures suppresses delivery of successful cycles.
	OnlyFailures bool `yaml:"only_failures"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string { return lookupEnv(w.URLEnv) }

// AMQPConfig configures report publishing to a RabbitMQ queue.
// Disabled when URLEnv is empty.
type AMQPConfig struct {
	URLEnv string `yaml:"url_env"`
	Queue  string `yaml:"queue"`
}

// URL returns the broker URL resolved from the environment.
func (a AMQPConfig) URL() string { return lookupEnv(a.URLEnv) }

// MetricsConfig controls how cycle metrics are exposed.
type MetricsConfig struct {
	// ListenAddr serves /metrics in recurring mode when non-empty (e.g. ":9108").
	ListenAddr string `yaml:"listen_addr"`

	// TextfilePath writes the registry in text exposition format after every
	// cycle when non-empty, for node_exporter's textfile collector.
	TextfilePath string `yaml:"textfile_path"`
}

// Path returns the config file path from EnvConfigPath, or DefaultConfigPath.
func Path() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultConfigPath
}

// Load reads and parses the YAML config file at path.
// A missing file is not an error: the compiled-in defaults are returned.
// Missing optional fields are filled with defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Config file is optional.
	case err != nil:
		return nil, fmt.Errorf("config: read file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	applyEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	kw := make([]string, len(DefaultKeywords))
	copy(kw, DefaultKeywords)
	return &Config{
		Keywords:     kw,
		Region:       DefaultRegion,
		Timeframe:    DefaultTimeframe,
		OutputPath:   DefaultOutputPath,
		TopN:         DefaultTopN,
		BatchSize:    DefaultBatchSize,
		MaxAttempts:  DefaultMaxAttempts,
		PollInterval: DefaultPollInterval,
		Provider: ProviderConfig{
			Timeout: DefaultProviderTimeout,
		},
		Mirror: MirrorConfig{
			Key: DefaultMirrorKey,
		},
		Notify: NotifyConfig{
			AMQP: AMQPConfig{Queue: DefaultAMQPQueue},
		},
	}
}

// applyEnv fills the provider endpoint from TRENDRANK_PROVIDER_URL when the
// file leaves it empty, so the binary can run without any config file.
func applyEnv(cfg *Config) {
	if cfg.Provider.Endpoint == "" {
		cfg.Provider.Endpoint = os.Getenv("TRENDRANK_PROVIDER_URL")
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if len(cfg.Keywords) == 0 {
		return fmt.Errorf("keywords must not be empty")
	}
	seen := make(map[string]struct{}, len(cfg.Keywords))
	for i, kw := range cfg.Keywords {
		if kw == "" {
			return fmt.Errorf("keywords[%d]: empty keyword", i)
		}
		if _, dup := seen[kw]; dup {
			return fmt.Errorf("keywords[%d]: duplicate keyword %q", i, kw)
		}
		seen[kw] = struct{}{}
	}
	if cfg.OutputPath == "" {
		return fmt.Errorf("output_path is required")
	}
	if cfg.TopN <= 0 {
		return fmt.Errorf("top_n must be positive")
	}
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive")
	}
	if cfg.MaxAttempts <= 0 {
		return fmt.Errorf("max_attempts must be positive")
	}
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if cfg.Provider.Endpoint == "" {
		return fmt.Errorf("provider.endpoint is required (or set TRENDRANK_PROVIDER_URL)")
	}
	if cfg.Provider.Timeout <= 0 {
		return fmt.Errorf("provider.timeout must be positive")
	}
	switch cfg.Provider.Auth.Mode {
	case "apikey":
		if cfg.Provider.Auth.Header == "" {
			return fmt.Errorf("provider.auth.header is required for apikey mode")
		}
	case "bearer", "none", "":
	default:
		return fmt.Errorf("provider.auth: unknown mode %q", cfg.Provider.Auth.Mode)
	}
	if cfg.Mirror.Enabled() && cfg.Mirror.Bucket == "" {
		return fmt.Errorf("mirror.bucket is required when mirror.endpoint is set")
	}
	for i, wh := range cfg.Notify.Webhooks {
		switch wh.Type {
		case "slack", "http":
		default:
			return fmt.Errorf("notify.webhooks[%d]: unknown type %q", i, wh.Type)
		}
	}
	return nil
}

func lookupEnv(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}
