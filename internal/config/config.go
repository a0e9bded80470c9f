// Package config provides configuration loading for engramd.
//
// Values come from the YAML config file of the storage root, then from
// ENGRAMD_* environment variables, over the defaults returned by Default.
// The resulting Config is passed explicitly to every component that needs it.
package config

import (
	"time"

	"github.com/fyrsmithlabs/engramd/internal/engram"
	"github.com/fyrsmithlabs/engramd/internal/secrets"
)

// CurrentVersion is the config schema version written by init.
const CurrentVersion = 2

// Config holds the complete engramd configuration.
type Config struct {
	Version       int                 `koanf:"version" validate:"gte=1"`
	Engrams       EngramsConfig       `koanf:"engrams"`
	Packs         PacksConfig         `koanf:"packs"`
	Search        SearchConfig        `koanf:"search"`
	Hints         HintsConfig         `koanf:"hints"`
	Storage       StorageConfig       `koanf:"storage"`
	Server        ServerConfig        `koanf:"server"`
	Observability ObservabilityConfig `koanf:"observability"`
	Logging       LoggingConfig       `koanf:"logging"`
	Secrets       SecretsConfig       `koanf:"secrets"`
}

// EngramsConfig holds lifecycle and injection settings.
type EngramsConfig struct {
	AutoPromote  bool    `koanf:"auto_promote"`
	MaxTokens    int     `koanf:"max_tokens" validate:"gte=40"`
	MinRelevance float64 `koanf:"min_relevance" validate:"gte=0"`
}

// RegistryEntry describes a pack offered by the registry.
type RegistryEntry struct {
	ID          string   `koanf:"id" json:"id" validate:"required"`
	Name        string   `koanf:"name" json:"name"`
	Description string   `koanf:"description" json:"description"`
	Version     string   `koanf:"version" json:"version"`
	Source      string   `koanf:"source" json:"source"`
	Tags        []string `koanf:"tags" json:"tags"`
	Creator     string   `koanf:"creator" json:"creator,omitempty"`
}

// PacksConfig holds pack trust and discovery settings.
type PacksConfig struct {
	TrustedPublishers []string        `koanf:"trusted_publishers"`
	RegistryPath      string          `koanf:"registry_path"`
	Registry          []RegistryEntry `koanf:"registry" validate:"dive"`
}

// SearchConfig holds journal and knowledge search settings.
type SearchConfig struct {
	MaxResults    int `koanf:"max_results" validate:"gte=1"`
	SnippetLength int `koanf:"snippet_length" validate:"gte=0"`
}

// HintsConfig controls next-step hints in tool output.
type HintsConfig struct {
	Enabled bool `koanf:"enabled"`
}

// StorageConfig selects the storage root. Empty values fall back to
// DATACORE_PATH, DATACORE_CORE_PATH and the home directory defaults.
type StorageConfig struct {
	Path     string `koanf:"path"`
	CorePath string `koanf:"core_path"`
}

// RateLimitConfig bounds HTTP API request rates.
type RateLimitConfig struct {
	RPS   float64 `koanf:"rps" validate:"gte=0"`
	Burst int     `koanf:"burst" validate:"gte=0"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Enabled         bool            `koanf:"enabled"`
	Port            int             `koanf:"http_port" validate:"min=1,max=65535"`
	ShutdownTimeout Duration        `koanf:"shutdown_timeout" validate:"gt=0"`
	RateLimit       RateLimitConfig `koanf:"rate_limit"`
}

// ObservabilityConfig holds OpenTelemetry configuration. Metrics are always
// exposed on /metrics when enabled; OTLP export additionally needs
// enable_telemetry and an endpoint.
type ObservabilityConfig struct {
	EnableMetrics   bool     `koanf:"enable_metrics"`
	EnableTelemetry bool     `koanf:"enable_telemetry"`
	ServiceName     string   `koanf:"service_name" validate:"required_if=EnableMetrics true"`
	OTLPEndpoint    string   `koanf:"otlp_endpoint" validate:"required_if=EnableTelemetry true"`
	OTLPProtocol    string   `koanf:"otlp_protocol" validate:"omitempty,oneof=grpc http/protobuf"`
	OTLPInsecure    bool     `koanf:"otlp_insecure"`
	ExportInterval  Duration `koanf:"export_interval"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// SecretsConfig controls redaction of exported pack text.
type SecretsConfig struct {
	Detector  bool     `koanf:"detector"`
	AllowList []string `koanf:"allow_list"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Engrams: EngramsConfig{
			AutoPromote:  false,
			MaxTokens:    engram.DefaultMaxTokens,
			MinRelevance: engram.DefaultMinRelevance,
		},
		Packs: PacksConfig{
			TrustedPublishers: []string{},
		},
		Search: SearchConfig{
			MaxResults:    20,
			SnippetLength: 500,
		},
		Hints: HintsConfig{Enabled: true},
		Server: ServerConfig{
			Port:            9191,
			ShutdownTimeout: Duration(10 * time.Second),
			RateLimit:       RateLimitConfig{RPS: 20, Burst: 40},
		},
		Observability: ObservabilityConfig{
			EnableMetrics:  true,
			ServiceName:    "engramd",
			OTLPEndpoint:   "localhost:4317",
			OTLPProtocol:   "grpc",
			OTLPInsecure:   true,
			ExportInterval: Duration(15 * time.Second),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// EngineConfig returns the settings consumed by the engram service.
func (c *Config) EngineConfig() engram.Config {
	return engram.Config{
		AutoPromote:  c.Engrams.AutoPromote,
		MaxTokens:    c.Engrams.MaxTokens,
		MinRelevance: c.Engrams.MinRelevance,
	}
}

// ScrubberConfig returns the secrets scrubber settings for pack export.
func (c *Config) ScrubberConfig() *secrets.Config {
	sc := secrets.DefaultConfig()
	sc.Detector = c.Secrets.Detector
	sc.AllowList = c.Secrets.AllowList
	return sc
}

// IsTrustedPublisher reports whether creator is in the trusted list.
func (c *Config) IsTrustedPublisher(creator string) bool {
	if creator == "" {
		return false
	}
	for _, p := range c.Packs.TrustedPublishers {
		if p == creator {
			return true
		}
	}
	return false
}
