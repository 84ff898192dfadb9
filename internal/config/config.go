package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration. It is loaded once at
// startup and passed explicitly into constructors; nothing reads ambient
// state at resolution time.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Corpus    CorpusConfig    `yaml:"corpus" mapstructure:"corpus"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run-history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings for the text interpreter.
type AnthropicConfig struct {
	Key               string        `yaml:"key" mapstructure:"key"`
	Model             string        `yaml:"model" mapstructure:"model"`
	MaxTokens         int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	RequestTimeout    time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
}

// Weights holds the per-signal weights the confidence aggregator combines.
// They are heuristic placeholders until calibrated against labeled fills,
// which is why they are configuration rather than constants.
type Weights struct {
	FormatValidity   float64 `yaml:"format_validity" mapstructure:"format_validity"`
	ContextRelevance float64 `yaml:"context_relevance" mapstructure:"context_relevance"`
	Specificity      float64 `yaml:"specificity" mapstructure:"specificity"`
	// DefaultSignal weighs signals outside the named set.
	DefaultSignal float64 `yaml:"default_signal" mapstructure:"default_signal"`
}

// DefaultWeights returns the built-in signal weights, matching the viper
// defaults in Load.
func DefaultWeights() Weights {
	return Weights{
		FormatValidity:   0.4,
		ContextRelevance: 0.3,
		Specificity:      0.3,
		DefaultSignal:    0.2,
	}
}

// PipelineConfig configures field resolution behavior.
type PipelineConfig struct {
	MaxConcurrentFields int           `yaml:"max_concurrent_fields" mapstructure:"max_concurrent_fields"`
	FieldTimeout        time.Duration `yaml:"field_timeout" mapstructure:"field_timeout"`
	AcceptanceThreshold float64       `yaml:"acceptance_threshold" mapstructure:"acceptance_threshold"`
	ConfidenceFloor     float64       `yaml:"confidence_floor" mapstructure:"confidence_floor"`
	Weights             Weights       `yaml:"weights" mapstructure:"weights"`
	FallbackLocation    string        `yaml:"fallback_location" mapstructure:"fallback_location"`
	// InterpreterFallback enables the LLM pass for text fields the pattern
	// matcher cannot resolve.
	InterpreterFallback bool `yaml:"interpreter_fallback" mapstructure:"interpreter_fallback"`
	// MaxAlternatives caps the runner-up candidates kept in diagnostics.
	MaxAlternatives int `yaml:"max_alternatives" mapstructure:"max_alternatives"`
}

// FTPConfig configures the scan-inbox fetcher. An empty Addr disables it.
type FTPConfig struct {
	Addr     string        `yaml:"addr" mapstructure:"addr"`
	User     string        `yaml:"user" mapstructure:"user"`
	Password string        `yaml:"password" mapstructure:"password"`
	Dir      string        `yaml:"dir" mapstructure:"dir"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// CorpusConfig configures document loading and text extraction.
type CorpusConfig struct {
	PdfToTextPath string        `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	CacheTTL      time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	FTP           FTPConfig     `yaml:"ftp" mapstructure:"ftp"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
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
	v.SetEnvPrefix("FORMFILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "formfill.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("anthropic.requests_per_second", 2.0)
	v.SetDefault("anthropic.burst", 4)
	v.SetDefault("anthropic.request_timeout", 60*time.Second)
	v.SetDefault("pipeline.max_concurrent_fields", 8)
	v.SetDefault("pipeline.field_timeout", 45*time.Second)
	v.SetDefault("pipeline.acceptance_threshold", 0.6)
	v.SetDefault("pipeline.confidence_floor", 0.6)
	v.SetDefault("pipeline.weights.format_validity", 0.4)
	v.SetDefault("pipeline.weights.context_relevance", 0.3)
	v.SetDefault("pipeline.weights.specificity", 0.3)
	v.SetDefault("pipeline.weights.default_signal", 0.2)
	v.SetDefault("pipeline.fallback_location", "Berlin")
	v.SetDefault("pipeline.interpreter_fallback", true)
	v.SetDefault("pipeline.max_alternatives", 3)
	v.SetDefault("corpus.pdftotext_path", "pdftotext")
	v.SetDefault("corpus.cache_ttl", 168*time.Hour)
	v.SetDefault("corpus.ftp.dir", "/inbox")
	v.SetDefault("corpus.ftp.timeout", 30*time.Second)

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

// Validate checks the configuration for a given command mode ("fill",
// "dry", "serve"). Dry mode runs against the stub interpreter and needs no
// API key.
func (c *Config) Validate(mode string) error {
	var missing []string

	requireKey := false
	switch mode {
	case "fill", "serve":
		requireKey = true
	case "dry":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if requireKey && c.Anthropic.Key == "" {
		missing = append(missing, "anthropic.key is required")
	}
	if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
		missing = append(missing, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		missing = append(missing, "store.database_url is required")
	}
	if mode == "serve" && c.Server.Addr == "" {
		missing = append(missing, "server.addr is required")
	}
	if c.Pipeline.MaxConcurrentFields < 1 || c.Pipeline.MaxConcurrentFields > 64 {
		missing = append(missing, "pipeline.max_concurrent_fields must be between 1 and 64")
	}
	if c.Pipeline.AcceptanceThreshold < 0 || c.Pipeline.AcceptanceThreshold > 1 {
		missing = append(missing, "pipeline.acceptance_threshold must be in [0,1]")
	}
	if c.Pipeline.ConfidenceFloor < 0 || c.Pipeline.ConfidenceFloor >= 1 {
		missing = append(missing, "pipeline.confidence_floor must be in [0,1)")
	}
	w := c.Pipeline.Weights
	if w.FormatValidity < 0 || w.ContextRelevance < 0 || w.Specificity < 0 || w.DefaultSignal < 0 {
		missing = append(missing, "pipeline.weights values must be >= 0")
	}
	if w.FormatValidity+w.ContextRelevance+w.Specificity == 0 {
		missing = append(missing, "pipeline.weights must not all be zero")
	}

	if len(missing) > 0 {
		return eris.Errorf("config: %s", strings.Join(missing, "; "))
	}
	return nil
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
