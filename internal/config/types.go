package config

import (
	"time"

	"github.com/zhcheck/zhcheck/internal/engine"
)

// Config represents the main configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Engine    EngineConfig    `yaml:"engine" mapstructure:"engine"`
	Rules     RulesConfig     `yaml:"rules" mapstructure:"rules"`
	Model     ModelConfig     `yaml:"model" mapstructure:"model"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	History   HistoryConfig   `yaml:"history" mapstructure:"history"`
	Report    ReportConfig    `yaml:"report" mapstructure:"report"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	WebSocket WebSocketConfig `yaml:"websocket" mapstructure:"websocket"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// EngineConfig controls scanning and aggregation behavior.
type EngineConfig struct {
	// MaxTextRunes rejects oversized inputs at the API boundary.
	MaxTextRunes int `yaml:"max_text_runes" mapstructure:"max_text_runes"`
	// DefaultModes lists the detector kinds enabled when a request does
	// not select any. Empty means all kinds.
	DefaultModes []string               `yaml:"default_modes" mapstructure:"default_modes"`
	Aggregate    engine.AggregateConfig `yaml:"aggregate" mapstructure:"aggregate"`
}

// RulesConfig locates the rule documents.
type RulesConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
	// Watch enables hot reload of the rule directory.
	Watch bool `yaml:"watch" mapstructure:"watch"`
	// LexiconPath points at the word/tag dictionary for the tagger.
	LexiconPath string `yaml:"lexicon_path" mapstructure:"lexicon_path"`
}

// ModelConfig configures the spelling-correction model backend.
type ModelConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	ModelPath string        `yaml:"model_path" mapstructure:"model_path"`
	VocabPath string        `yaml:"vocab_path" mapstructure:"vocab_path"`
	MaxLength int           `yaml:"max_length" mapstructure:"max_length"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// CacheConfig configures the Redis scan-result cache.
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Addr     string        `yaml:"addr" mapstructure:"addr"`
	Password string        `yaml:"password" mapstructure:"password"`
	DB       int           `yaml:"db" mapstructure:"db"`
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// HistoryConfig configures the optional Postgres scan history store.
type HistoryConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int    `yaml:"max_conns" mapstructure:"max_conns"`
}

// ReportConfig configures artifact export.
type ReportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
}

// RateLimitConfig bounds per-client request rates.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" mapstructure:"enabled"`
	RPS     float64 `yaml:"rps" mapstructure:"rps"`
	Burst   int     `yaml:"burst" mapstructure:"burst"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	Path            string        `yaml:"path" mapstructure:"path"`
	MaxConnections  int           `yaml:"max_connections" mapstructure:"max_connections"`
	ReadBufferSize  int           `yaml:"read_buffer_size" mapstructure:"read_buffer_size"`
	WriteBufferSize int           `yaml:"write_buffer_size" mapstructure:"write_buffer_size"`
	PingInterval    time.Duration `yaml:"ping_interval" mapstructure:"ping_interval"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Engine: EngineConfig{
			MaxTextRunes: 50000,
			DefaultModes: nil,
			Aggregate: engine.AggregateConfig{
				AllowStacked:         false,
				KeepSameKindOverlaps: false,
			},
		},
		Rules: RulesConfig{
			Dir:         "rules",
			Watch:       true,
			LexiconPath: "rules/lexicon.txt",
		},
		Model: ModelConfig{
			Enabled:   false,
			ModelPath: "models/macbert4csc.onnx",
			VocabPath: "models/vocab.txt",
			MaxLength: 512,
			Timeout:   5 * time.Second,
		},
		Cache: CacheConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
			TTL:     10 * time.Minute,
		},
		History: HistoryConfig{
			Enabled:  false,
			MaxConns: 10,
		},
		Report: ReportConfig{
			Dir: "reports",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			RPS:     20,
			Burst:   40,
		},
		WebSocket: WebSocketConfig{
			Enabled:         true,
			Path:            "/ws",
			MaxConnections:  100,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingInterval:    54 * time.Second,
			WriteTimeout:    10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
	}
}
