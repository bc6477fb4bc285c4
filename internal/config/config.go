package config

import (
	"encoding/json"
	"fmt"
)

// Config represents the main toolbot configuration
type Config struct {
	// HTTP and WebSocket gateway
	Server ServerConfig `json:"server" yaml:"server" mapstructure:"server"`

	// Logging
	Logging LoggingConfig `json:"logging" yaml:"logging" mapstructure:"logging"`

	// Tool catalog policy
	Tools ToolsConfig `json:"tools" yaml:"tools" mapstructure:"tools"`

	// Reply composition
	Composer ComposerConfig `json:"composer" yaml:"composer" mapstructure:"composer"`

	// OpenTelemetry
	Tracing TracingConfig `json:"tracing" yaml:"tracing" mapstructure:"tracing"`
}

// ServerConfig holds gateway server configuration
type ServerConfig struct {
	Host                       string  `json:"host" yaml:"host" mapstructure:"host"`
	Port                       int     `json:"port" yaml:"port" mapstructure:"port"`
	RateLimitPerMinute         int     `json:"rate_limit_per_minute" yaml:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute"`
	MaxBodyBytes               int64   `json:"max_body_bytes" yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	WebSocketMessagesPerSecond float64 `json:"websocket_messages_per_second" yaml:"websocket_messages_per_second" mapstructure:"websocket_messages_per_second"`
	ShutdownTimeout            int     `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"` // seconds
	// TrustProxyHeaders takes client IPs from X-Forwarded-For/X-Real-IP.
	// Only enable behind a reverse proxy that sets them.
	TrustProxyHeaders bool `json:"trust_proxy_headers" yaml:"trust_proxy_headers" mapstructure:"trust_proxy_headers"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" yaml:"level" mapstructure:"level"`
	File      string `json:"file" yaml:"file" mapstructure:"file"`
	Console   bool   `json:"console" yaml:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" yaml:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" yaml:"redaction" mapstructure:"redaction"`
}

// ToolsConfig holds tool policy and tool behaviour settings
type ToolsConfig struct {
	Allow      []string `json:"allow" yaml:"allow" mapstructure:"allow"`
	Deny       []string `json:"deny" yaml:"deny" mapstructure:"deny"`
	RandomSeed int64    `json:"random_seed" yaml:"random_seed" mapstructure:"random_seed"` // 0 seeds from the clock
}

// ComposerConfig holds reply composition settings
type ComposerConfig struct {
	AcknowledgeFailures bool `json:"acknowledge_failures" yaml:"acknowledge_failures" mapstructure:"acknowledge_failures"`
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	ServiceName string `json:"service_name" yaml:"service_name" mapstructure:"service_name"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                       "0.0.0.0",
			Port:                       3000,
			RateLimitPerMinute:         120,
			MaxBodyBytes:               1 << 20,
			WebSocketMessagesPerSecond: 5,
			ShutdownTimeout:            10,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Console:   true,
			Pretty:    true,
			Redaction: true,
		},
		Tools: ToolsConfig{
			Allow: []string{"*"},
			Deny:  []string{},
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "toolbot",
		},
	}
}

// Address returns the host:port the gateway listens on
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	errs := NewValidator().ValidateConfig(c)
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration: %w", errs[0])
}
