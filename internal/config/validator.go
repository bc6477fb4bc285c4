package config

import (
	"fmt"
	"strings"
)

// Validator validates configuration values
type Validator struct {
	knownTools []string
}

// NewValidator creates a new validator. knownTools restricts the names the
// tool policy may mention; an empty list accepts any name.
func NewValidator(knownTools ...string) *Validator {
	return &Validator{knownTools: knownTools}
}

// ValidatePort validates a TCP port
func (v *Validator) ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateToolName validates a name used in the tool policy
func (v *Validator) ValidateToolName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if name == "*" || len(v.knownTools) == 0 {
		return nil
	}
	for _, known := range v.knownTools {
		if name == known {
			return nil
		}
	}
	return fmt.Errorf("unknown tool: %s (known tools: %s)", name, strings.Join(v.knownTools, ", "))
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if err := v.ValidatePort(cfg.Server.Port); err != nil {
		errors = append(errors, fmt.Errorf("server: %w", err))
	}
	if cfg.Server.RateLimitPerMinute < 0 {
		errors = append(errors, fmt.Errorf("server.rate_limit_per_minute must be >= 0"))
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		errors = append(errors, fmt.Errorf("server.max_body_bytes must be positive"))
	}
	if cfg.Server.WebSocketMessagesPerSecond < 0 {
		errors = append(errors, fmt.Errorf("server.websocket_messages_per_second must be >= 0"))
	}
	if cfg.Server.ShutdownTimeout < 0 {
		errors = append(errors, fmt.Errorf("server.shutdown_timeout must be >= 0"))
	}

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}

	for _, name := range cfg.Tools.Allow {
		if err := v.ValidateToolName(name); err != nil {
			errors = append(errors, fmt.Errorf("tools.allow: %w", err))
		}
	}
	for _, name := range cfg.Tools.Deny {
		if err := v.ValidateToolName(name); err != nil {
			errors = append(errors, fmt.Errorf("tools.deny: %w", err))
		}
	}

	if cfg.Tracing.Enabled && strings.TrimSpace(cfg.Tracing.ServiceName) == "" {
		errors = append(errors, fmt.Errorf("tracing.service_name is required when tracing is enabled"))
	}

	return errors
}
