// Package config loads agent configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/SoarGroup/Soar-sub034/engine"
	"github.com/SoarGroup/Soar-sub034/logging"
	"github.com/SoarGroup/Soar-sub034/rhs"
	"github.com/SoarGroup/Soar-sub034/support"
)

// ErrInvalidPolicy is returned when a policy name in the file is not
// recognised.
var ErrInvalidPolicy = errors.New("invalid policy")

// Config is the on-disk agent configuration.
type Config struct {
	AgentID string `yaml:"agent_id"`

	// SupportPolicy is one of structural-a, structural-b, declared,
	// cross-check.
	SupportPolicy string `yaml:"support_policy"`

	// AttributePreferences is one of reject, warn, allow.
	AttributePreferences string `yaml:"attribute_preferences"`

	RemoveFullyOSupported bool   `yaml:"remove_fully_o_supported"`
	Learning              bool   `yaml:"learning"`
	MaxChunks             int    `yaml:"max_chunks"`
	ChoiceAttribute       string `yaml:"choice_attribute"`

	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level     string `yaml:"level"`  // debug, info, warn, error
	Format    string `yaml:"format"` // json, text
	AddSource bool   `yaml:"add_source"`

	// Fields are attached to every log entry.
	Fields map[string]string `yaml:"fields"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		SupportPolicy:        support.StructuralA.String(),
		AttributePreferences: rhs.AttributePreferencesReject.String(),
		ChoiceAttribute:      engine.DefaultConfig.ChoiceAttribute,
		Logging:              LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load reads and validates the file at path. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			cfg.applyEnvOverrides()
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults, applies environment overrides and
// validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets SOAR_SUPPORT_POLICY, SOAR_ATTRIBUTE_PREFERENCES
// and SOAR_LOG_LEVEL override the file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SOAR_SUPPORT_POLICY"); v != "" {
		c.SupportPolicy = v
	}
	if v := os.Getenv("SOAR_ATTRIBUTE_PREFERENCES"); v != "" {
		c.AttributePreferences = v
	}
	if v := os.Getenv("SOAR_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks every enumerated field and the numeric limits.
func (c *Config) Validate() error {
	if _, err := support.ParsePolicy(c.SupportPolicy); err != nil {
		return fmt.Errorf("%w: support_policy: %v", ErrInvalidPolicy, err)
	}
	if _, err := rhs.ParseAttributePreferenceMode(c.AttributePreferences); err != nil {
		return fmt.Errorf("%w: attribute_preferences: %v", ErrInvalidPolicy, err)
	}
	if c.MaxChunks < 0 {
		return fmt.Errorf("max_chunks must be >= 0, got %d", c.MaxChunks)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}
	return nil
}

// EngineConfig converts the file into the engine's policy switches.
func (c *Config) EngineConfig() (engine.Config, error) {
	policy, err := support.ParsePolicy(c.SupportPolicy)
	if err != nil {
		return engine.Config{}, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	mode, err := rhs.ParseAttributePreferenceMode(c.AttributePreferences)
	if err != nil {
		return engine.Config{}, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	choice := c.ChoiceAttribute
	if choice == "" {
		choice = engine.DefaultConfig.ChoiceAttribute
	}
	return engine.Config{
		SupportPolicy:         policy,
		AttributePreferences:  mode,
		RemoveFullyOSupported: c.RemoveFullyOSupported,
		Learning:              c.Learning,
		MaxChunks:             c.MaxChunks,
		ChoiceAttribute:       choice,
	}, nil
}

// Logger builds the logger described by the logging section.
func (c *Config) Logger() *logging.AgentLogger {
	return c.newLogger(os.Stderr)
}

func (c *Config) newLogger(out io.Writer) *logging.AgentLogger {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		level = logging.LogLevelInfo
	}
	l := logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    c.Logging.Format,
		Output:    out,
		AddSource: c.Logging.AddSource,
		Component: "engine",
		AgentID:   c.AgentID,
	})
	for k, v := range c.Logging.Fields {
		l = l.WithContext(k, v)
	}
	return l
}

// Options returns an engine option applying the file: policies, agent id
// and logger.
func (c *Config) Options() (func(o *engine.Options), error) {
	ec, err := c.EngineConfig()
	if err != nil {
		return nil, err
	}
	logger := c.Logger()
	return func(o *engine.Options) {
		o.Config = ec
		o.AgentID = c.AgentID
		o.Logger = logger
	}, nil
}
