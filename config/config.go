// Package config defines the daemon configuration: the listen address
// and the apps provisioned at startup. Configuration is created from a
// YAML file and completed by environment-variable overrides.
package config

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultListenAddr is used when neither the file nor the environment
// names one.
const DefaultListenAddr = ":8088"

// App describes one identity provisioned at startup.
type App struct {
	// Name is the app identifier, conventionally the bundle ID.
	Name string `yaml:"name"`

	// Environment is "production" or "sandbox".
	Environment string `yaml:"environment"`

	// Certificate is either a path to a PEM file or the PEM contents
	// themselves; the provisioning surface sniffs which.
	Certificate string `yaml:"certificate"`

	// TimeoutSeconds bounds connection establishment and feedback
	// drains for this app. Zero applies the gateway default.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Config is the authoritative daemon configuration.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	Apps       []App  `yaml:"apps"`
}

// NewConfigFromFile reads and parses the YAML configuration at path.
func NewConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}
	return &cfg, nil
}

// UpdateConfigWithEnvOverrides completes the base configuration by
// applying environment variables and final validation.
func UpdateConfigWithEnvOverrides(cfg *Config, logger logrus.FieldLogger) (*Config, error) {
	if val := os.Getenv("PORT"); val != "" {
		logger.WithField("key", "PORT").Debug("overriding config value from environment")
		cfg.ListenAddr = ":" + val
	}
	if val := os.Getenv("LISTEN_ADDR"); val != "" {
		logger.WithField("key", "LISTEN_ADDR").Debug("overriding config value from environment")
		cfg.ListenAddr = val
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}

	for i, app := range cfg.Apps {
		if app.Name == "" {
			return nil, fmt.Errorf("apps[%d]: name is required", i)
		}
		if app.Environment != "production" && app.Environment != "sandbox" {
			return nil, fmt.Errorf("apps[%d] %q: environment must be %q or %q, got %q",
				i, app.Name, "production", "sandbox", app.Environment)
		}
		if app.Certificate == "" {
			return nil, fmt.Errorf("apps[%d] %q: certificate is required", i, app.Name)
		}
		if app.TimeoutSeconds < 0 {
			return nil, fmt.Errorf("apps[%d] %q: timeout_seconds must not be negative", i, app.Name)
		}
	}

	return cfg, nil
}
