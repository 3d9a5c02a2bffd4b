package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when neither an explicit path nor CONFIG_PATH is given.
const DefaultPath = "./config/config.yaml"

// Config represents the application configuration
type Config struct {
	// Connect is the loosely-typed sender/template/limits block. It is
	// normalized by NewRunConfig.
	Connect   map[string]interface{} `yaml:"connect"`
	Browser   BrowserConfig          `yaml:"browser"`
	Search    SearchConfig           `yaml:"search"`
	Session   SessionConfig          `yaml:"session"`
	Panel     PanelConfig            `yaml:"panel"`
	Selectors Selectors              `yaml:"selectors"`
	Patterns  Patterns               `yaml:"patterns"`
	Database  DatabaseConfig         `yaml:"database"`
	Logging   LoggingConfig          `yaml:"logging"`
}

// BrowserConfig controls how Chromium is launched or attached to
type BrowserConfig struct {
	Headless    bool   `yaml:"headless"`
	Bin         string `yaml:"bin"`
	ControlURL  string `yaml:"control_url"`
	UserDataDir string `yaml:"user_data_dir"`
	Humanize    bool   `yaml:"humanize"`
}

// SearchConfig selects the results page the run starts from
type SearchConfig struct {
	URL      string   `yaml:"url"`
	Keywords []string `yaml:"keywords"`
	GeoURN   string   `yaml:"geo_urn"`
}

// SessionConfig contains cookie persistence settings
type SessionConfig struct {
	Dir                 string `yaml:"dir"`
	LoginTimeoutSeconds int    `yaml:"login_timeout_seconds"`
}

// PanelConfig holds the initial control-panel inputs
type PanelConfig struct {
	AutoStart bool `yaml:"auto_start"`
	Premium   bool `yaml:"premium"`
	// TestMode forces test mode on; otherwise the connect block's
	// TEST_MODE.ENABLED decides
	TestMode bool `yaml:"test_mode"`
	Limit    int  `yaml:"limit"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level    string `yaml:"level"`
	ToFile   bool   `yaml:"to_file"`
	FilePath string `yaml:"file_path"`
}

// Load loads configuration from a YAML file and environment variables.
// An empty path falls back to CONFIG_PATH, then DefaultPath.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse expands ${VAR} references, decodes the YAML document, fills defaults
// and validates the result.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.ToFile && c.Logging.FilePath == "" {
		c.Logging.FilePath = "./logs/connect.log"
	}
	if c.Session.Dir == "" {
		c.Session.Dir = "./session"
	}
	if c.Session.LoginTimeoutSeconds <= 0 {
		c.Session.LoginTimeoutSeconds = 300
	}
	c.Selectors = c.Selectors.withDefaults()
	c.Patterns = c.Patterns.withDefaults()
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := c.Run(); err != nil {
		return err
	}

	if c.Panel.Limit < 0 || c.Panel.Limit > MaxPanelLimit {
		return fmt.Errorf("panel limit must be between 0 and %d", MaxPanelLimit)
	}

	if c.Browser.ControlURL != "" && c.Browser.UserDataDir != "" {
		return fmt.Errorf("browser control_url and user_data_dir are mutually exclusive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// Run normalizes the connect block into the immutable run configuration
func (c *Config) Run() (RunConfig, error) {
	return NewRunConfig(c.Connect)
}

// envPattern matches ${VAR} or ${VAR:default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := envPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}

		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return defaultValue
	})
}
