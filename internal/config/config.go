package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Default values for configuration fields.
const (
	DefaultEngine     = "postgres"
	DefaultScriptsDir = "./upgrades"
	DefaultTableName  = "schema_changelog"
	DefaultAppEnv     = "local"
)

// Config holds the application configuration loaded from file, environment, and flags.
type Config struct {
	Engine      string
	DatabaseURL string
	ScriptsDir  string
	TableName   string
	AppEnv      string
}

// yamlConfig is the raw YAML file representation.
type yamlConfig struct {
	Engine      string `yaml:"engine"`
	DatabaseURL string `yaml:"database_url"`
	ScriptsDir  string `yaml:"scripts_dir"`
	TableName   string `yaml:"table_name"`
	AppEnv      string `yaml:"app_env"`
}

// envConfig mirrors Config as UPGRADER_* variables. Pointer fields stay
// nil for unset variables, so values loaded from file survive the merge.
type envConfig struct {
	Engine      *string `env:"UPGRADER_ENGINE"`
	DatabaseURL *string `env:"UPGRADER_DATABASE_URL"`
	ScriptsDir  *string `env:"UPGRADER_SCRIPTS_DIR"`
	TableName   *string `env:"UPGRADER_TABLE_NAME"`
	AppEnv      *string `env:"UPGRADER_APP_ENV"`
}

// New returns a Config populated with default values.
func New() *Config {
	return &Config{
		Engine:     DefaultEngine,
		ScriptsDir: DefaultScriptsDir,
		TableName:  DefaultTableName,
		AppEnv:     DefaultAppEnv,
	}
}

// Load reads a YAML configuration file and returns a Config.
// If allowMissing is true and the file does not exist, defaults are returned.
func Load(path string, allowMissing bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return New(), nil
		}

		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var raw yamlConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return fromYAML(&raw), nil
}

// fromYAML converts the raw YAML representation to a Config with defaults applied.
func fromYAML(raw *yamlConfig) *Config {
	cfg := New()

	if raw.Engine != "" {
		cfg.Engine = raw.Engine
	}

	if raw.DatabaseURL != "" {
		cfg.DatabaseURL = raw.DatabaseURL
	}

	if raw.ScriptsDir != "" {
		cfg.ScriptsDir = raw.ScriptsDir
	}

	if raw.TableName != "" {
		cfg.TableName = raw.TableName
	}

	if raw.AppEnv != "" {
		cfg.AppEnv = raw.AppEnv
	}

	return cfg
}

// MergeEnv overrides config fields from UPGRADER_* environment variables.
func MergeEnv(cfg *Config) error {
	var overrides envConfig
	if err := env.Parse(&overrides); err != nil {
		return fmt.Errorf("parsing environment config: %w", err)
	}

	if overrides.Engine != nil {
		cfg.Engine = *overrides.Engine
	}

	if overrides.DatabaseURL != nil {
		cfg.DatabaseURL = *overrides.DatabaseURL
	}

	if overrides.ScriptsDir != nil {
		cfg.ScriptsDir = *overrides.ScriptsDir
	}

	if overrides.TableName != nil {
		cfg.TableName = *overrides.TableName
	}

	if overrides.AppEnv != nil {
		cfg.AppEnv = *overrides.AppEnv
	}

	return nil
}
