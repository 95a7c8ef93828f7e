package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "LEARNLOOP_"

// Store backends.
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

type Config struct {
	Paths    Paths    `yaml:"paths"`
	Store    Store    `yaml:"store"`
	Metrics  Metrics  `yaml:"metrics"`
	Server   Server   `yaml:"server"`
	Schedule Schedule `yaml:"schedule"`
	Logging  Logging  `yaml:"logging"`
}

type Paths struct {
	Activities string `yaml:"activities"`
	Learnings  string `yaml:"learnings"`
}

type Store struct {
	Backend    string `yaml:"backend"`
	SQLitePath string `yaml:"sqlite_path"`
}

type Metrics struct {
	Textfile string `yaml:"textfile"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Schedule struct {
	Cron string `yaml:"cron"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for learnloop.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "learnloop")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/learnloop/config.yaml > ./config.yaml.
// It returns "" without error when nothing is found, so the built-in
// defaults apply.
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", nil
}

// Load reads and parses a config YAML file, then applies environment
// overrides. An empty path loads the defaults only.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Paths: Paths{
			Activities: "sales/crm/crm_outreach_activities.csv",
			Learnings:  "sales/learnings/learnings.csv",
		},
		Store: Store{
			Backend:    BackendCSV,
			SQLitePath: "sales/learnings/learnings.db",
		},
		Server:   Server{Port: 8000},
		Schedule: Schedule{Cron: "0 9 * * 1"},
		Logging:  Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// applyEnv layers LEARNLOOP_* variables over cfg. A double underscore
// separates sections: LEARNLOOP_STORE__BACKEND -> store.backend.
func applyEnv(cfg *Config) error {
	k := koanf.New(".")
	provider := env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.TrimPrefix(key, EnvPrefix)
		key = strings.ReplaceAll(strings.ToLower(key), "__", ".")
		return key, value
	})
	if err := k.Load(provider, nil); err != nil {
		return fmt.Errorf("loading environment: %w", err)
	}
	if len(k.Keys()) == 0 {
		return nil
	}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return fmt.Errorf("applying environment: %w", err)
	}
	return nil
}

// Validate checks values that would otherwise fail late in a run.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendCSV, BackendSQLite:
	default:
		return fmt.Errorf("unknown store backend %q (want %s or %s)", c.Store.Backend, BackendCSV, BackendSQLite)
	}
	if c.Paths.Activities == "" {
		return fmt.Errorf("paths.activities must not be empty")
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
