package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable the loader
// reads.
const EnvPrefix = "KAIKU_"

// ConfigPaths returns the standard search locations for a config file,
// in priority order.
func ConfigPaths() []string {
	paths := []string{"kaiku.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".kaiku", "config.yaml"))
	}
	return append(paths, "/etc/kaiku/config.yaml")
}

// Loader resolves configuration from defaults, an optional file, and
// environment variables, in that order.
type Loader struct {
	searchPaths []string
	configFile  string
}

// NewLoader creates a loader using the standard search paths.
func NewLoader() *Loader {
	return &Loader{searchPaths: ConfigPaths()}
}

// WithConfigFile pins the loader to a specific configuration file.
func (l *Loader) WithConfigFile(file string) *Loader {
	l.configFile = file
	return l
}

// WithSearchPaths overrides the search paths.
func (l *Loader) WithSearchPaths(paths []string) *Loader {
	l.searchPaths = paths
	return l
}

// Load resolves the effective configuration. A missing config file is
// not an error unless one was pinned with WithConfigFile.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	file := l.configFile
	if file == "" {
		file = l.findConfigFile()
	} else if _, err := os.Stat(file); os.IsNotExist(err) {
		return nil, NewConfigFileError("not_found", file,
			"specified config file does not exist",
			"check the file path or unset KAIKU_CONFIG")
	}
	if file != "" {
		if err := loadFile(file, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv resolves configuration from defaults and environment only,
// honoring KAIKU_CONFIG as a file pin. This is the path the runtime
// takes inside a traced process.
func FromEnv() (*Config, error) {
	l := NewLoader()
	if file := os.Getenv(EnvPrefix + "CONFIG"); file != "" {
		l = l.WithConfigFile(file)
	}
	return l.Load()
}

// findConfigFile returns the first existing search path, or "".
func (l *Loader) findConfigFile() string {
	if envFile := os.Getenv(EnvPrefix + "CONFIG"); envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			return envFile
		}
	}
	for _, path := range l.searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadFile parses path into cfg, selecting the format by extension.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return NewConfigFileError("read_error", path,
			fmt.Sprintf("failed to read config file: %v", err),
			"check file permissions").WithCause(err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".json":
		err = json.Unmarshal(data, cfg)
	default:
		// Try YAML first, then JSON.
		err = yaml.Unmarshal(data, cfg)
		if err != nil {
			err = json.Unmarshal(data, cfg)
		}
	}
	if err != nil {
		return NewConfigFileError("parse_error", path,
			fmt.Sprintf("failed to parse config: %v", err),
			"check the file syntax").WithCause(err)
	}
	return nil
}

// applyEnv overrides cfg fields from KAIKU_* environment variables.
func applyEnv(cfg *Config) error {
	mappings := map[string]func(string) error{
		"OUTPUT_PATH": func(val string) error {
			cfg.OutputPath = val
			return nil
		},
		"CONTEXT_STRATEGY": func(val string) error {
			cfg.ContextStrategy = val
			return nil
		},
		"GATE": func(val string) error {
			cfg.Gate = val
			return nil
		},
		"MAX_EVENTS": func(val string) error {
			n, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid event count: %v", err)
			}
			cfg.MaxEvents = n
			return nil
		},
		"SAVE_ON_EXIT": func(val string) error {
			cfg.SaveOnExit = parseBool(val)
			return nil
		},
		"DEBUG": func(val string) error {
			cfg.Debug = parseBool(val)
			return nil
		},
		"LOG_EVERY": func(val string) error {
			n, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid interval: %v", err)
			}
			cfg.LogEvery = n
			return nil
		},
	}

	for key, apply := range mappings {
		full := EnvPrefix + key
		if val := os.Getenv(full); val != "" {
			if err := apply(val); err != nil {
				return fmt.Errorf("environment variable %s: %w", full, err)
			}
		}
	}
	return nil
}

func parseBool(val string) bool {
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
