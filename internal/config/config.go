// Package config loads schoolsync settings.
//
// Sources in increasing priority: built-in defaults, YAML file,
// SCHOOLSYNC_* environment variables, command line flags.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides.
// SCHOOLSYNC_STORE_STATE_PATH -> store.state_path
const EnvPrefix = "SCHOOLSYNC_"

// Config holds all schoolsync settings.
type Config struct {
	Store   StoreConfig   `koanf:"store"`
	Log     LogConfig     `koanf:"log"`
	Sync    SyncConfig    `koanf:"sync"`
	Metrics MetricsConfig `koanf:"metrics"`
}

type StoreConfig struct {
	// Path файл SQLite с данными реплики
	Path string `koanf:"path"`
	// StatePath файл bbolt с идентификатором реплики и журналом импорта.
	// Пусто - рядом с Path.
	StatePath string `koanf:"state_path"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type SyncConfig struct {
	// Actor имя оператора в журнале импорта
	Actor string `koanf:"actor"`
}

type MetricsConfig struct {
	// Textfile путь для node-exporter textfile collector, пусто - не писать
	Textfile string `koanf:"textfile"`
}

// Defaults returns the built-in settings.
func Defaults() map[string]any {
	return map[string]any{
		"store.path":       "schoolsync.db",
		"store.state_path": "",
		"log.level":        "info",
		"log.format":       "text",
		"sync.actor":       "",
		"metrics.textfile": "",
	}
}

// mapProvider loads a flat map of dotted keys.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("config: map provider does not support ReadBytes")
}

func (m mapProvider) Read() (map[string]any, error) {
	return m, nil
}

// Load merges defaults, the YAML file at path (optional), the environment
// and flag overrides. Overrides are dotted keys such as "store.path".
func Load(path string, overrides map[string]any) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(mapProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	if len(overrides) > 0 {
		if err := k.Load(mapProvider(overrides), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps SCHOOLSYNC_STORE_STATE_PATH to store.state_path:
// the first underscore separates the section, the rest belong to the key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// Validate checks the settings and fills derived values.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return errors.New("config: store.path is required")
	}
	if c.Store.StatePath == "" {
		c.Store.StatePath = DefaultStatePath(c.Store.Path)
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config: unsupported log.format %q", c.Log.Format)
	}
	return nil
}

// DefaultStatePath returns the state file used for the store at path:
// school.db -> school.state.db
func DefaultStatePath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".state" + ext
}
