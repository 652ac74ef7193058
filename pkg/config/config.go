/*
Package config manages TOML (or YAML) config for wordfst.
*/
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bastiangx/wordfst/internal/utils"
	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

const appName = "wordfst"

// Config holds the entire config structure
type Config struct {
	Index  IndexConfig  `toml:"index" yaml:"index"`
	Search SearchConfig `toml:"search" yaml:"search"`
	Server ServerConfig `toml:"server" yaml:"server"`
	CLI    CliConfig    `toml:"cli" yaml:"cli"`
}

// IndexConfig says where the word list and the compiled index live.
type IndexConfig struct {
	Source     string `toml:"source" yaml:"source"`
	Path       string `toml:"path" yaml:"path"`
	SortSource bool   `toml:"sort_source" yaml:"sort_source"`
	Verify     bool   `toml:"verify" yaml:"verify"`
}

// SearchConfig has query options.
type SearchConfig struct {
	Limit       int `toml:"limit" yaml:"limit"`
	MaxLimit    int `toml:"max_limit" yaml:"max_limit"`
	MaxDistance int `toml:"max_distance" yaml:"max_distance"`
	CacheSize   int `toml:"cache_size" yaml:"cache_size"`
	TimeoutMS   int `toml:"timeout_ms" yaml:"timeout_ms"`
}

// ServerConfig has serve mode options.
type ServerConfig struct {
	MetricsAddr string `toml:"metrics_addr" yaml:"metrics_addr"`
	Watch       bool   `toml:"watch" yaml:"watch"`
	DebounceMS  int    `toml:"debounce_ms" yaml:"debounce_ms"`
}

// CliConfig holds prompt loop options.
type CliConfig struct {
	ExitSentinel string `toml:"exit_sentinel" yaml:"exit_sentinel"`
}

// Timeout returns the per-search bound, zero when unset.
func (s SearchConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutMS) * time.Millisecond
}

// Debounce returns the watcher quiet period.
func (s ServerConfig) Debounce() time.Duration {
	return time.Duration(s.DebounceMS) * time.Millisecond
}

// Validate rejects values the rest of the program cannot work with.
func (c *Config) Validate() error {
	switch {
	case c.Index.Source == "" && c.Index.Path == "":
		return errors.New("index.source and index.path are both empty")
	case c.Index.Path == "":
		return errors.New("index.path is empty")
	case c.Search.MaxDistance < 0 || c.Search.MaxDistance > 1:
		return errors.Newf("search.max_distance must be 0 or 1, got %d", c.Search.MaxDistance)
	case c.Search.Limit < 1:
		return errors.Newf("search.limit must be positive, got %d", c.Search.Limit)
	case c.Search.MaxLimit < c.Search.Limit:
		return errors.Newf("search.max_limit (%d) is below search.limit (%d)", c.Search.MaxLimit, c.Search.Limit)
	case c.Search.CacheSize < 0 || c.Search.TimeoutMS < 0 || c.Server.DebounceMS < 0:
		return errors.New("search.cache_size, search.timeout_ms and server.debounce_ms must not be negative")
	}
	return nil
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/
// 2. ~/Library/Application Support/ (macOS)
// 3. Current executable dir
// 4. builtin defaults
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		execDir, execErr := utils.GetExecutableDir()
		if execErr != nil {
			return "", execErr
		}
		return execDir, nil
	}
	primaryPath := filepath.Join(homeDir, ".config", appName)
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	// Not conventional, fallback from ~/.config if not writable
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", appName)
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/wordfst/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			Source:     "dict.txt",
			Path:       "dict.fst",
			SortSource: true,
			Verify:     false,
		},
		Search: SearchConfig{
			Limit:       10,
			MaxLimit:    64,
			MaxDistance: 1,
			CacheSize:   1024,
			TimeoutMS:   0,
		},
		Server: ServerConfig{
			MetricsAddr: "",
			Watch:       false,
			DebounceMS:  250,
		},
		CLI: CliConfig{
			ExitSentinel: "#q",
		},
	}
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

func isYAML(configPath string) bool {
	ext := strings.ToLower(filepath.Ext(configPath))
	return ext == ".yaml" || ext == ".yml"
}

// LoadConfig loads from a TOML file, or YAML when the extension says so.
// Values missing from the file keep their defaults.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if isYAML(configPath) {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, errors.Wrapf(err, "reading config %s", configPath)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, errors.Wrapf(err, "parsing YAML config %s", configPath)
		}
		return config, nil
	}

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	return config, nil
}

// tryPartialParse salvages the sections and keys that still parse
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "index"); ok {
		extractIndexConfig(section, &config.Index)
	}
	if section, ok := utils.ExtractSection(tempConfig, "search"); ok {
		extractSearchConfig(section, &config.Search)
	}
	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(section, &config.CLI)
	}
	return config, nil
}

func extractIndexConfig(data map[string]any, index *IndexConfig) {
	if val, ok := utils.ExtractString(data, "source"); ok {
		index.Source = val
	}
	if val, ok := utils.ExtractString(data, "path"); ok {
		index.Path = val
	}
	if val, ok := utils.ExtractBool(data, "sort_source"); ok {
		index.SortSource = val
	}
	if val, ok := utils.ExtractBool(data, "verify"); ok {
		index.Verify = val
	}
}

func extractSearchConfig(data map[string]any, search *SearchConfig) {
	if val, ok := utils.ExtractInt64(data, "limit"); ok {
		search.Limit = val
	}
	if val, ok := utils.ExtractInt64(data, "max_limit"); ok {
		search.MaxLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "max_distance"); ok {
		search.MaxDistance = val
	}
	if val, ok := utils.ExtractInt64(data, "cache_size"); ok {
		search.CacheSize = val
	}
	if val, ok := utils.ExtractInt64(data, "timeout_ms"); ok {
		search.TimeoutMS = val
	}
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractString(data, "metrics_addr"); ok {
		server.MetricsAddr = val
	}
	if val, ok := utils.ExtractBool(data, "watch"); ok {
		server.Watch = val
	}
	if val, ok := utils.ExtractInt64(data, "debounce_ms"); ok {
		server.DebounceMS = val
	}
}

func extractCliConfig(data map[string]any, cli *CliConfig) {
	if val, ok := utils.ExtractString(data, "exit_sentinel"); ok {
		cli.ExitSentinel = val
	}
}

// RebuildConfigFile force creates a new config.toml at default
func RebuildConfigFile() (string, error) {
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return "", err
	}
	if err := utils.EnsureDir(filepath.Dir(defaultPath)); err != nil {
		return "", err
	}
	return defaultPath, SaveConfig(DefaultConfig(), defaultPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		return "builtin defaults"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file, or YAML when the extension says so.
func SaveConfig(config *Config, configPath string) error {
	if !isYAML(configPath) {
		return utils.SaveTOMLFile(config, configPath)
	}
	data, err := yaml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "encoding YAML config")
	}
	return os.WriteFile(configPath, data, 0o644)
}
