/*
Package config manages TOML configuration for the ogls query engine: cache
sizes, ranker weights, and graph-walk caps that tune the runtime Index
without requiring a rebuild of the embedded artifacts.
*/
package config

import (
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/opengloss/ogls/internal/utils"
)

// Config holds every tunable of the runtime index.
type Config struct {
	Arena   ArenaConfig   `toml:"arena"`
	Chunks  ChunkConfig   `toml:"chunks"`
	Scanner ScannerConfig `toml:"scanner"`
	Ranker  RankerConfig  `toml:"ranker"`
	Graph   GraphConfig   `toml:"graph"`
}

// ArenaConfig tunes the String Arena's frame inflation cache.
type ArenaConfig struct {
	CacheBytes int64 `toml:"cache_bytes"`
}

// ChunkConfig tunes the Chunk Store's per-chunk inflation cache.
type ChunkConfig struct {
	CacheBytes int64 `toml:"cache_bytes"`
}

// ScannerConfig tunes the substring scanner's result cache.
type ScannerConfig struct {
	CacheSize int `toml:"cache_size"`
}

// RankerConfig carries the default field weights and limits for fuzzy search.
type RankerConfig struct {
	WeightWord        float64 `toml:"weight_word"`
	WeightDefinitions float64 `toml:"weight_definitions"`
	WeightSynonyms    float64 `toml:"weight_synonyms"`
	WeightEntryText   float64 `toml:"weight_entry_text"`
	WeightEncyclopedia float64 `toml:"weight_encyclopedia"`
	MinScore          float64 `toml:"min_score"`
	DefaultLimit      int     `toml:"default_limit"`
	CacheSize         int     `toml:"cache_size"`
}

// GraphConfig carries default bounds for bounded graph traversal.
type GraphConfig struct {
	DefaultDepth int `toml:"default_depth"`
	MaxDepth     int `toml:"max_depth"`
	MaxNodes     int `toml:"max_nodes"`
	MaxEdges     int `toml:"max_edges"`
}

// DefaultConfig returns a Config with the same defaults the embedded engine
// ships with, matching original_source's SearchConfig::default() for the
// ranker and spec.md §4.8 for graph caps.
func DefaultConfig() *Config {
	return &Config{
		Arena: ArenaConfig{
			CacheBytes: 16 << 20,
		},
		Chunks: ChunkConfig{
			CacheBytes: 32 << 20,
		},
		Scanner: ScannerConfig{
			CacheSize: 64,
		},
		Ranker: RankerConfig{
			WeightWord:         3.0,
			WeightDefinitions:  2.0,
			WeightSynonyms:     1.0,
			WeightEntryText:    1.5,
			WeightEncyclopedia: 1.5,
			MinScore:           0.15,
			DefaultLimit:       25,
			CacheSize:          32,
		},
		Graph: GraphConfig{
			DefaultDepth: 2,
			MaxDepth:     8,
			MaxNodes:     10000,
			MaxEdges:     100000,
		},
	}
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/ogls
// 2. ~/Library/Application Support/ogls (macOS)
// 3. Current executable dir
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
	primaryPath := filepath.Join(homeDir, ".config", "ogls")
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "ogls")
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

// GetDefaultConfigPath returns the default path for config.toml.
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. customConfigPath, when non-empty
// 2. Default path: [UserConfigDir]/ogls/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			cfg, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return cfg, customConfigPath, nil
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

	cfg, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return cfg, defaultPath, nil
}

// InitConfig loads config from file or creates a default one if missing.
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		cfg := DefaultConfig()
		if err := SaveConfig(cfg, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return cfg, nil
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return cfg, nil
}

// LoadConfig loads from a TOML file. When the file does not decode, it
// falls back to partial recovery, which keeps only the integer settings of
// the [ranker] and [graph] sections that tryPartialParse extracts; every
// other setting takes its default.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()
	if err := utils.LoadTOMLFile(configPath, cfg); err != nil {
		return tryPartialParse(configPath)
	}
	return cfg, nil
}

func tryPartialParse(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return cfg, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "ranker"); ok {
		extractRankerConfig(section, &cfg.Ranker)
	}
	if section, ok := utils.ExtractSection(tempConfig, "graph"); ok {
		extractGraphConfig(section, &cfg.Graph)
	}
	return cfg, nil
}

func extractRankerConfig(data map[string]any, ranker *RankerConfig) {
	if val, ok := utils.ExtractInt64(data, "default_limit"); ok {
		ranker.DefaultLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "cache_size"); ok {
		ranker.CacheSize = val
	}
}

func extractGraphConfig(data map[string]any, graph *GraphConfig) {
	if val, ok := utils.ExtractInt64(data, "default_depth"); ok {
		graph.DefaultDepth = val
	}
	if val, ok := utils.ExtractInt64(data, "max_depth"); ok {
		graph.MaxDepth = val
	}
	if val, ok := utils.ExtractInt64(data, "max_nodes"); ok {
		graph.MaxNodes = val
	}
	if val, ok := utils.ExtractInt64(data, "max_edges"); ok {
		graph.MaxEdges = val
	}
}

// SaveConfig saves into a TOML file.
func SaveConfig(cfg *Config, configPath string) error {
	return utils.SaveTOMLFile(cfg, configPath)
}

// GetActiveConfigPath returns the absolute path of the loaded config file.
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}
