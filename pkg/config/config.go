/*
Package config manages TOML config for birdserve.
*/
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/birdserve/internal/utils"
	"github.com/bastiangx/birdserve/pkg/classify"
	"github.com/bastiangx/birdserve/pkg/page"
	"github.com/bastiangx/birdserve/pkg/seen"
)

// Config holds the entire config structure
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Data      DataConfig      `toml:"data"`
	Highlight HighlightConfig `toml:"highlight"`
	Typeahead TypeaheadConfig `toml:"typeahead"`
	Pages     PagesConfig     `toml:"pages"`
	CLI       CliConfig       `toml:"cli"`
}

// ServerConfig has transport options.
type ServerConfig struct {
	HTTPAddr     string `toml:"http_addr"`
	MaxBodyBytes int    `toml:"max_body_bytes"`
	EnableFilter bool   `toml:"enable_filter"`
}

// DataConfig locates datasets and persisted state. Relative paths resolve against the
// executable, then the working directory.
type DataConfig struct {
	Dir       string `toml:"dir"`
	SeenDB    string `toml:"seen_db"`
	CacheFile string `toml:"cache_file"`
}

// HighlightConfig holds the colors of unseen species.
type HighlightConfig struct {
	CommonColor  string `toml:"common_color"`
	EndemicColor string `toml:"endemic_color"`
}

// TypeaheadConfig holds the jump-to-species control options.
type TypeaheadConfig struct {
	LocalPrefix         string `toml:"local_prefix"`
	GlobalPrefix        string `toml:"global_prefix"`
	MaxResults          int    `toml:"max_results"`
	DebounceMs          int    `toml:"debounce_ms"`
	SuggestionContainer string `toml:"suggestion_container"`
}

// PagesConfig overrides the host page selectors.
type PagesConfig struct {
	// Selectors maps a page kind to the selectors of its name cells.
	Selectors      map[string][]string `toml:"selectors"`
	RowSelector    string              `toml:"row_selector"`
	RowName        string              `toml:"row_name"`
	RowControl     string              `toml:"row_control"`
	LifeListRow    string              `toml:"lifelist_row"`
	LifeListCommon string              `toml:"lifelist_common"`
	LifeListLatin  string              `toml:"lifelist_latin"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultLimit int  `toml:"default_limit"`
	ShowLatin    bool `toml:"show_latin"`
}

// GetConfigDir returns the config directory with fallback priority:
// 1. platform config dir (~/.config/birdserve, %APPDATA%\birdserve)
// 2. ~/.birdserve
// 3. Current executable dir
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		return utils.GetExecutableDir()
	}
	primaryPath := utils.ConfigDirFor(homeDir)
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	fallback := filepath.Join(homeDir, ".birdserve")
	if result := utils.CheckDirStatus(fallback); result.Writable {
		return fallback, nil
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
// 2. Default path: [UserConfigDir]/birdserve/config.toml
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
		Server: ServerConfig{
			HTTPAddr:     "127.0.0.1:8740",
			MaxBodyBytes: 8 << 20,
			EnableFilter: true,
		},
		Data: DataConfig{
			Dir:       "data",
			SeenDB:    "seen.db",
			CacheFile: "bundle.msgpack",
		},
		Highlight: HighlightConfig{
			CommonColor:  "#fff3a0",
			EndemicColor: "#ffc6d0",
		},
		Typeahead: TypeaheadConfig{
			LocalPrefix:         "/",
			GlobalPrefix:        "//",
			MaxResults:          50,
			DebounceMs:          150,
			SuggestionContainer: page.DefaultContainer,
		},
		Pages: PagesConfig{
			Selectors:      map[string][]string{},
			RowSelector:    page.DefaultRowSpec.Row,
			RowName:        page.DefaultRowSpec.Name,
			RowControl:     page.DefaultRowSpec.Control,
			LifeListRow:    seen.DefaultSelectors.Row,
			LifeListCommon: seen.DefaultSelectors.Common,
			LifeListLatin:  seen.DefaultSelectors.Latin,
		},
		CLI: CliConfig{
			DefaultLimit: 10,
			ShowLatin:    true,
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

// LoadConfig loads from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	return config, nil
}

// tryPartialParse recovers every known key that parses
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "data"); ok {
		extractDataConfig(section, &config.Data)
	}
	if section, ok := utils.ExtractSection(tempConfig, "highlight"); ok {
		extractHighlightConfig(section, &config.Highlight)
	}
	if section, ok := utils.ExtractSection(tempConfig, "typeahead"); ok {
		extractTypeaheadConfig(section, &config.Typeahead)
	}
	if section, ok := utils.ExtractSection(tempConfig, "pages"); ok {
		extractPagesConfig(section, &config.Pages)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(section, &config.CLI)
	}
	return config, nil
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractString(data, "http_addr"); ok {
		server.HTTPAddr = val
	}
	if val, ok := utils.ExtractInt64(data, "max_body_bytes"); ok {
		server.MaxBodyBytes = val
	}
	if val, ok := utils.ExtractBool(data, "enable_filter"); ok {
		server.EnableFilter = val
	}
}

func extractDataConfig(data map[string]any, d *DataConfig) {
	if val, ok := utils.ExtractString(data, "dir"); ok {
		d.Dir = val
	}
	if val, ok := utils.ExtractString(data, "seen_db"); ok {
		d.SeenDB = val
	}
	if val, ok := utils.ExtractString(data, "cache_file"); ok {
		d.CacheFile = val
	}
}

func extractHighlightConfig(data map[string]any, h *HighlightConfig) {
	if val, ok := utils.ExtractString(data, "common_color"); ok {
		h.CommonColor = val
	}
	if val, ok := utils.ExtractString(data, "endemic_color"); ok {
		h.EndemicColor = val
	}
}

func extractTypeaheadConfig(data map[string]any, t *TypeaheadConfig) {
	if val, ok := utils.ExtractString(data, "local_prefix"); ok {
		t.LocalPrefix = val
	}
	if val, ok := utils.ExtractString(data, "global_prefix"); ok {
		t.GlobalPrefix = val
	}
	if val, ok := utils.ExtractInt64(data, "max_results"); ok {
		t.MaxResults = val
	}
	if val, ok := utils.ExtractInt64(data, "debounce_ms"); ok {
		t.DebounceMs = val
	}
	if val, ok := utils.ExtractString(data, "suggestion_container"); ok {
		t.SuggestionContainer = val
	}
}

func extractPagesConfig(data map[string]any, p *PagesConfig) {
	if sels, ok := utils.ExtractSection(data, "selectors"); ok {
		for kind := range sels {
			if list, ok := utils.ExtractStringSlice(sels, kind); ok {
				p.Selectors[kind] = list
			}
		}
	}
	fields := map[string]*string{
		"row_selector":    &p.RowSelector,
		"row_name":        &p.RowName,
		"row_control":     &p.RowControl,
		"lifelist_row":    &p.LifeListRow,
		"lifelist_common": &p.LifeListCommon,
		"lifelist_latin":  &p.LifeListLatin,
	}
	for key, dst := range fields {
		if val, ok := utils.ExtractString(data, key); ok {
			*dst = val
		}
	}
}

func extractCliConfig(data map[string]any, cli *CliConfig) {
	if val, ok := utils.ExtractInt64(data, "default_limit"); ok {
		cli.DefaultLimit = val
	}
	if val, ok := utils.ExtractBool(data, "show_latin"); ok {
		cli.ShowLatin = val
	}
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}

// ClassifyOptions returns the classifier colors.
func (c *Config) ClassifyOptions() classify.Options {
	return classify.Options{CommonColor: c.Highlight.CommonColor, EndemicColor: c.Highlight.EndemicColor}
}

// Debounce returns the visible-rows rebuild delay.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Typeahead.DebounceMs) * time.Millisecond
}

// SelectorOverrides returns the configured name-cell selectors by page kind.
func (c *Config) SelectorOverrides() map[page.Kind][]string {
	out := make(map[page.Kind][]string, len(c.Pages.Selectors))
	for kind, sels := range c.Pages.Selectors {
		out[page.Kind(kind)] = sels
	}
	return out
}

// RowSpec returns the checklist-entry row selectors.
func (c *Config) RowSpec() page.RowSpec {
	return page.RowSpec{Row: c.Pages.RowSelector, Name: c.Pages.RowName, Control: c.Pages.RowControl}
}

// LifeListSelectors returns the life-list page selectors.
func (c *Config) LifeListSelectors() seen.Selectors {
	return seen.Selectors{Row: c.Pages.LifeListRow, Common: c.Pages.LifeListCommon, Latin: c.Pages.LifeListLatin}
}
