package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/search"
)

//go:embed config.toml.sample
var configTemplate string

const appName = "examsearch"

type Config struct {
	StorageDir  string            `toml:"storage_dir"`
	Listen      string            `toml:"listen"`
	Search      SearchConfig      `toml:"search"`
	Log         LogConfig         `toml:"log"`
	Cache       CacheConfig       `toml:"cache"`
	Maintenance MaintenanceConfig `toml:"maintenance"`
}

type SearchConfig struct {
	DefaultLimit        int            `toml:"default_limit"`
	MaxLimit            int            `toml:"max_limit"`
	QueryTimeout        Duration       `toml:"query_timeout"`
	PageOverfetch       int            `toml:"page_overfetch"`
	SimilarityThreshold float64        `toml:"similarity_threshold"`
	ExamHeadline        HeadlineConfig `toml:"exam_headline"`
	PostHeadline        HeadlineConfig `toml:"post_headline"`
}

// HeadlineConfig controls the snippet windows the text index produces.
type HeadlineConfig struct {
	MaxFragments int `toml:"max_fragments"`
	MinWords     int `toml:"min_words"`
	MaxWords     int `toml:"max_words"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file,omitempty"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

type CacheConfig struct {
	CallerEntries int      `toml:"caller_entries"`
	CallerTTL     Duration `toml:"caller_ttl"`
}

// MaintenanceConfig schedules index optimization while serving. An unset
// interval defaults to one hour and "0s" disables maintenance.
type MaintenanceConfig struct {
	OptimizeInterval *Duration `toml:"optimize_interval,omitempty"`
}

// Interval returns the optimize interval, zero when disabled.
func (m MaintenanceConfig) Interval() time.Duration {
	if m.OptimizeInterval == nil {
		return 0
	}
	return m.OptimizeInterval.Duration
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// DefaultSearchConfig returns the search tuning used when the config file
// leaves values unset.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		DefaultLimit:        15,
		MaxLimit:            search.MaxHitsPerKind,
		QueryTimeout:        Duration{5 * time.Second},
		PageOverfetch:       10,
		SimilarityThreshold: 0.3,
		ExamHeadline:        HeadlineConfig{MaxFragments: 5, MinWords: 15, MaxWords: 35},
		PostHeadline:        HeadlineConfig{MaxFragments: 5, MinWords: 1, MaxWords: 2},
	}
}

func GetDefaultConfig() (*Config, error) {
	storageDir, err := GetDefaultStorageDir()
	if err != nil {
		return nil, fmt.Errorf("getting default storage directory: %w", err)
	}
	cfg := &Config{StorageDir: storageDir}
	cfg.applyDefaults()
	return cfg, nil
}

func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefaultConfig()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig decodes TOML data and fills in defaults for unset values.
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if config.StorageDir == "" {
		storageDir, err := GetDefaultStorageDir()
		if err != nil {
			return nil, fmt.Errorf("getting default storage directory: %w", err)
		}
		config.StorageDir = storageDir
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	def := DefaultSearchConfig()
	s := &c.Search

	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if s.DefaultLimit == 0 {
		s.DefaultLimit = def.DefaultLimit
	}
	if s.MaxLimit == 0 {
		s.MaxLimit = def.MaxLimit
	}
	if s.QueryTimeout.Duration == 0 {
		s.QueryTimeout = def.QueryTimeout
	}
	if s.PageOverfetch == 0 {
		s.PageOverfetch = def.PageOverfetch
	}
	if s.SimilarityThreshold == 0 {
		s.SimilarityThreshold = def.SimilarityThreshold
	}
	if s.ExamHeadline == (HeadlineConfig{}) {
		s.ExamHeadline = def.ExamHeadline
	}
	if s.PostHeadline == (HeadlineConfig{}) {
		s.PostHeadline = def.PostHeadline
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 28
	}

	if c.Cache.CallerEntries == 0 {
		c.Cache.CallerEntries = 1024
	}
	if c.Cache.CallerTTL.Duration == 0 {
		c.Cache.CallerTTL = Duration{time.Minute}
	}

	if c.Maintenance.OptimizeInterval == nil {
		c.Maintenance.OptimizeInterval = &Duration{time.Hour}
	}
}

// Validate rejects settings the search service cannot work with.
func (c *Config) Validate() error {
	s := c.Search
	if s.MaxLimit < 1 || s.MaxLimit > search.MaxHitsPerKind {
		return fmt.Errorf("search.max_limit must be between 1 and %d, got %d", search.MaxHitsPerKind, s.MaxLimit)
	}
	if s.DefaultLimit < 1 || s.DefaultLimit > s.MaxLimit {
		return fmt.Errorf("search.default_limit must be between 1 and %d, got %d", s.MaxLimit, s.DefaultLimit)
	}
	if s.SimilarityThreshold <= 0 || s.SimilarityThreshold > 1 {
		return fmt.Errorf("search.similarity_threshold must be in (0, 1], got %v", s.SimilarityThreshold)
	}
	if s.PageOverfetch < 1 {
		return fmt.Errorf("search.page_overfetch must be positive, got %d", s.PageOverfetch)
	}
	for name, h := range map[string]HeadlineConfig{"exam_headline": s.ExamHeadline, "post_headline": s.PostHeadline} {
		if h.MaxFragments < 1 || h.MinWords < 1 || h.MaxWords < h.MinWords {
			return fmt.Errorf("search.%s: need max_fragments >= 1 and 1 <= min_words <= max_words", name)
		}
	}
	return nil
}

func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	template := strings.Replace(configTemplate, "/home/user/.local/share/"+appName, c.StorageDir, 1)
	return os.WriteFile(configPath, []byte(template), 0644)
}

// DatabasePath returns the archive database location inside StorageDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.StorageDir, "archive.db")
}

// GetDefaultStorageDir returns the default storage directory for databases
func GetDefaultStorageDir() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	dir := filepath.Join(dataDir, appName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating storage directory %s: %w", dir, err)
	}

	return dir, nil
}

// GetConfigDir returns the configuration directory
func GetConfigDir() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	dir := filepath.Join(configDir, appName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	return dir, nil
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
