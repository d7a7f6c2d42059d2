package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Search     SearchConfig     `mapstructure:"search"`
	Board      BoardConfig      `mapstructure:"board"`
	Rules      RulesConfig      `mapstructure:"rules"`
	Game       GameConfig       `mapstructure:"game"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Experience ExperienceConfig `mapstructure:"experience"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// SearchConfig holds the search agent settings
type SearchConfig struct {
	MaxDepth         int      `mapstructure:"max_depth"`
	NodeLimit        int64    `mapstructure:"node_limit"`
	TimeLimitMS      int      `mapstructure:"time_limit_ms"`
	MaxActiveFriends int      `mapstructure:"max_active_friends"`
	MaxActiveEnemies int      `mapstructure:"max_active_enemies"`
	UnitOrders       []string `mapstructure:"unit_orders"`
	AttackPrune      bool     `mapstructure:"attack_prune"`
	MovePrune        bool     `mapstructure:"move_prune"`
	RandomTies       bool     `mapstructure:"random_ties"`
	TwoAttacks       bool     `mapstructure:"two_attacks"`
	Approach         bool     `mapstructure:"approach"`
	Workers          int      `mapstructure:"workers"`
	Seed             uint64   `mapstructure:"seed"`
	ShuffleIDs       bool     `mapstructure:"shuffle_ids"`
}

// BoardConfig holds the episode board capacities
type BoardConfig struct {
	TurnSlices      int `mapstructure:"turn_slices"`
	HistoryCapacity int `mapstructure:"history_capacity"`
}

// RulesConfig points at optional rule table overrides
type RulesConfig struct {
	TablesFile string `mapstructure:"tables_file"`
}

// GameConfig holds scenario generation and battle limits
type GameConfig struct {
	Width           int    `mapstructure:"width"`
	Height          int    `mapstructure:"height"`
	UnitsPerTeam    int    `mapstructure:"units_per_team"`
	TurnLimit       int    `mapstructure:"turn_limit"`
	DrawHPThreshold int    `mapstructure:"draw_hp_threshold"`
	Seed            uint64 `mapstructure:"seed"`
	Games           int    `mapstructure:"games"`
}

// StorageConfig holds the episode store settings
type StorageConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Dir      string `mapstructure:"dir"`
	InMemory bool   `mapstructure:"in_memory"`
}

// ExperienceConfig holds the trace export settings
type ExperienceConfig struct {
	Enabled             bool   `mapstructure:"enabled"`
	Dir                 string `mapstructure:"dir"`
	BufferSize          int    `mapstructure:"buffer_size"`
	MaxFileSizeMB       int    `mapstructure:"max_file_size_mb"`
	RotationIntervalMin int    `mapstructure:"rotation_interval_min"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MaxBoardSide bounds board sides so every coordinate fits an action field.
const MaxBoardSide = 16

var (
	// Global config instance
	mu  sync.RWMutex
	cfg *Config
	v   *viper.Viper
)

// setViperDefaults sets all default values using Viper's SetDefault
func setViperDefaults(v *viper.Viper) {
	// Search defaults
	v.SetDefault("search.max_depth", 1)
	v.SetDefault("search.node_limit", 0)
	v.SetDefault("search.time_limit_ms", 0)
	v.SetDefault("search.max_active_friends", 5)
	v.SetDefault("search.max_active_enemies", 20)
	v.SetDefault("search.unit_orders", []string{"forward", "reverse"})
	v.SetDefault("search.attack_prune", false)
	v.SetDefault("search.move_prune", false)
	v.SetDefault("search.random_ties", false)
	v.SetDefault("search.two_attacks", false)
	v.SetDefault("search.approach", false)
	v.SetDefault("search.workers", 1)
	v.SetDefault("search.seed", 1)
	v.SetDefault("search.shuffle_ids", true)

	// Board defaults
	v.SetDefault("board.turn_slices", 4)
	v.SetDefault("board.history_capacity", 0)

	v.SetDefault("rules.tables_file", "")

	// Game defaults
	v.SetDefault("game.width", 12)
	v.SetDefault("game.height", 10)
	v.SetDefault("game.units_per_team", 4)
	v.SetDefault("game.turn_limit", 20)
	v.SetDefault("game.draw_hp_threshold", 10)
	v.SetDefault("game.seed", 1)
	v.SetDefault("game.games", 1)

	// Persistence defaults
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.dir", "data/episodes")
	v.SetDefault("storage.in_memory", false)
	v.SetDefault("experience.enabled", false)
	v.SetDefault("experience.dir", "data/traces")
	v.SetDefault("experience.buffer_size", 64)
	v.SetDefault("experience.max_file_size_mb", 100)
	v.SetDefault("experience.rotation_interval_min", 60)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Init initializes the configuration
func Init(configPath string) error {
	nv := viper.New()
	setViperDefaults(nv)

	if configPath != "" {
		nv.SetConfigFile(configPath)
	} else {
		nv.SetConfigName("config")
		nv.SetConfigType("yaml")
		nv.AddConfigPath(".")
		nv.AddConfigPath("./config")
		nv.AddConfigPath("/etc/tactical-search")
	}

	nv.SetEnvPrefix("TCS")
	nv.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	nv.AutomaticEnv()

	if err := nv.ReadInConfig(); err != nil && !missing(err) {
		return fmt.Errorf("error reading config file: %w", err)
	}

	c := &Config{}
	if err := nv.Unmarshal(c); err != nil {
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := Validate(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	mu.Lock()
	v, cfg = nv, c
	mu.Unlock()
	return nil
}

// missing reports whether a read failed only because the file is absent.
// Defaults apply then.
func missing(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// Get returns the global config instance
func Get() *Config {
	mu.RLock()
	c := cfg
	mu.RUnlock()
	if c == nil {
		if err := Init(""); err != nil {
			panic("failed to initialize config with defaults: " + err.Error())
		}
		mu.RLock()
		c = cfg
		mu.RUnlock()
	}
	return c
}

// GetViper returns the viper instance for advanced usage
func GetViper() *viper.Viper {
	mu.RLock()
	defer mu.RUnlock()
	if v == nil {
		panic("config not initialized - call Init() first")
	}
	return v
}

// reload decodes the viper state into a fresh Config and swaps it in when it
// validates. Must be called with mu held.
func reload() (*Config, error) {
	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := Validate(c); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	cfg = c
	return c, nil
}

// LoadEnvironmentConfig merges config.<env>.yaml over the loaded config
func LoadEnvironmentConfig(env string) error {
	if env == "" {
		return nil
	}
	envFile := fmt.Sprintf("config.%s.yaml", env)

	mu.Lock()
	defer mu.Unlock()
	base := v.ConfigFileUsed()
	v.SetConfigFile(envFile)
	err := v.MergeInConfig()
	v.SetConfigFile(base)
	if err != nil && !missing(err) {
		return fmt.Errorf("error merging environment config %s: %w", envFile, err)
	}
	_, err = reload()
	return err
}

// Set allows runtime config updates, e.g. from command line flags
func Set(key string, value interface{}) error {
	mu.Lock()
	defer mu.Unlock()
	prev := v.Get(key)
	v.Set(key, value)
	if _, err := reload(); err != nil {
		v.Set(key, prev)
		return err
	}
	return nil
}

// ConfigFilePath returns the path of the loaded config file
func ConfigFilePath() string {
	mu.RLock()
	defer mu.RUnlock()
	return v.ConfigFileUsed()
}

// WatchConfig enables hot-reloading of the config file. onChange receives the
// new config, or the error that kept the previous one in place.
func WatchConfig(onChange func(*Config, error)) {
	mu.RLock()
	wv := v
	mu.RUnlock()

	wv.OnConfigChange(func(e fsnotify.Event) {
		mu.Lock()
		c, err := reload()
		mu.Unlock()
		if onChange != nil {
			onChange(c, err)
		}
	})
	wv.WatchConfig()
}

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate validates the configuration values
func Validate(c *Config) error {
	// Search
	if c.Search.MaxDepth < 0 {
		return fmt.Errorf("search.max_depth must be non-negative")
	}
	if c.Search.NodeLimit < 0 {
		return fmt.Errorf("search.node_limit must be non-negative")
	}
	if c.Search.TimeLimitMS < 0 {
		return fmt.Errorf("search.time_limit_ms must be non-negative")
	}
	if len(c.Search.UnitOrders) == 0 {
		return fmt.Errorf("search.unit_orders must name at least one order")
	}
	if c.Search.Workers < 1 {
		return fmt.Errorf("search.workers must be at least 1")
	}

	// Board
	if c.Board.TurnSlices < 2 {
		return fmt.Errorf("board.turn_slices must be at least 2")
	}
	if c.Board.HistoryCapacity < 0 {
		return fmt.Errorf("board.history_capacity must be non-negative")
	}

	// Game
	if c.Game.Width < 5 || c.Game.Width > MaxBoardSide {
		return fmt.Errorf("game.width must be between 5 and %d", MaxBoardSide)
	}
	if c.Game.Height < 5 || c.Game.Height > MaxBoardSide {
		return fmt.Errorf("game.height must be between 5 and %d", MaxBoardSide)
	}
	if c.Game.UnitsPerTeam < 1 || 2*c.Game.UnitsPerTeam > MaxBoardSide {
		return fmt.Errorf("game.units_per_team must be between 1 and %d", MaxBoardSide/2)
	}
	if c.Game.TurnLimit < 0 {
		return fmt.Errorf("game.turn_limit must be non-negative")
	}
	if c.Game.DrawHPThreshold < 0 {
		return fmt.Errorf("game.draw_hp_threshold must be non-negative")
	}
	if c.Game.Games < 1 {
		return fmt.Errorf("game.games must be at least 1")
	}

	// Persistence
	if c.Storage.Enabled && !c.Storage.InMemory && c.Storage.Dir == "" {
		return fmt.Errorf("storage.dir is required when storage is enabled")
	}
	if c.Experience.Enabled && c.Experience.Dir == "" {
		return fmt.Errorf("experience.dir is required when experience export is enabled")
	}
	if c.Experience.BufferSize < 1 {
		return fmt.Errorf("experience.buffer_size must be at least 1")
	}
	if c.Experience.MaxFileSizeMB < 0 || c.Experience.RotationIntervalMin < 0 {
		return fmt.Errorf("experience rotation limits must be non-negative")
	}

	// Logging
	if !logLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be console or json")
	}

	return nil
}
