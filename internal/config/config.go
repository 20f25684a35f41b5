// Package config handles configuration loading and saving.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"cardchat/internal/logger"
)

const (
	configDirName  = ".cardchat"
	configFileName = "config.yaml"
	envPrefix      = "CARDCHAT"
)

// Config is the root configuration structure.
type Config struct {
	Backend BackendConfig `mapstructure:"backend" yaml:"backend"`
	UI      UIConfig      `mapstructure:"ui" yaml:"ui"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Stub    StubConfig    `mapstructure:"stub" yaml:"stub"`
}

// BackendConfig locates the agent backend.
type BackendConfig struct {
	BaseURL        string        `mapstructure:"base_url" yaml:"base_url"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"` // 0 = no timeout
}

// UIConfig contains panel sizing and behavior.
type UIConfig struct {
	Chat          ChatConfig `mapstructure:"chat" yaml:"chat"`
	Card          CardConfig `mapstructure:"card" yaml:"card"`
	JumpThreshold int        `mapstructure:"jump_threshold" yaml:"jump_threshold"` // lines above bottom before "jump to latest" shows
	HistoryLimit  int        `mapstructure:"history_limit" yaml:"history_limit"`
	MarkdownStyle string     `mapstructure:"markdown_style" yaml:"markdown_style"` // glamour style: dark, light, notty
}

// ChatConfig sizes the chat panel.
type ChatConfig struct {
	MinWidth       int     `mapstructure:"min_width" yaml:"min_width"`
	MinHeight      int     `mapstructure:"min_height" yaml:"min_height"`
	InitialWidth   int     `mapstructure:"initial_width" yaml:"initial_width"`
	InitialHeight  int     `mapstructure:"initial_height" yaml:"initial_height"`
	MaxWidthRatio  float64 `mapstructure:"max_width_ratio" yaml:"max_width_ratio"`
	MaxHeightRatio float64 `mapstructure:"max_height_ratio" yaml:"max_height_ratio"`
}

// CardConfig sizes cards.
type CardConfig struct {
	Width    int  `mapstructure:"width" yaml:"width"`
	Height   int  `mapstructure:"height" yaml:"height"`
	Editable bool `mapstructure:"editable" yaml:"editable"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Level   string `mapstructure:"level" yaml:"level"` // debug, info, warn, error
	File    string `mapstructure:"file" yaml:"file"`   // relative paths resolve against the config dir
}

// StubConfig configures the local stub backend.
type StubConfig struct {
	Addr   string `mapstructure:"addr" yaml:"addr"`
	Script string `mapstructure:"script" yaml:"script"` // optional YAML rule file
}

// Dir returns the directory holding the default config file.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home dir: %w", err)
	}
	return filepath.Join(home, configDirName), nil
}

// DefaultPath returns the default config file path.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Load reads the config file at path (the default path when empty) and
// applies CARDCHAT_* environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		logger.Debug("config file not found, using defaults", "path", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks ranges that the UI relies on.
func (c *Config) Validate() error {
	chat := c.UI.Chat
	if chat.MinWidth < 10 || chat.MinHeight < 6 {
		return fmt.Errorf("ui.chat minimum size %dx%d is too small (need at least 10x6)", chat.MinWidth, chat.MinHeight)
	}
	if chat.MaxWidthRatio <= 0 || chat.MaxWidthRatio > 1 {
		return fmt.Errorf("ui.chat.max_width_ratio must be in (0, 1], got %v", chat.MaxWidthRatio)
	}
	if chat.MaxHeightRatio <= 0 || chat.MaxHeightRatio > 1 {
		return fmt.Errorf("ui.chat.max_height_ratio must be in (0, 1], got %v", chat.MaxHeightRatio)
	}
	if c.UI.Card.Width < 12 || c.UI.Card.Height < 4 {
		return fmt.Errorf("ui.card size %dx%d is too small (need at least 12x4)", c.UI.Card.Width, c.UI.Card.Height)
	}
	if c.UI.JumpThreshold < 0 {
		return fmt.Errorf("ui.jump_threshold must not be negative")
	}
	if c.UI.HistoryLimit <= 0 {
		return fmt.Errorf("ui.history_limit must be positive")
	}
	if c.Backend.RequestTimeout < 0 || c.Backend.DialTimeout < 0 {
		return fmt.Errorf("backend timeouts must not be negative")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	return nil
}

// BuildLoggerConfig converts the log section for logger.Init.
func (c *Config) BuildLoggerConfig() logger.Config {
	return logger.Config{
		Enabled: c.Log.Enabled,
		Level:   c.Log.Level,
		File:    c.Log.File,
	}
}

// Save writes the config as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
