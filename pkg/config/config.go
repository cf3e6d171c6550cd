package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete server configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Content  ContentConfig  `yaml:"content"`
	Game     GameConfig     `yaml:"game"`
	Journal  JournalConfig  `yaml:"journal"`
	Admin    AdminConfig    `yaml:"admin"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Environment     string        `yaml:"environment"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CorsOrigins     []string      `yaml:"cors_origins"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	DataDir        string        `yaml:"data_dir"`
	File           string        `yaml:"file"`
	MaxConnections int           `yaml:"max_connections"`
	BusyTimeout    time.Duration `yaml:"busy_timeout"`
	BackupInterval time.Duration `yaml:"backup_interval"` // 0 disables scheduled backups
	MaxBackups     int           `yaml:"max_backups"`
}

// ContentConfig points at the YAML content documents
type ContentConfig struct {
	Dir      string `yaml:"dir"` // empty uses the embedded defaults
	Validate bool   `yaml:"validate"`
}

// GameConfig contains economy constants
type GameConfig struct {
	XPPerCollect           float64        `yaml:"xp_per_collect"`
	DefaultCooldownSeconds float64        `yaml:"default_cooldown_seconds"`
	DailyRewardCoins       int64          `yaml:"daily_reward_coins"`
	MaxActiveQuests        int            `yaml:"max_active_quests"`
	StartingCards          map[string]int `yaml:"starting_cards"`
	SessionTTL             time.Duration  `yaml:"session_ttl"`
}

// JournalConfig controls the compressed event journal
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// AdminConfig guards the admin endpoints
type AdminConfig struct {
	Token string `yaml:"token"` // empty disables admin endpoints
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `yaml:"level"`
	ShowCaller bool   `yaml:"show_caller"`
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            4080,
			Environment:     "production",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DataDir:        "./data",
			File:           "lodyland.db",
			MaxConnections: 8,
			BusyTimeout:    10 * time.Second,
			MaxBackups:     20,
		},
		Content: ContentConfig{
			Validate: true,
		},
		Game: GameConfig{
			XPPerCollect:           1,
			DefaultCooldownSeconds: 10,
			DailyRewardCoins:       50,
			MaxActiveQuests:        10,
			StartingCards:          map[string]int{"land_forest": 1},
			SessionTTL:             30 * 24 * time.Hour,
		},
		Journal: JournalConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from a YAML file over the defaults.
// A missing file yields the defaults.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	if filename != "" {
		data, err := os.ReadFile(filename)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	cfg.applyEnvironmentOverrides()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvironmentOverrides applies environment-specific settings
func (c *Config) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		fmt.Sscanf(port, "%d", &c.Server.Port)
	}

	if host := os.Getenv("HOST"); host != "" {
		c.Server.Host = host
	}

	if env := os.Getenv("ENVIRONMENT"); env != "" {
		c.Server.Environment = env
	}

	if dir := os.Getenv("LODY_DATA_DIR"); dir != "" {
		c.Database.DataDir = dir
	}

	if dir := os.Getenv("LODY_CONTENT_DIR"); dir != "" {
		c.Content.Dir = dir
	}

	if token := os.Getenv("LODY_ADMIN_TOKEN"); token != "" {
		c.Admin.Token = token
	}

	if c.Server.Environment == "development" {
		c.Logging.Level = "debug"
		c.Logging.ShowCaller = true
	}
}

// validate checks if the configuration is valid
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", c.Server.Port)
	}

	if c.Database.DataDir == "" || c.Database.File == "" {
		return fmt.Errorf("database data_dir and file are required")
	}

	if c.Game.XPPerCollect < 0 {
		return fmt.Errorf("xp_per_collect must not be negative: %v", c.Game.XPPerCollect)
	}

	if c.Game.DefaultCooldownSeconds <= 0 {
		return fmt.Errorf("default_cooldown_seconds must be positive: %v", c.Game.DefaultCooldownSeconds)
	}

	if c.Game.DailyRewardCoins < 0 {
		return fmt.Errorf("daily_reward_coins must not be negative: %d", c.Game.DailyRewardCoins)
	}

	if c.Game.MaxActiveQuests < 0 {
		return fmt.Errorf("max_active_quests must not be negative: %d", c.Game.MaxActiveQuests)
	}

	if c.Game.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive")
	}

	for key, qty := range c.Game.StartingCards {
		if qty < 0 {
			return fmt.Errorf("starting card %s has negative quantity %d", key, qty)
		}
	}

	return nil
}

// GetAddr returns the server address in host:port format
func (c *Config) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// DatabasePath returns the sqlite file path
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Database.DataDir, c.Database.File)
}

// JournalDir returns the journal directory, defaulting under the data dir
func (c *Config) JournalDir() string {
	if c.Journal.Dir != "" {
		return c.Journal.Dir
	}
	return filepath.Join(c.Database.DataDir, "journal")
}

// DefaultCooldown returns the fallback collect cooldown
func (c *Config) DefaultCooldown() time.Duration {
	return time.Duration(c.Game.DefaultCooldownSeconds * float64(time.Second))
}
