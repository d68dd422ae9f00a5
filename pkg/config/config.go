// Package config provides configuration management for the ballot-audit service.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Election   ElectionConfig   `mapstructure:"election"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Callback   CallbackConfig   `mapstructure:"callback"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Log        LogConfig        `mapstructure:"log"`
	Sources    []SourceItemConfig `mapstructure:"sources"`
}

// SourceItemConfig configures one run-intake source (database polling,
// HTTP submission, or Kafka consumption) wired into the scheduler's
// aggregator.
type SourceItemConfig struct {
	Name    string                 `mapstructure:"name"`
	Type    string                 `mapstructure:"type"` // database, http, or kafka
	Enabled bool                   `mapstructure:"enabled"`
	Options map[string]interface{} `mapstructure:"options"`
}

// ElectionConfig holds service-level election settings: the report
// version, the data directory for per-run scratch files, and the a0 a run
// falls back to when its own a0 is not positive. Reducible is loaded but
// not applied to runs; each run uses its own reducible flag.
type ElectionConfig struct {
	Version   string  `mapstructure:"version"`
	DataDir   string  `mapstructure:"data_dir"`
	A0        float64 `mapstructure:"a0"`
	Reducible bool    `mapstructure:"reducible"`
}

// SimulationConfig holds the Monte Carlo posterior-driver settings. Only
// MaxWorker is applied to runs (it sets the driver's worker count);
// NElections, NBallots, NBatches and Replace are validated, but each run
// takes these from its own parameters.
type SimulationConfig struct {
	NElections int  `mapstructure:"n_elections"`
	NBallots   int  `mapstructure:"n_ballots"`
	NBatches   int  `mapstructure:"n_batches"`
	Replace    bool `mapstructure:"replace"`
	MaxWorker  int  `mapstructure:"max_worker"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Type     string `mapstructure:"type"` // postgres or mysql
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	MaxConns int    `mapstructure:"max_conns"`
}

// StorageConfig holds object storage configuration for persisted audit
// report artifacts.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // cos or local
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"`     // e.g., "myqcloud.com"
	Scheme    string `mapstructure:"scheme"`     // e.g., "https" or "http"
	LocalPath string `mapstructure:"local_path"` // for local storage
}

// CallbackConfig holds webhook-callback configuration fired when an audit
// run completes.
type CallbackConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

// SchedulerConfig holds scheduler configuration for dispatching queued
// audit-run requests.
type SchedulerConfig struct {
	PollInterval  int `mapstructure:"poll_interval"` // in seconds
	WorkerCount   int `mapstructure:"worker_count"`
	PrioritySlots int `mapstructure:"priority_slots"`
	TaskBatchSize int `mapstructure:"task_batch_size"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"` // json or text
}

// Load reads configuration from the specified file path.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Determine config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/ballot-audit")
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// Check if it's a "file not found" error (either viper's type or os error)
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, use defaults
			fmt.Println("Config file not found, using defaults")
		} else if os.IsNotExist(err) {
			// File specified but doesn't exist, use defaults
			fmt.Printf("Config file %s not found, using defaults\n", configPath)
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Allow environment variables to override config
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadFromReader loads configuration from an io.Reader (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Election defaults
	v.SetDefault("election.version", "1.0.0")
	v.SetDefault("election.data_dir", "./data")
	v.SetDefault("election.a0", 1.0)
	v.SetDefault("election.reducible", false)

	// Simulation defaults
	v.SetDefault("simulation.n_elections", 1000)
	v.SetDefault("simulation.n_ballots", 1000)
	v.SetDefault("simulation.n_batches", 100)
	v.SetDefault("simulation.replace", false)
	v.SetDefault("simulation.max_worker", 5)

	// Database defaults
	v.SetDefault("database.type", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.max_conns", 10)

	// Storage defaults
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./storage")

	// Scheduler defaults
	v.SetDefault("scheduler.poll_interval", 2)
	v.SetDefault("scheduler.worker_count", 5)
	v.SetDefault("scheduler.priority_slots", 2)
	v.SetDefault("scheduler.task_batch_size", 10)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output_path", "./logs")
	v.SetDefault("log.format", "text")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate database config
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Type != "postgres" && c.Database.Type != "mysql" {
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	// Storage config validation is delegated to the storage package.

	if c.Election.A0 <= 0 {
		return fmt.Errorf("election a0 must be > 0")
	}

	if c.Simulation.NElections < 1 {
		return fmt.Errorf("simulation n_elections must be at least 1")
	}
	if c.Simulation.NBallots < 1 {
		return fmt.Errorf("simulation n_ballots must be at least 1")
	}
	if c.Simulation.NBatches < 1 {
		return fmt.Errorf("simulation n_batches must be at least 1")
	}

	if c.Scheduler.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}

	return nil
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	if c.Election.DataDir == "" {
		return nil
	}
	return os.MkdirAll(c.Election.DataDir, 0755)
}

// GetRunDir returns the run-specific directory path.
func (c *Config) GetRunDir(runID string) string {
	return filepath.Join(c.Election.DataDir, runID)
}
