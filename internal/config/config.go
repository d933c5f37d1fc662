// Package config loads the spawner daemon configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Global holds the engine-wide behavior flags.
type Global struct {
	CullOnStop bool `yaml:"cull_on_stop"` // despawn spawner creatures on shutdown
	StatBudget int  `yaml:"stat_budget"`  // 0 → engine default
}

// WorldGen holds demo terrain parameters for the built-in world.
type WorldGen struct {
	Seed      int64   `yaml:"seed"`
	Radius    int32   `yaml:"radius"`
	BaseY     int32   `yaml:"base_y"`
	Amplitude float64 `yaml:"amplitude"`
	WaterY    int32   `yaml:"water_y"`
}

// Server holds all configuration for the spawner daemon.
type Server struct {
	LogLevel string `yaml:"log_level"`

	// Tick loop period in milliseconds.
	TickMillis int `yaml:"tick_millis"`

	// Persistence; an empty host means the in-memory store (no database).
	Database DatabaseConfig `yaml:"database"`

	// Species/item catalog file; empty uses the built-in demo set.
	CatalogPath string `yaml:"catalog_path"`

	// Ops endpoint (websocket event stream + inspection); empty disables.
	OpsBind string `yaml:"ops_bind"`

	Global Global   `yaml:"global"`
	World  WorldGen `yaml:"world"`
}

// DefaultServer returns Server config with sensible defaults.
func DefaultServer() Server {
	return Server{
		LogLevel:   "info",
		TickMillis: 50,
		OpsBind:    "127.0.0.1:8765",
		Global: Global{
			CullOnStop: true,
		},
		World: WorldGen{
			Seed:      1,
			Radius:    64,
			BaseY:     64,
			Amplitude: 8,
			WaterY:    60,
		},
		Database: DatabaseConfig{
			Port:    5432,
			SSLMode: "disable",
		},
	}
}

// TickInterval returns the tick loop period as a duration.
func (s Server) TickInterval() time.Duration {
	return time.Duration(s.TickMillis) * time.Millisecond
}

// LoadServer reads the server config from a YAML file, applying defaults for
// absent fields. A missing file returns pure defaults.
func LoadServer(path string) (Server, error) {
	cfg := DefaultServer()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}
