// Package config loads service settings from a YAML file, an optional .env
// file and environment variables, in increasing order of precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"sidekick-route-service/internal/energy"
)

type ServerConfig struct {
	Port            string        `yaml:"port"`
	ReadTimeoutStr  string        `yaml:"read_timeout"`
	WriteTimeoutStr string        `yaml:"write_timeout"`
	ReadTimeout     time.Duration `yaml:"-"`
	WriteTimeout    time.Duration `yaml:"-"`
}

// DatabaseConfig selects the run store. Driver is "sqlite" or "postgres".
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	URL    string `yaml:"url"`
}

type PlannerConfig struct {
	TimeBudgetStr       string        `yaml:"time_budget"`
	TimeBudget          time.Duration `yaml:"-"`
	Drones              int           `yaml:"drones"`
	RequireTruckAtDepot bool          `yaml:"require_truck_at_depot"`
	RequireDriver       bool          `yaml:"require_driver"`
}

type EnergyConfig struct {
	ModelName     string `yaml:"model"`
	energy.Params `yaml:",inline"`
}

type ORSConfig struct {
	APIKey            string `yaml:"api_key"`
	BaseURL           string `yaml:"base_url"`
	Profile           string `yaml:"profile"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Planner  PlannerConfig  `yaml:"planner"`
	Energy   EnergyConfig   `yaml:"energy"`
	ORS      ORSConfig      `yaml:"ors"`
	Redis    RedisConfig    `yaml:"redis"`
}

func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeoutStr:  "15s",
			WriteTimeoutStr: "5m",
		},
		Database: DatabaseConfig{Driver: "sqlite", Path: "data/sidekick.db"},
		Planner: PlannerConfig{
			TimeBudgetStr:       "60s",
			Drones:              1,
			RequireTruckAtDepot: true,
			RequireDriver:       true,
		},
		Energy: EnergyConfig{ModelName: energy.ModelLinear.String(), Params: energy.DefaultParams()},
	}
}

// Get returns the environment value for key, or fallback when unset or blank.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// Load builds the configuration. path may be empty to skip the YAML file.
// envFiles are loaded with godotenv before overrides are read; with none
// given, ./.env is used when present. Variables already set in the
// environment win over .env entries.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	if len(envFiles) == 0 {
		if _, err := os.Stat(".env"); err == nil {
			envFiles = []string{".env"}
		}
	}
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load config: env file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.finish(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Server.Port = Get("PORT", c.Server.Port)
	c.Database.Driver = Get("DB_DRIVER", c.Database.Driver)
	c.Database.Path = Get("DB_PATH", c.Database.Path)
	c.Database.URL = Get("DATABASE_URL", c.Database.URL)
	c.Redis.URL = Get("REDIS_URL", c.Redis.URL)
	c.ORS.APIKey = Get("ORS_API_KEY", c.ORS.APIKey)
	c.Planner.TimeBudgetStr = Get("PLANNER_TIME_BUDGET", c.Planner.TimeBudgetStr)
	c.Energy.ModelName = Get("ENERGY_MODEL", c.Energy.ModelName)

	if v := Get("PLANNER_DRONES", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("load config: PLANNER_DRONES: %w", err)
		}
		c.Planner.Drones = n
	}
	// A DATABASE_URL without an explicit driver means Postgres.
	if c.Database.URL != "" && os.Getenv("DB_DRIVER") == "" {
		c.Database.Driver = "postgres"
	}
	return nil
}

func (c *Config) finish() error {
	var err error
	if c.Server.ReadTimeout, err = time.ParseDuration(c.Server.ReadTimeoutStr); err != nil {
		return fmt.Errorf("load config: server.read_timeout: %w", err)
	}
	if c.Server.WriteTimeout, err = time.ParseDuration(c.Server.WriteTimeoutStr); err != nil {
		return fmt.Errorf("load config: server.write_timeout: %w", err)
	}
	if c.Planner.TimeBudget, err = time.ParseDuration(c.Planner.TimeBudgetStr); err != nil {
		return fmt.Errorf("load config: planner.time_budget: %w", err)
	}
	if c.Energy.Model, err = energy.ParseModel(c.Energy.ModelName); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("load config: database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("load config: database.url is required for postgres")
		}
	default:
		return fmt.Errorf("load config: unknown database driver %q", c.Database.Driver)
	}
	if c.Planner.Drones < 0 {
		return errors.New("load config: planner.drones must not be negative")
	}
	return nil
}
