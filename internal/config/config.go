package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Leaderboard backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	Server struct {
		Port        string   `yaml:"port"`
		CORSOrigins []string `yaml:"corsOrigins"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Dataset struct {
		// Source is "csv" (default) or "postgres".
		Source string `yaml:"source"`
		Path   string `yaml:"path"`
		TTL    string `yaml:"ttl"`
		Seed   int64  `yaml:"seed"`
	} `yaml:"dataset"`
	Game struct {
		RoundSize   int    `yaml:"roundSize"`
		IdleTimeout string `yaml:"idleTimeout"`
	} `yaml:"game"`
	Leaderboard struct {
		Backend string `yaml:"backend"`
		Path    string `yaml:"path"`
		Key     string `yaml:"key"`
		Policy  string `yaml:"policy"`
		TopK    int    `yaml:"topK"`
	} `yaml:"leaderboard"`
}

// Default returns the configuration used when no file is present: the CSV
// dataset next to the binary and a JSON leaderboard file.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Dataset.Source = "csv"
	cfg.Dataset.Path = "movies.csv"
	cfg.Game.RoundSize = 10
	cfg.Leaderboard.Backend = BackendFile
	cfg.Leaderboard.Path = "leaderboard.json"
	cfg.Leaderboard.Policy = "latest"
	cfg.Leaderboard.TopK = 10
	return cfg
}

// Load reads YAML config from path on top of Default. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate rejects combinations the server cannot start with.
func (c Config) Validate() error {
	switch c.Leaderboard.Backend {
	case BackendMemory, BackendFile:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("leaderboard backend redis needs redis.addr")
		}
	case BackendPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("leaderboard backend postgres needs postgres.url")
		}
	default:
		return fmt.Errorf("unknown leaderboard backend %q", c.Leaderboard.Backend)
	}
	switch c.Dataset.Source {
	case "", "csv":
		if c.Dataset.Path == "" {
			return fmt.Errorf("dataset.path is required for the csv source")
		}
	case "postgres":
		if c.Postgres.URL == "" {
			return fmt.Errorf("dataset source postgres needs postgres.url")
		}
	default:
		return fmt.Errorf("unknown dataset source %q", c.Dataset.Source)
	}
	if c.Game.RoundSize < 0 {
		return fmt.Errorf("game.roundSize must not be negative")
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
