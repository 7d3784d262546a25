package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Storage backends for persisted player documents.
const (
	StorageFile   = "file"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

type Config struct {
	Server struct {
		Port string `yaml:"port" env:"QUIZ_SERVER_PORT"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr" env:"QUIZ_REDIS_ADDR"`
		Password string `yaml:"password" env:"QUIZ_REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"QUIZ_REDIS_DB"`
		TTL      string `yaml:"ttl" env:"QUIZ_REDIS_TTL"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" env:"QUIZ_POSTGRES_URL"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL              string   `yaml:"ttl" env:"QUIZ_CACHE_TTL"`
		TimePerQuestion  string   `yaml:"timePerQuestion" env:"QUIZ_TIME_PER_QUESTION"`
		RandomizeOptions bool     `yaml:"randomizeOptions" env:"QUIZ_RANDOMIZE_OPTIONS"`
		Topics           []string `yaml:"topics" env:"QUIZ_TOPICS" envSeparator:","`
		Difficulty       string   `yaml:"difficulty" env:"QUIZ_DIFFICULTY"`
		CatalogDir       string   `yaml:"catalogDir" env:"QUIZ_CATALOG_DIR"`
	} `yaml:"quiz"`
	Storage struct {
		Backend string `yaml:"backend" env:"QUIZ_STORAGE_BACKEND"`
		DataDir string `yaml:"dataDir" env:"QUIZ_DATA_DIR"`
	} `yaml:"storage"`
	Player struct {
		Name string `yaml:"name" env:"QUIZ_PLAYER_NAME"`
	} `yaml:"player"`
}

// Load reads YAML config from path, then applies QUIZ_* environment overrides.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	return load(path, env.Options{})
}

// LoadWithEnv is Load with an explicit environment instead of the process one.
func LoadWithEnv(path string, environ map[string]string) (Config, error) {
	return load(path, env.Options{Environment: environ})
}

func load(path string, opts env.Options) (Config, error) {
	cfg := Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageFile
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Quiz.Difficulty == "" {
		c.Quiz.Difficulty = "medium"
	}
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case StorageFile, StorageMemory:
	case StorageRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("storage backend redis requires redis.addr")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
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
