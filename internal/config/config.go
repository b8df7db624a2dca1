// Package config loads docquiz settings from an optional YAML file and
// DOCQUIZ_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/docquiz/internal/assembler"
	"github.com/abhisek/docquiz/internal/llm"
	"github.com/abhisek/docquiz/internal/logging"
	"github.com/abhisek/docquiz/internal/quizgen"
)

// DefaultStartingBalance is the credit balance new principals receive.
const DefaultStartingBalance = 20

type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	LLM        llm.Config       `yaml:"llm"`
	Generation GenerationConfig `yaml:"generation"`
	Credits    CreditsConfig    `yaml:"credits"`
	Log        logging.Config   `yaml:"log"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite or postgres
	DSN    string `yaml:"dsn"`    // empty uses the default sqlite path
}

// RedisConfig enables the Redis balance store and quiz cache when Addr is
// set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	QuizTTL  time.Duration `yaml:"quiz_ttl"`
}

// Enabled reports whether a Redis address is configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

type GenerationConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	MaxTokens         int           `yaml:"max_tokens"`
	TokensPerQuestion int           `yaml:"tokens_per_question"`
	Temperature       float64       `yaml:"temperature"`
}

type CreditsConfig struct {
	DefaultBalance int64 `yaml:"default_balance"`
}

// Default returns the built-in configuration.
func Default() Config {
	gen := quizgen.DefaultConfig()
	return Config{
		Database: DatabaseConfig{Driver: "sqlite"},
		Redis:    RedisConfig{QuizTTL: time.Hour},
		LLM:      llm.DefaultConfig(),
		Generation: GenerationConfig{
			Timeout:           assembler.DefaultConfig().GenerationTimeout,
			MaxTokens:         gen.MaxTokens,
			TokensPerQuestion: gen.TokensPerQuestion,
			Temperature:       gen.Temperature,
		},
		Credits: CreditsConfig{DefaultBalance: DefaultStartingBalance},
		Log:     logging.DefaultConfig(),
	}
}

// Load returns the defaults overlaid with the YAML file at path (if path
// is non-empty) and then with environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with DOCQUIZ_* environment variables that are set.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("DOCQUIZ_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("DOCQUIZ_DB_DSN"); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv("DOCQUIZ_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("DOCQUIZ_REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("DOCQUIZ_REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DOCQUIZ_REDIS_DB: %w", err)
		}
		c.Redis.DB = n
	}

	if v := os.Getenv("DOCQUIZ_GENERATION_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("DOCQUIZ_GENERATION_TIMEOUT: %w", err)
		}
		c.Generation.Timeout = d
	}

	if v := os.Getenv("DOCQUIZ_DEFAULT_BALANCE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("DOCQUIZ_DEFAULT_BALANCE: %w", err)
		}
		c.Credits.DefaultBalance = n
	}

	if v := os.Getenv("DOCQUIZ_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("DOCQUIZ_LOG_FILE"); v != "" {
		c.Log.File = v
	}

	c.LLM.ApplyEnv()
	return nil
}

// Validate checks settings that do not depend on which command runs. The
// LLM section is validated only when a backend is actually needed.
func (c Config) Validate() error {
	var result *multierror.Error
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		result = multierror.Append(result, fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver))
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		result = multierror.Append(result, errors.New("database.dsn is required for postgres"))
	}
	if c.Generation.Timeout <= 0 {
		result = multierror.Append(result, errors.New("generation.timeout must be positive"))
	}
	if c.Generation.MaxTokens <= 0 {
		result = multierror.Append(result, errors.New("generation.max_tokens must be positive"))
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 1 {
		result = multierror.Append(result, errors.New("generation.temperature must be within [0,1]"))
	}
	if c.Credits.DefaultBalance < 0 {
		result = multierror.Append(result, errors.New("credits.default_balance must not be negative"))
	}
	return result.ErrorOrNil()
}

// QuizGen returns the generator settings.
func (c Config) QuizGen() quizgen.Config {
	return quizgen.Config{
		MaxTokens:         c.Generation.MaxTokens,
		TokensPerQuestion: c.Generation.TokensPerQuestion,
		Temperature:       c.Generation.Temperature,
	}
}

// Assembler returns the assembly settings.
func (c Config) Assembler() assembler.Config {
	return assembler.Config{GenerationTimeout: c.Generation.Timeout}
}
