package config

import (
	"errors"
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

var (
	ErrUnknownEnv           = errors.New("unknown env")
	ErrUnknownChatPolicy    = errors.New("unknown chat response policy")
	ErrNegativeRateLimit    = errors.New("rate limit must not be negative")
	ErrNegativeTaskCacheTTL = errors.New("task cache ttl must not be negative")
)

type Reader interface {
	Read() (*Config, error)
}

// EnvReader builds the config from environment variables only.
type EnvReader struct{}

func NewEnvReader() EnvReader {
	return EnvReader{}
}

func (EnvReader) Read() (*Config, error) {
	return read(cleanenv.ReadEnv)
}

// FileReader reads a YAML, JSON, TOML or .env file and then
// lets environment variables override what the file sets.
type FileReader struct {
	path string
}

func NewFileReader(path string) FileReader {
	return FileReader{path: path}
}

func (r FileReader) Read() (*Config, error) {
	return read(func(cfg any) error {
		return cleanenv.ReadConfig(r.path, cfg)
	})
}

func read(fill func(cfg any) error) (*Config, error) {
	cfg := new(Config)
	if err := fill(cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEnv, c.Env)
	}

	switch c.Chat.ResponsePolicy {
	case ChatPolicyStats, ChatPolicyRandom:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChatPolicy, c.Chat.ResponsePolicy)
	}

	if c.RateLimit.ChatRate < 0 || c.RateLimit.ChatBurst < 0 {
		return ErrNegativeRateLimit
	}

	if c.Redis.TaskCacheTTL < 0 {
		return ErrNegativeTaskCacheTTL
	}

	return nil
}
