// Package config loads skylift's settings: defaults, then an optional YAML
// file, then environment variable overrides, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	AWS      AWSConfig    `yaml:"aws"`
	Store    StoreConfig  `yaml:"store"`
	Deploy   DeployConfig `yaml:"deploy"`
	Server   ServerConfig `yaml:"server"`
	LogLevel string       `yaml:"log_level"`
	// AllowWrite enables the mutating operations (deploy, update,
	// configure-domain, delete). Off by default: a misconfigured
	// invocation can only read.
	AllowWrite bool `yaml:"allow_write"`
}

type AWSConfig struct {
	Region  string `yaml:"region"`
	Profile string `yaml:"profile"`
}

type StoreConfig struct {
	// Path is the sqlite database holding deployment records.
	Path string `yaml:"path"`
}

type DeployConfig struct {
	Deadline     time.Duration `yaml:"deadline"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// UnmarshalYAML accepts durations in Go syntax ("15m", "30s") instead of
// raw nanosecond integers.
func (d *DeployConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Deadline     string `yaml:"deadline"`
		PollInterval string `yaml:"poll_interval"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Deadline != "" {
		parsed, err := time.ParseDuration(raw.Deadline)
		if err != nil {
			return fmt.Errorf("deploy.deadline: %w", err)
		}
		d.Deadline = parsed
	}
	if raw.PollInterval != "" {
		parsed, err := time.ParseDuration(raw.PollInterval)
		if err != nil {
			return fmt.Errorf("deploy.poll_interval: %w", err)
		}
		d.PollInterval = parsed
	}
	return nil
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

func defaults() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		AWS: AWSConfig{Region: "us-east-1"},
		Store: StoreConfig{
			Path: filepath.Join(home, ".skylift", "deployments.db"),
		},
		Deploy: DeployConfig{
			Deadline:     15 * time.Minute,
			PollInterval: 5 * time.Second,
		},
		Server:   ServerConfig{Addr: ":8220"},
		LogLevel: "info",
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and environment overrides apply; a named file that does not
// exist is an error, so typos in --config fail loudly.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if region := os.Getenv("SKYLIFT_REGION"); region != "" {
		cfg.AWS.Region = region
	}
	if profile := os.Getenv("SKYLIFT_PROFILE"); profile != "" {
		cfg.AWS.Profile = profile
	}
	if store := os.Getenv("SKYLIFT_STORE"); store != "" {
		cfg.Store.Path = store
	}
	if addr := os.Getenv("SKYLIFT_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if level := os.Getenv("SKYLIFT_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if allow := os.Getenv("SKYLIFT_ALLOW_WRITE"); allow == "true" || allow == "1" {
		cfg.AllowWrite = true
	}

	return cfg, nil
}
