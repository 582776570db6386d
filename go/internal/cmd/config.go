package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the optional file-based hub configuration. Every value can be
// overridden through environment variables; the file just sets defaults for
// a deployment.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	NATS struct {
		URL              string `yaml:"url"`
		AuthToken        string `yaml:"auth_token"`
		MaxReconnects    int    `yaml:"max_reconnects"`
		ReconnectWaitSec int    `yaml:"reconnect_wait_seconds"`
	} `yaml:"nats"`
	Stats struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"stats"`
}

func defaultConfig() *Config {
	var config Config
	config.Server.Port = "8080"
	config.NATS.URL = "nats://localhost:4222"
	config.NATS.MaxReconnects = -1
	config.NATS.ReconnectWaitSec = 2
	config.Stats.Enabled = true
	return &config
}

func loadConfig(path string) (*Config, error) {
	config := defaultConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return config, nil
}

// applyEnv layers environment overrides on top of the file values.
func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.NATS.AuthToken = getEnv("NATS_AUTH_TOKEN", c.NATS.AuthToken)
	c.NATS.MaxReconnects = getEnvAsInt("NATS_MAX_RECONNECTS", c.NATS.MaxReconnects)
	c.NATS.ReconnectWaitSec = getEnvAsInt("NATS_RECONNECT_WAIT_SECONDS", c.NATS.ReconnectWaitSec)
	if value := os.Getenv("STATS_ENABLED"); value != "" {
		c.Stats.Enabled = value == "true" || value == "1"
	}
}

func (c *Config) reconnectWait() time.Duration {
	return time.Duration(c.NATS.ReconnectWaitSec) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
