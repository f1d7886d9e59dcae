package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"freehost.io/collab/collab"
)

// resolved runtime configuration for hubd.
// file defaults, then FREEHOST_* environment overrides, then flags.

type Config struct {
	ApiPort      int
	JwtSecret    string
	SessionTtl   time.Duration
	BcryptCost   int
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	PingTimeout  time.Duration
}

// mirrors the yaml schema of configs/hubd.yaml
type configFile struct {
	Api struct {
		Port int `yaml:"port"`
	} `yaml:"api"`
	Session struct {
		JwtSecret  string `yaml:"jwt_secret"`
		Ttl        string `yaml:"ttl"`
		BcryptCost int    `yaml:"bcrypt_cost"`
	} `yaml:"session"`
	Realtime struct {
		WriteTimeout string `yaml:"write_timeout"`
		ReadTimeout  string `yaml:"read_timeout"`
		PingTimeout  string `yaml:"ping_timeout"`
	} `yaml:"realtime"`
}

func DefaultConfig() *Config {
	realtimeSettings := collab.DefaultRealtimeSettings()
	sessionSettings := collab.DefaultSessionSettings()
	return &Config{
		ApiPort:      8080,
		JwtSecret:    string(sessionSettings.JwtSecret),
		SessionTtl:   sessionSettings.TokenTtl,
		BcryptCost:   sessionSettings.BcryptCost,
		WriteTimeout: realtimeSettings.WriteTimeout,
		ReadTimeout:  realtimeSettings.ReadTimeout,
		PingTimeout:  realtimeSettings.PingTimeout,
	}
}

func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		fileBytes, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		file := &configFile{}
		if err := yaml.Unmarshal(fileBytes, file); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		if 0 < file.Api.Port {
			config.ApiPort = file.Api.Port
		}
		if file.Session.JwtSecret != "" {
			config.JwtSecret = file.Session.JwtSecret
		}
		if 0 < file.Session.BcryptCost {
			config.BcryptCost = file.Session.BcryptCost
		}
		if err := overrideDuration(&config.SessionTtl, file.Session.Ttl); err != nil {
			return nil, err
		}
		if err := overrideDuration(&config.WriteTimeout, file.Realtime.WriteTimeout); err != nil {
			return nil, err
		}
		if err := overrideDuration(&config.ReadTimeout, file.Realtime.ReadTimeout); err != nil {
			return nil, err
		}
		if err := overrideDuration(&config.PingTimeout, file.Realtime.PingTimeout); err != nil {
			return nil, err
		}
	}

	if portStr := os.Getenv("FREEHOST_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("FREEHOST_PORT: %w", err)
		}
		config.ApiPort = port
	}
	if secret := os.Getenv("FREEHOST_JWT_SECRET"); secret != "" {
		config.JwtSecret = secret
	}
	if ttlStr := os.Getenv("FREEHOST_SESSION_TTL"); ttlStr != "" {
		ttl, err := time.ParseDuration(ttlStr)
		if err != nil {
			return nil, fmt.Errorf("FREEHOST_SESSION_TTL: %w", err)
		}
		config.SessionTtl = ttl
	}

	return config, nil
}

func overrideDuration(out *time.Duration, value string) error {
	if value == "" {
		return nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("duration %q: %w", value, err)
	}
	*out = duration
	return nil
}

func (self *Config) HubSettings() *collab.HubSettings {
	settings := collab.DefaultHubSettings()
	settings.Session.JwtSecret = []byte(self.JwtSecret)
	settings.Session.TokenTtl = self.SessionTtl
	settings.Session.BcryptCost = self.BcryptCost
	return settings
}

func (self *Config) RealtimeSettings() *collab.RealtimeSettings {
	settings := collab.DefaultRealtimeSettings()
	settings.WriteTimeout = self.WriteTimeout
	settings.ReadTimeout = self.ReadTimeout
	settings.PingTimeout = self.PingTimeout
	return settings
}
