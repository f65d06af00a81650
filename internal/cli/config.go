package cli

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration lets yaml values like "1h" or "30m" decode into a
// time.Duration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	td, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(td)
	return nil
}

// Config represents the taskdeck.yaml configuration structure
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Database struct {
		URL            string `yaml:"url"`
		MaxConnections int    `yaml:"max_connections"`
	} `yaml:"database"`

	Identity struct {
		BaseURL    string `yaml:"base_url"`
		ServiceKey string `yaml:"service_key"`
	} `yaml:"identity"`

	Auth struct {
		JWTSecret string   `yaml:"jwt_secret"`
		TokenTTL  Duration `yaml:"token_ttl"`
	} `yaml:"auth"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// LoadConfig reads the config file, falling back through the default
// search locations when no path is given. Environment variables override
// file values for the connection and secret settings.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		locations := []string{"taskdeck.yaml", "taskdeck.yml", ".taskdeck.yaml", ".taskdeck.yml"}
		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	config := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		config.Database.URL = v
	}
	if v := os.Getenv("IDENTITY_BASE_URL"); v != "" {
		config.Identity.BaseURL = v
	}
	if v := os.Getenv("IDENTITY_SERVICE_KEY"); v != "" {
		config.Identity.ServiceKey = v
	}
	if v := os.Getenv("AUTH_JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
	if config.Database.MaxConnections == 0 {
		config.Database.MaxConnections = 25
	}
	if config.Auth.TokenTTL == 0 {
		config.Auth.TokenTTL = Duration(7 * 24 * time.Hour)
	}
	if config.Log.Level == "" {
		config.Log.Level = "warn"
	}

	return config, nil
}
