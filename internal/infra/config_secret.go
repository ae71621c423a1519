package infra

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultSecretsPath is where live API keys live when they are supplied
// neither by environment variables nor by the main config file.
const DefaultSecretsPath = "secrets/live.yaml"

// SecretConfig matches the structure of secrets/live.yaml.
type SecretConfig struct {
	API struct {
		Binance struct {
			APIKey    string `yaml:"api_key"`
			SecretKey string `yaml:"secret_key"`
		} `yaml:"binance"`
	} `yaml:"api"`
}

// LoadSecretConfig loads API keys from a separate yaml file kept out of
// version control. Missing file is an error (fail fast).
func LoadSecretConfig(path string) (*SecretConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret config: %w", err)
	}

	var cfg SecretConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse secret config: %w", err)
	}

	return &cfg, nil
}

func resolveSecretsPath() string {
	if path := os.Getenv("KRONOS_SECRETS_FILE"); path != "" {
		return path
	}
	return DefaultSecretsPath
}

// ApplySecrets merges loaded secrets into the main config, without
// overriding values already set by environment variables.
func (c *Config) ApplySecrets(s *SecretConfig) {
	if c.API.Binance.APIKey == "" {
		c.API.Binance.APIKey = s.API.Binance.APIKey
	}
	if c.API.Binance.SecretKey == "" {
		c.API.Binance.SecretKey = s.API.Binance.SecretKey
	}
}
