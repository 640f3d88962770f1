package backend

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// LoadOpenAIConfig reads OpenAIConfig from the environment.
func LoadOpenAIConfig() (OpenAIConfig, error) {
	var cfg OpenAIConfig
	if err := env.Parse(&cfg); err != nil {
		return OpenAIConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
