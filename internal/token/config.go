// internal/token/config.go
package token

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// MetadataConfig describes the token to create (token_config.yaml).
type MetadataConfig struct {
	Name        string `yaml:"name"`
	Symbol      string `yaml:"symbol"`
	Description string `yaml:"description"`
	ImagePath   string `yaml:"image_path"`
	Twitter     string `yaml:"twitter"`
	Telegram    string `yaml:"telegram"`
	Website     string `yaml:"website"`
	ShowName    bool   `yaml:"show_name"`
}

// LoadMetadataConfig reads the YAML file. A relative image_path is taken
// relative to the config file.
func LoadMetadataConfig(path string) (MetadataConfig, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return MetadataConfig{}, fmt.Errorf("failed to read file: %w", err)
	}

	var cfg MetadataConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return MetadataConfig{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return MetadataConfig{}, err
	}
	if cfg.ImagePath != "" && !filepath.IsAbs(cfg.ImagePath) {
		cfg.ImagePath = filepath.Join(filepath.Dir(path), cfg.ImagePath)
	}
	return cfg, nil
}

func (c MetadataConfig) Validate() error {
	switch {
	case c.Name == "":
		return errors.New("token name is required")
	case c.Symbol == "":
		return errors.New("token symbol is required")
	case len(c.Symbol) > 10:
		return fmt.Errorf("token symbol %q is longer than 10 characters", c.Symbol)
	}
	return nil
}
