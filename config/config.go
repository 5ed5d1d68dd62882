// Package config loads the service configuration from a yaml or json file
// with optional environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/voltgrid/sessiond/core/session"
	"github.com/voltgrid/sessiond/infra/cpproxy"
	"github.com/voltgrid/sessiond/infra/telemetry"
)

type Config struct {
	Proxy     cpproxy.Config   `json:"proxy"`
	Registry  session.Config   `json:"registry"`
	API       APIConfig        `json:"api"`
	Metrics   MetricsConfig    `json:"metrics"`
	Logging   LoggingConfig    `json:"logging"`
	Telemetry telemetry.Config `json:"telemetry"`
	// SeedFile points to a json file with the connectors, tariffs and
	// account balances loaded at startup.
	SeedFile string `json:"seed_file"`
}

// APIConfig defines the HTTP listener.
type APIConfig struct {
	Addr string `json:"addr"`
}

// SetDefaults applies sane defaults.
func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("SESSIOND_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "sessiond_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Proxy.SetDefaults()
	cfg.Registry.SetDefaults()
	cfg.API.SetDefaults()
	cfg.Logging.SetDefaults()
	if err := cfg.Registry.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Logging.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
