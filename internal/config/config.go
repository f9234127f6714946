package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// BridgeConfig is the host-side bridge configuration file.
type BridgeConfig struct {
	Port            uint16   `toml:"port"`
	Development     bool     `toml:"development"`
	ViewerPath      string   `toml:"viewer_path"`
	LogFile         string   `toml:"log_file"`
	StatusAddr      string   `toml:"status_addr"`
	CorsOrigins     []string `toml:"cors_origins"`
	AcceptTimeoutMS int      `toml:"accept_timeout_ms"`
	FetchTimeoutMS  int      `toml:"fetch_timeout_ms"`
	TickTimeoutMS   int      `toml:"tick_timeout_ms"`
}

func LoadBridgeConfig(path string) (BridgeConfig, error) {
	var cfg BridgeConfig
	if err := loadToml(path, &cfg); err != nil {
		return BridgeConfig{}, err
	}
	if cfg.StatusAddr == "" {
		cfg.StatusAddr = ":9590"
	}
	if err := ValidateBridgeConfig(cfg); err != nil {
		return BridgeConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateBridgeConfig(cfg BridgeConfig) error {
	if !cfg.Development && strings.TrimSpace(cfg.ViewerPath) == "" {
		return fmt.Errorf("bridge config missing viewer_path (required outside development mode)")
	}
	if cfg.AcceptTimeoutMS < 0 || cfg.FetchTimeoutMS < 0 || cfg.TickTimeoutMS < 0 {
		return fmt.Errorf("bridge config timeouts must be non-negative")
	}
	return nil
}
