package tool

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"

	"github.com/moyoez/sharesession/types"
)

var (
	ConfigPath    = "config.yaml" // be aware that it can be changed, default to ./config.yaml
	CurrentConfig types.AppConfig
)

const DefaultAcceptTimeout = 60 * time.Second

func defaultConfig() types.AppConfig {
	return types.AppConfig{
		Alias:                    NameGenerator(),
		DeviceType:               "headless",
		ListenAddress:            ":53318",
		APIAddress:               "127.0.0.1:53319",
		DownloadFolder:           "downloads",
		AcceptTimeout:            DefaultAcceptTimeout,
		CancellationOptimization: true,
		AutoAccept:               true,
		AllowUnverifiedPeers:     true,
		NotifyWS:                 true,
		LogLevel:                 "dev",
	}
}

// LoadConfig reads the YAML config at path, creating it with defaults when
// missing, then applies SHARE_* environment overrides.
func LoadConfig(path string) (types.AppConfig, error) {
	if path == "" {
		path = ConfigPath
	}
	ConfigPath = path

	cfg := defaultConfig()

	info, err := os.Stat(path)
	switch {
	case err != nil && os.IsNotExist(err):
		if writeErr := writeDefaultConfig(path, cfg); writeErr != nil {
			return cfg, fmt.Errorf("config file not found, and failed to generate default config: %v", writeErr)
		}
		DefaultLogger.Infof("Created new config file at %s", path)
	case err != nil:
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	case info.IsDir():
		return cfg, fmt.Errorf("config file path is a directory: %s", path)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %v", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %v", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to apply environment overrides: %v", err)
	}
	if cfg.AcceptTimeout <= 0 {
		cfg.AcceptTimeout = DefaultAcceptTimeout
	}
	if cfg.Alias == "" {
		cfg.Alias = NameGenerator()
	}

	CurrentConfig = cfg
	return cfg, nil
}

// ApplyFlagOverrides merges CLI flags into the loaded config. Flags win over
// both the file and the environment.
func ApplyFlagOverrides(cfg *types.AppConfig, flags types.Config) {
	if flags.UseAlias != "" {
		cfg.Alias = flags.UseAlias
	}
	if flags.UseListen != "" {
		cfg.ListenAddress = flags.UseListen
	}
	if flags.UseAPI != "" {
		cfg.APIAddress = flags.UseAPI
	}
	if flags.UseDownload != "" {
		cfg.DownloadFolder = flags.UseDownload
	}
	if flags.UsePin != "" {
		cfg.Pin = flags.UsePin
	}
	if flags.Log != "" {
		cfg.LogLevel = flags.Log
	}
	CurrentConfig = *cfg
}

func writeDefaultConfig(path string, cfg types.AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func GetCurrentConfig() *types.AppConfig {
	return &CurrentConfig
}
