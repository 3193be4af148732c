// Package config holds client settings: the gateway address, local data
// directory, retrieval depth, and web UI port. Values come from a JSON file
// backend with environment variable overrides on top.
package config

import "time"

type Config struct {
	Gateway GatewayConfig
	Query   QueryConfig
	Storage StorageConfig
	Web     WebConfig
	Log     LogConfig
}

type GatewayConfig struct {
	BaseURL string
	Timeout string
}

// TimeoutDuration parses the configured timeout, falling back to 30s on an
// empty or unparseable value.
func (g GatewayConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(g.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

type QueryConfig struct {
	TopK int
}

type StorageConfig struct {
	DataDir string
}

type WebConfig struct {
	Port int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Gateway: GatewayConfig{
			BaseURL: "http://localhost:8000",
			Timeout: "30s",
		},
		Query: QueryConfig{
			TopK: 5,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Web: WebConfig{
			Port: 3000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file at
// $XDG_CONFIG_HOME/papershelf/config.json and applies PAPERSHELF_*
// environment overrides on top.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}
