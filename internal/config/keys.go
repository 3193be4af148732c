package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "gateway.base_url", typ: kString, env: "PAPERSHELF_GATEWAY_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Gateway.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Gateway.BaseURL },
	},
	{
		key: "gateway.timeout", typ: kString, env: "PAPERSHELF_GATEWAY_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Gateway.Timeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Gateway.Timeout },
	},
	{
		key: "query.top_k", typ: kInt, env: "PAPERSHELF_QUERY_TOP_K",
		apply:   func(cfg *Config, v any) { cfg.Query.TopK = v.(int) },
		extract: func(cfg Config) any { return cfg.Query.TopK },
	},
	{
		key: "storage.data_dir", typ: kString, env: "PAPERSHELF_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "web.port", typ: kInt, env: "PAPERSHELF_WEB_PORT",
		apply:   func(cfg *Config, v any) { cfg.Web.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Web.Port },
	},
	{
		key: "log.level", typ: kString, env: "PAPERSHELF_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
