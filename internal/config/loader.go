package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix     = "TRIO_"
	envConfig     = "TRIO_CONFIG"
	envDotFile    = "TRIO_ENV_FILE"
	defaultDotEnv = ".env"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if TRIO_CONFIG is set
//  3. env (prefix TRIO_), after filling unset vars from .env (or TRIO_ENV_FILE)
func Load(_ context.Context) (*Config, error) {
	base := New()
	k := koanf.New(".")

	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// TRIO_QUEUE_SIZE -> queue_size; list values are comma separated and
	// TRIO_METRICS_LABELS takes "k=v,k2=v2".
	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, any) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(envPrefix))
		if key == "config" || key == "env_file" {
			return "", nil
		}
		switch key {
		case "cors_origins":
			return key, splitList(value)
		case "metrics_labels":
			return key, splitPairs(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv copies a dotenv file into the process env without
// overriding variables that are already set. A missing file is fine.
func loadDotEnv() error {
	path := os.Getenv(envDotFile)
	if path == "" {
		path = defaultDotEnv
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitPairs parses "k=v,k2=v2". Entries without "=" are kept with an
// empty value so Validate can still see the key.
func splitPairs(v string) map[string]any {
	out := make(map[string]any)
	for _, item := range splitList(v) {
		key, val, _ := strings.Cut(item, "=")
		out[strings.TrimSpace(key)] = strings.TrimSpace(val)
	}
	return out
}
