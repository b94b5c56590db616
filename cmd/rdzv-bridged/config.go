package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the daemon's runtime configuration.
type Config struct {
	Listen   string
	Backend  string
	LogLevel string
}

func defaultConfig() Config {
	return Config{
		Listen:   "127.0.0.1:7070",
		Backend:  "mem",
		LogLevel: "info",
	}
}

// rdzv-bridged config.toml key mapping.
type fileConfig struct {
	Listen   string `toml:"listen"`
	Backend  string `toml:"backend"`
	LogLevel string `toml:"log_level"`
}

// loadConfig overlays the TOML file at path onto cfg. Only keys present in
// the file are applied, so the file can be partial.
func loadConfig(path string, cfg Config) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load bridged config: %w", err)
	}

	if meta.IsDefined("listen") {
		cfg.Listen = strings.TrimSpace(raw.Listen)
	}
	if meta.IsDefined("backend") {
		cfg.Backend = strings.TrimSpace(raw.Backend)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("load bridged config: unknown keys: %s", strings.Join(keys, ", "))
	}
	return cfg, nil
}
