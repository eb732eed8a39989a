package main

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig holds defaults read from a -config file.
// Flags given on the command line take precedence.
type fileConfig struct {
	Workers  *int    `yaml:"workers"`
	Compress *bool   `yaml:"compress"`
	Force    *bool   `yaml:"force"`
	Format   *string `yaml:"format"`
	TreeSize *string `yaml:"tree_size"`
	Filter   *string `yaml:"filter"`
	Verbose  *bool   `yaml:"verbose"`
}

func loadConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &fileConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// applyConfig copies config values into flags that were not set explicitly.
func applyConfig(fs *flag.FlagSet, cfg *fileConfig) {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	if cfg.Workers != nil && !set["workers"] {
		workers = *cfg.Workers
	}
	if cfg.Compress != nil && !set["compress"] {
		compress = *cfg.Compress
	}
	if cfg.Force != nil && !set["force"] {
		forceOverwrite = *cfg.Force
	}
	if cfg.Format != nil && !set["format"] {
		listFormat = *cfg.Format
	}
	if cfg.TreeSize != nil && !set["tree-size"] {
		treeSize = *cfg.TreeSize
	}
	if cfg.Filter != nil && !set["filter"] {
		filter = *cfg.Filter
	}
	if cfg.Verbose != nil && !set["v"] {
		verbose = *cfg.Verbose
	}
}
