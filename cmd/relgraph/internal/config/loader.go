// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the repository's relgraph configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// Dir is the configuration directory relative to the repository root.
	Dir = ".relgraph"

	// FileName is the configuration file inside Dir.
	FileName = "config.yaml"

	// EnvLogLevel overrides log.level.
	EnvLogLevel = "RELGRAPH_LOG_LEVEL"

	// EnvLogJSON overrides log.json. Accepts strconv.ParseBool values.
	EnvLogJSON = "RELGRAPH_LOG_JSON"
)

// ErrConfigNotFound is returned by Load when the repository has no
// configuration file.
var ErrConfigNotFound = errors.New("relgraph configuration not found")

// Path returns the configuration file path for a repository root.
func Path(repoRoot string) string {
	return filepath.Join(repoRoot, Dir, FileName)
}

// Load reads, defaults, overrides and validates the configuration of the
// repository rooted at repoRoot.
func Load(repoRoot string) (*RelgraphConfig, error) {
	path := Path(repoRoot)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read the config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(data []byte) (*RelgraphConfig, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse the config: %w", err)
	}
	return &cfg, nil
}

// ApplyEnv applies environment overrides. lookup is normally os.LookupEnv.
func (c *RelgraphConfig) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvLogJSON); ok && v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidConfig, EnvLogJSON, v)
		}
		c.Log.JSON = b
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c *RelgraphConfig) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
