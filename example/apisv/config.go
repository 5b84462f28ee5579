// Copyright (c) 2022 Hirotsuna Mizuno. All rights reserved.
// Use of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// svConfig holds the server configuration, optionally loaded from a YAML
// file. Absent keys keep their defaults.
type svConfig struct {
	Listen     string `yaml:"listen"`
	CacheDir   string `yaml:"cache_dir"`
	Prefix     string `yaml:"prefix"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// loadConfig reads the YAML configuration at path, or returns the defaults if
// path is empty.
func loadConfig(path string) (*svConfig, error) {
	conf := &svConfig{
		Listen:     ":8080",
		CacheDir:   "/tmp/go-cachefile-example",
		Prefix:     "report",
		TTLSeconds: 600,
	}
	if path == "" {
		return conf, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, conf); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return conf, nil
}
