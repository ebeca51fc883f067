// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the settings of sptensor from YAML or TOML files.
package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"github.com/gx-org/sptensor/base/fmterr"
	"github.com/gx-org/sptensor/pack"
	"github.com/gx-org/sptensor/storage"
	"github.com/gx-org/sptensor/tensor"
)

// Log output formats.
const (
	TextFormat = "text"
	JSONFormat = "json"
)

// Config of the tensors created by a program.
type Config struct {
	// AllocSize is the number of elements allocated for the variable-length
	// index arrays of results.
	AllocSize int `yaml:"alloc_size" toml:"alloc_size"`
	// Duplicates is the policy applied to duplicate coordinates when packing:
	// sum, keep-last, or reject.
	Duplicates string `yaml:"duplicates" toml:"duplicates"`
	// SortWorkers is the number of goroutines sorting coordinates.
	SortWorkers int `yaml:"sort_workers" toml:"sort_workers"`
	// ParallelSortThreshold is the number of entries from which the
	// coordinates are sorted in parallel.
	ParallelSortThreshold int `yaml:"parallel_sort_threshold" toml:"parallel_sort_threshold"`

	LogLevel  string `yaml:"log_level" toml:"log_level"`
	LogFormat string `yaml:"log_format" toml:"log_format"`
}

// Default returns the default configuration.
func Default() Config {
	opts := pack.DefaultOptions()
	return Config{
		AllocSize:             tensor.DefaultAllocSize,
		Duplicates:            opts.Duplicates.String(),
		SortWorkers:           opts.SortWorkers,
		ParallelSortThreshold: opts.ParallelSortThreshold,
		LogLevel:              "info",
		LogFormat:             TextFormat,
	}
}

// Load reads a configuration from a .yaml, .yml, or .toml file.
// Fields absent from the file keep their default value.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.WithStack(err)
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".toml":
		_, err = toml.Decode(string(data), &cfg)
	default:
		return Config{}, fmterr.Usagef("configuration %s: unknown extension %q", path, ext)
	}
	if err != nil {
		return Config{}, fmterr.Usagef("configuration %s: %v", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrapf(err, "configuration %s", path)
	}
	return cfg, nil
}

// ParseLevel converts the name of a log level into a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmterr.Usagef("unknown log level %q", level)
}

// Validate returns a usage error if a field has an invalid value.
func (c Config) Validate() error {
	if c.AllocSize <= 0 {
		return fmterr.Usagef("alloc size must be positive: got %d", c.AllocSize)
	}
	if c.SortWorkers <= 0 {
		return fmterr.Usagef("number of sort workers must be positive: got %d", c.SortWorkers)
	}
	if c.ParallelSortThreshold <= 0 {
		return fmterr.Usagef("parallel sort threshold must be positive: got %d", c.ParallelSortThreshold)
	}
	if _, err := storage.ParseDuplicatePolicy(c.Duplicates); err != nil {
		return err
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case TextFormat, JSONFormat, "":
	default:
		return fmterr.Usagef("unknown log format %q", c.LogFormat)
	}
	return nil
}

// Logger returns a logger writing into w at the configured level.
// Invalid settings fall back to an info level text logger.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == JSONFormat {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// TensorOptions returns the options to create tensors with the
// configuration. Logs are written into w.
func (c Config) TensorOptions(w io.Writer) ([]tensor.Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	dups, err := storage.ParseDuplicatePolicy(c.Duplicates)
	if err != nil {
		return nil, err
	}
	return []tensor.Option{
		tensor.WithAllocSize(c.AllocSize),
		tensor.WithDuplicates(dups),
		tensor.WithSortWorkers(c.SortWorkers),
		tensor.WithParallelSortThreshold(c.ParallelSortThreshold),
		tensor.WithLogger(c.Logger(w)),
	}, nil
}
