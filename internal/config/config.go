// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads the settings shared by the benchhist commands.
//
// Settings come from, in increasing order of precedence: built-in
// defaults, a YAML file (benchhist.yaml in the root directory unless
// another file is named), a .env file in the root directory, BENCHHIST_*
// environment variables, and finally command-line flags, which the
// commands apply themselves.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked for in the root directory.
const FileName = "benchhist.yaml"

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "BENCHHIST_"

// Config holds the benchhist settings. Relative paths are relative to
// Root; use Path to resolve them.
type Config struct {
	Root     string `yaml:"-"`
	Results  string `yaml:"results"`
	Data     string `yaml:"data"`
	Plots    string `yaml:"plots"`
	Manifest string `yaml:"manifest"`

	Retries     int           `yaml:"retries"`
	LockTimeout time.Duration `yaml:"lock_timeout"`
	FailEmpty   bool          `yaml:"fail_empty"`

	DB      DB      `yaml:"db"`
	Plot    Plot    `yaml:"plot"`
	Publish Publish `yaml:"publish"`
}

// DB configures the optional SQL mirror of aggregated history.
type DB struct {
	Driver string `yaml:"driver"` // "sqlite3" or "mysql"
	DSN    string `yaml:"dsn"`

	// CloudSQL is a Cloud SQL connection name
	// (project:region:instance). If set, the mysql DSN is dialed
	// through the Cloud SQL proxy.
	CloudSQL string `yaml:"cloudsql"`
}

// Plot configures chart rendering.
type Plot struct {
	Format string `yaml:"format"`
	Metric string `yaml:"metric"`
}

// Publish configures uploads to Google Cloud Storage.
type Publish struct {
	Bucket      string `yaml:"bucket"`
	Prefix      string `yaml:"prefix"`
	Credentials string `yaml:"credentials"` // service account key file
	Token       string `yaml:"-"`           // OAuth2 access token, from the environment only
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Root:        ".",
		Results:     "results",
		Data:        "data",
		Plots:       "plots",
		Manifest:    "manifest.json",
		Retries:     3,
		LockTimeout: 10 * time.Second,
		DB:          DB{Driver: "sqlite3"},
		Plot:        Plot{Format: "png"},
	}
}

// Load returns the configuration for root. If file is empty, the
// optional root/benchhist.yaml is read; otherwise file must exist.
func Load(root, file string) (*Config, error) {
	c := Default()
	if root != "" {
		c.Root = root
	}

	optional := file == ""
	if optional {
		file = filepath.Join(c.Root, FileName)
	}
	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		if err := c.decode(data); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	case optional && errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	dotenv, err := godotenv.Read(filepath.Join(c.Root, ".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := c.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// applyEnv overrides c with the BENCHHIST_* variables found by lookup.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"RESULTS":         &c.Results,
		"DATA":            &c.Data,
		"PLOTS":           &c.Plots,
		"MANIFEST":        &c.Manifest,
		"DB_DRIVER":       &c.DB.Driver,
		"DB_DSN":          &c.DB.DSN,
		"DB_CLOUDSQL":     &c.DB.CloudSQL,
		"PLOT_FORMAT":     &c.Plot.Format,
		"PLOT_METRIC":     &c.Plot.Metric,
		"GCS_BUCKET":      &c.Publish.Bucket,
		"GCS_PREFIX":      &c.Publish.Prefix,
		"GCS_CREDENTIALS": &c.Publish.Credentials,
		"GCS_TOKEN":       &c.Publish.Token,
	}
	for k, p := range strs {
		if v, ok := lookup(EnvPrefix + k); ok {
			*p = v
		}
	}
	if v, ok := lookup(EnvPrefix + "RETRIES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sRETRIES: %w", EnvPrefix, err)
		}
		c.Retries = n
	}
	if v, ok := lookup(EnvPrefix + "LOCK_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sLOCK_TIMEOUT: %w", EnvPrefix, err)
		}
		c.LockTimeout = d
	}
	if v, ok := lookup(EnvPrefix + "FAIL_EMPTY"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sFAIL_EMPTY: %w", EnvPrefix, err)
		}
		c.FailEmpty = b
	}
	return nil
}

// Validate reports settings that can't be used.
func (c *Config) Validate() error {
	if c.Retries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", c.Retries)
	}
	if c.LockTimeout < 0 {
		return fmt.Errorf("lock_timeout must not be negative, got %v", c.LockTimeout)
	}
	if c.DB.CloudSQL != "" && c.DB.Driver != "mysql" {
		return fmt.Errorf("db.cloudsql needs the mysql driver, not %q", c.DB.Driver)
	}
	for name, v := range map[string]string{"results": c.Results, "data": c.Data, "plots": c.Plots, "manifest": c.Manifest} {
		if v == "" {
			return fmt.Errorf("%s path must not be empty", name)
		}
	}
	return nil
}

// Path resolves p relative to c.Root. Absolute paths are returned
// unchanged.
func (c *Config) Path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}
