// Package config loads interpreter settings from a YAML file with
// environment-variable overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds settings shared by the REPL, the batch runner and the server.
type Config struct {
	Prompt             string `yaml:"prompt"`
	ContinuationPrompt string `yaml:"continuation_prompt"`
	HistoryFile        string `yaml:"history_file"`
	HistoryDB          string `yaml:"history_db"`
	HistorySize        int    `yaml:"history_size"`
	Debug              bool   `yaml:"debug"`
	MaxDepth           int    `yaml:"max_depth"`
	Socket             string `yaml:"socket"`
	MaxTraces          int    `yaml:"max_traces"`
}

// Default returns the built-in settings.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Prompt:             "lisp> ",
		ContinuationPrompt: "....> ",
		HistoryFile:        filepath.Join(home, ".lisp_history"),
		HistoryDB:          "",
		HistorySize:        1000,
		Debug:              false,
		MaxDepth:           10000,
		Socket:             "/tmp/lisp.sock",
		MaxTraces:          1000,
	}
}

// DefaultPath is where Load looks when LISP_CONFIG is unset.
func DefaultPath() string {
	if p := os.Getenv("LISP_CONFIG"); p != "" {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "lisp", "config.yaml")
}

// Load reads path over the defaults, then applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: open %s: %w", path, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("LISP_SOCK"); v != "" {
		c.Socket = v
	}
	if v := os.Getenv("LISP_HISTORY_DB"); v != "" {
		c.HistoryDB = v
	}
	if v := os.Getenv("LISP_HISTORY_FILE"); v != "" {
		c.HistoryFile = v
	}
	if v := os.Getenv("LISP_DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: LISP_DEBUG: %w", err)
		}
		c.Debug = b
	}
	if v := os.Getenv("LISP_MAX_DEPTH"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: LISP_MAX_DEPTH: %w", err)
		}
		c.MaxDepth = n
	}
	return nil
}

func (c *Config) validate() error {
	if c.MaxDepth < 0 {
		return fmt.Errorf("config: max_depth must be >= 0, got %d", c.MaxDepth)
	}
	if c.HistorySize < 0 {
		return fmt.Errorf("config: history_size must be >= 0, got %d", c.HistorySize)
	}
	if c.MaxTraces < 0 {
		return fmt.Errorf("config: max_traces must be >= 0, got %d", c.MaxTraces)
	}
	return nil
}

// YAML renders c in the file format Load reads.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("config: marshal: %w", err)
	}
	return data, nil
}

// Write serialises c to path as YAML.
func (c *Config) Write(path string) error {
	data, err := c.YAML()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: mkdir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
