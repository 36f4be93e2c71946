// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlbind

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"gopkg.in/yaml.v3"
)

// AutoMapping controls how result columns are mapped onto the fields of a
// statement's result type.
type AutoMapping int

const (
	// AutoMappingNone leaves rows as column to value maps.
	AutoMappingNone AutoMapping = iota
	// AutoMappingPartial maps columns to fields declared directly on the
	// result type.
	AutoMappingPartial
	// AutoMappingFull also maps columns to fields of embedded structs.
	AutoMappingFull
)

func (a AutoMapping) String() string {
	switch a {
	case AutoMappingNone:
		return "none"
	case AutoMappingPartial:
		return "partial"
	case AutoMappingFull:
		return "full"
	}
	return fmt.Sprintf("AutoMapping(%d)", int(a))
}

// ParseAutoMapping parses an auto-mapping behaviour name.
func ParseAutoMapping(s string) (AutoMapping, error) {
	switch strings.ToLower(s) {
	case "none":
		return AutoMappingNone, nil
	case "partial":
		return AutoMappingPartial, nil
	case "full":
		return AutoMappingFull, nil
	}
	return AutoMappingNone, fmt.Errorf("unknown auto mapping %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *AutoMapping) UnmarshalText(text []byte) error {
	am, err := ParseAutoMapping(string(text))
	if err != nil {
		return err
	}
	*a = am
	return nil
}

// Config holds the settings shared by every statement an Executor runs.
type Config struct {
	// NullType is bound for nil values whose parameter does not name a null
	// type of its own.
	NullType NullType `yaml:"null_type"`
	// AutoMapping applies to selects with a result type.
	AutoMapping AutoMapping `yaml:"auto_mapping"`
	// UseGeneratedKeys makes inserts with key properties and no key
	// generator of their own read generated keys with KeyGenerator.
	UseGeneratedKeys bool         `yaml:"use_generated_keys"`
	KeyGenerator     KeyGenerator `yaml:"key_generator"`
	LogLevel         string       `yaml:"log_level"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() *Config {
	return &Config{
		NullType:     NullOther,
		AutoMapping:  AutoMappingPartial,
		KeyGenerator: KeyGeneratorLastInsertID,
		LogLevel:     "info",
	}
}

// ParseConfig reads a YAML configuration. Settings missing from data keep
// their default values. Unknown settings are an error.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := strictUnmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadConfig reads the YAML configuration file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

func (c *Config) validate() error {
	if c.NullType == NullUnset {
		return fmt.Errorf("null_type must be set")
	}
	if c.KeyGenerator == KeyGeneratorUnset {
		return fmt.Errorf("key_generator must be set")
	}
	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return nil
}

// NewLogger returns a logger writing to stderr at the configured level.
func NewLogger(cfg *Config) hclog.Logger {
	level := hclog.LevelFromString(cfg.LogLevel)
	if level == hclog.NoLevel {
		level = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:  "sqlbind",
		Level: level,
	})
}

// strictUnmarshal decodes YAML into v, rejecting keys that v does not
// declare. An empty document leaves v untouched.
func strictUnmarshal(data []byte, v any) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
