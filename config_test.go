// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlbind

import (
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	. "gopkg.in/check.v1"
)

type configSuite struct{}

var _ = Suite(&configSuite{})

func (s *configSuite) TestParseConfig(c *C) {
	tests := []struct {
		summary string
		input   string
		want    Config
	}{{
		summary: "empty document",
		input:   "",
		want:    *DefaultConfig(),
	}, {
		summary: "partial document",
		input:   "use_generated_keys: true\n",
		want: Config{
			NullType:         NullOther,
			AutoMapping:      AutoMappingPartial,
			UseGeneratedKeys: true,
			KeyGenerator:     KeyGeneratorLastInsertID,
			LogLevel:         "info",
		},
	}, {
		summary: "every setting",
		input: `
null_type: varchar
auto_mapping: full
use_generated_keys: true
key_generator: returning
log_level: debug
`,
		want: Config{
			NullType:         NullVarchar,
			AutoMapping:      AutoMappingFull,
			UseGeneratedKeys: true,
			KeyGenerator:     KeyGeneratorReturning,
			LogLevel:         "debug",
		},
	}, {
		summary: "names are case insensitive",
		input:   "null_type: INTEGER\nauto_mapping: None\n",
		want: Config{
			NullType:     NullInteger,
			AutoMapping:  AutoMappingNone,
			KeyGenerator: KeyGeneratorLastInsertID,
			LogLevel:     "info",
		},
	}}
	for i, t := range tests {
		cfg, err := ParseConfig([]byte(t.input))
		c.Assert(err, IsNil, Commentf("test %d failed (%s)", i, t.summary))
		c.Check(*cfg, Equals, t.want, Commentf("test %d failed (%s)", i, t.summary))
	}
}

func (s *configSuite) TestParseConfigErrors(c *C) {
	tests := []struct {
		summary string
		input   string
		err     string
	}{{
		summary: "unknown setting",
		input:   "nul_type: varchar\n",
		err:     `cannot parse config: yaml: unmarshal errors:\n  line 1: field nul_type not found in type sqlbind.Config`,
	}, {
		summary: "unknown null type",
		input:   "null_type: clob\n",
		err:     `cannot parse config: unknown null type "clob"`,
	}, {
		summary: "unknown auto mapping",
		input:   "auto_mapping: some\n",
		err:     `cannot parse config: unknown auto mapping "some"`,
	}, {
		summary: "unknown key generator",
		input:   "key_generator: sequence\n",
		err:     `cannot parse config: unknown key generator "sequence"`,
	}, {
		summary: "unset null type",
		input:   "null_type: ''\n",
		err:     `invalid config: null_type must be set`,
	}, {
		summary: "unset key generator",
		input:   "key_generator: unset\n",
		err:     `invalid config: key_generator must be set`,
	}, {
		summary: "bad log level",
		input:   "log_level: loud\n",
		err:     `invalid config: invalid log level "loud"`,
	}}
	for i, t := range tests {
		_, err := ParseConfig([]byte(t.input))
		c.Check(err, ErrorMatches, t.err, Commentf("test %d failed (%s)", i, t.summary))
	}
}

func (s *configSuite) TestLoadConfig(c *C) {
	path := filepath.Join(c.MkDir(), "sqlbind.yaml")
	err := os.WriteFile(path, []byte("log_level: trace\n"), 0o644)
	c.Assert(err, IsNil)

	cfg, err := LoadConfig(path)
	c.Assert(err, IsNil)
	c.Check(cfg.LogLevel, Equals, "trace")
	c.Check(NewLogger(cfg).IsTrace(), Equals, true)

	_, err = LoadConfig(filepath.Join(c.MkDir(), "missing.yaml"))
	c.Check(err, ErrorMatches, `open .*missing.yaml: no such file or directory`)
}

func (s *configSuite) TestNewLogger(c *C) {
	logger := NewLogger(DefaultConfig())
	c.Check(logger.GetLevel(), Equals, hclog.Info)
	c.Check(logger.Name(), Equals, "sqlbind")
}

func (s *configSuite) TestParseAutoMapping(c *C) {
	for _, am := range []AutoMapping{AutoMappingNone, AutoMappingPartial, AutoMappingFull} {
		got, err := ParseAutoMapping(am.String())
		c.Assert(err, IsNil)
		c.Check(got, Equals, am)
	}
	c.Check(AutoMapping(7).String(), Equals, "AutoMapping(7)")
}
