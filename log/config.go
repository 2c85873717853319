/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"fmt"
	"strings"

	"code.cloudfoundry.org/bytefmt"

	"github.com/acronis/go-cachekit/config"
)

const cfgKeyPrefix = "log"

const (
	cfgKeyLevel          = "level"
	cfgKeyFormat         = "format"
	cfgKeyOutput         = "output"
	cfgKeyAddCaller      = "addCaller"
	cfgKeyFilePath       = "file.path"
	cfgKeyFileMaxSize    = "file.maxSize"
	cfgKeyFileMaxBackups = "file.maxBackups"
	cfgKeyFileCompress   = "file.compress"
)

// Defaults. Logs go to stderr so that they don't mix with command output of the cache CLI.
const (
	DefaultLevel  = LevelInfo
	DefaultFormat = FormatText
	DefaultOutput = OutputStderr

	DefaultFileMaxSizeBytes = 100 * bytefmt.MEGABYTE
	MinFileMaxSizeBytes     = bytefmt.MEGABYTE
	DefaultFileMaxBackups   = 5
)

// Level defines possible values for log levels.
type Level string

// Logging levels.
const (
	LevelError Level = "error"
	LevelWarn  Level = "warn"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"
)

// Format defines possible values for log formats.
type Format string

// Logging formats.
const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Output defines possible values for log outputs.
type Output string

// Logging outputs.
const (
	OutputStdout Output = "stdout"
	OutputStderr Output = "stderr"
	OutputFile   Output = "file"
)

// Config is the "log" configuration section.
type Config struct {
	Level     Level      `mapstructure:"level" yaml:"level" json:"level"`
	Format    Format     `mapstructure:"format" yaml:"format" json:"format"`
	Output    Output     `mapstructure:"output" yaml:"output" json:"output"`
	AddCaller bool       `mapstructure:"addCaller" yaml:"addCaller" json:"addCaller"`
	File      FileConfig `mapstructure:"file" yaml:"file" json:"file"`
}

// FileConfig configures the rotated log file used with the "file" output.
// The path may contain the {{pid}} placeholder.
type FileConfig struct {
	Path       string          `mapstructure:"path" yaml:"path" json:"path"`
	MaxSize    config.ByteSize `mapstructure:"maxSize" yaml:"maxSize" json:"maxSize"`
	MaxBackups int             `mapstructure:"maxBackups" yaml:"maxBackups" json:"maxBackups"`
	Compress   bool            `mapstructure:"compress" yaml:"compress" json:"compress"`
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return &Config{}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Level:  DefaultLevel,
		Format: DefaultFormat,
		Output: DefaultOutput,
		File:   FileConfig{MaxSize: DefaultFileMaxSizeBytes, MaxBackups: DefaultFileMaxBackups},
	}
}

// KeyPrefix implements config.KeyPrefixProvider. Logging is always configured in the "log" section.
func (c *Config) KeyPrefix() string {
	return cfgKeyPrefix
}

// SetProviderDefaults implements config.Config.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyLevel, string(DefaultLevel))
	dp.SetDefault(cfgKeyFormat, string(DefaultFormat))
	dp.SetDefault(cfgKeyOutput, string(DefaultOutput))
	dp.SetDefault(cfgKeyFileMaxSize, bytefmt.ByteSize(DefaultFileMaxSizeBytes))
	dp.SetDefault(cfgKeyFileMaxBackups, DefaultFileMaxBackups)
}

// Set implements config.Config.
func (c *Config) Set(dp config.DataProvider) error {
	enums := []struct {
		key     string
		allowed []string
		dst     func(string)
	}{
		{cfgKeyLevel, []string{string(LevelError), string(LevelWarn), string(LevelInfo), string(LevelDebug)},
			func(v string) { c.Level = Level(v) }},
		{cfgKeyFormat, []string{string(FormatJSON), string(FormatText)},
			func(v string) { c.Format = Format(v) }},
		{cfgKeyOutput, []string{string(OutputStdout), string(OutputStderr), string(OutputFile)},
			func(v string) { c.Output = Output(v) }},
	}
	for _, e := range enums {
		v, err := dp.GetStringFromSet(e.key, e.allowed, true)
		if err != nil {
			return err
		}
		e.dst(strings.ToLower(v))
	}

	var err error
	if c.AddCaller, err = dp.GetBool(cfgKeyAddCaller); err != nil {
		return err
	}
	return c.setFileConfig(dp)
}

func (c *Config) setFileConfig(dp config.DataProvider) error {
	var err error
	if c.File.Path, err = dp.GetString(cfgKeyFilePath); err != nil {
		return err
	}
	if c.File.Path == "" && c.Output == OutputFile {
		return dp.WrapKeyErr(cfgKeyFilePath, fmt.Errorf("cannot be empty when %q output is used", OutputFile))
	}
	if c.File.MaxSize, err = dp.GetByteSize(cfgKeyFileMaxSize); err != nil {
		return err
	}
	if c.File.MaxSize < MinFileMaxSizeBytes {
		return dp.WrapKeyErr(cfgKeyFileMaxSize, fmt.Errorf("should be >= %s", bytefmt.ByteSize(MinFileMaxSizeBytes)))
	}
	if c.File.MaxBackups, err = dp.GetInt(cfgKeyFileMaxBackups); err != nil {
		return err
	}
	if c.File.MaxBackups < 0 {
		return dp.WrapKeyErr(cfgKeyFileMaxBackups, fmt.Errorf("should be >= 0"))
	}
	c.File.Compress, err = dp.GetBool(cfgKeyFileCompress)
	return err
}
