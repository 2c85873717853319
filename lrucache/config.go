/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"fmt"
	"time"

	"github.com/acronis/go-cachekit/config"
)

const cfgDefaultKeyPrefix = "cache"

const (
	cfgKeyCapacity      = "capacity"
	cfgKeyReadThrough   = "readThrough"
	cfgKeyFlushOnClose  = "flushOnClose"
	cfgKeyFlushInterval = "flushInterval"
)

// DefaultCapacity is the default maximum number of entries.
const DefaultCapacity = 1024

// Config represents a set of configuration parameters for the cache.
// Configuration can be loaded in different formats (YAML, JSON) using config.Loader, viper,
// or with json.Unmarshal/yaml.Unmarshal functions directly.
type Config struct {
	Capacity     int  `mapstructure:"capacity" yaml:"capacity" json:"capacity"`
	ReadThrough  bool `mapstructure:"readThrough" yaml:"readThrough" json:"readThrough"`
	FlushOnClose bool `mapstructure:"flushOnClose" yaml:"flushOnClose" json:"flushOnClose"`

	// FlushInterval is the period of writing dirty entries to the backing store. Zero disables periodic flushing.
	FlushInterval config.TimeDuration `mapstructure:"flushInterval" yaml:"flushInterval" json:"flushInterval"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
// This prefix will be used by config.Loader.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	cfg := NewConfig(options...)
	cfg.Capacity = DefaultCapacity
	cfg.FlushOnClose = true
	return cfg
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyCapacity, DefaultCapacity)
	dp.SetDefault(cfgKeyReadThrough, false)
	dp.SetDefault(cfgKeyFlushOnClose, true)
	dp.SetDefault(cfgKeyFlushInterval, "0s")
}

// Set sets configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Capacity, err = dp.GetInt(cfgKeyCapacity); err != nil {
		return err
	}
	if c.Capacity <= 0 {
		return dp.WrapKeyErr(cfgKeyCapacity, fmt.Errorf("%w: got %d", ErrInvalidCapacity, c.Capacity))
	}
	if c.ReadThrough, err = dp.GetBool(cfgKeyReadThrough); err != nil {
		return err
	}
	if c.FlushOnClose, err = dp.GetBool(cfgKeyFlushOnClose); err != nil {
		return err
	}
	var flushInterval time.Duration
	if flushInterval, err = dp.GetDuration(cfgKeyFlushInterval); err != nil {
		return err
	}
	if flushInterval < 0 {
		return dp.WrapKeyErr(cfgKeyFlushInterval, fmt.Errorf("should be >= 0"))
	}
	c.FlushInterval = config.TimeDuration(flushInterval)
	return nil
}
