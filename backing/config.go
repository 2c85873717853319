/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package backing

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/acronis/go-cachekit/config"
	"github.com/acronis/go-cachekit/retry"
)

const cfgDefaultKeyPrefix = "backing"

const (
	cfgKeyType             = "type"
	cfgKeyFileDir          = "file.dir"
	cfgKeyFileMaxValueSize = "file.maxValueSize"
	cfgKeyFileSync         = "file.sync"
	cfgKeySQLitePath       = "sqlite.path"
	cfgKeySQLiteTable      = "sqlite.table"
)

// Default values.
const (
	DefaultFileMaxValueSize = config.ByteSize(64 * 1024 * 1024)
	DefaultSQLiteTable      = "cache_records"
)

// StoreType defines possible kinds of backing stores.
type StoreType string

// Backing store types.
const (
	StoreTypeNone   StoreType = "none"
	StoreTypeMemory StoreType = "memory"
	StoreTypeFile   StoreType = "file"
	StoreTypeSQLite StoreType = "sqlite"
)

var sqlIdentifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// FileConfig configures the directory-backed store.
type FileConfig struct {
	Dir          string          `mapstructure:"dir" yaml:"dir" json:"dir"`
	MaxValueSize config.ByteSize `mapstructure:"maxValueSize" yaml:"maxValueSize" json:"maxValueSize"`
	// Sync determines whether every written record is fsync-ed before the write is reported as done.
	Sync bool `mapstructure:"sync" yaml:"sync" json:"sync"`
}

// SQLiteConfig configures the SQLite-backed store.
type SQLiteConfig struct {
	Path  string `mapstructure:"path" yaml:"path" json:"path"`
	Table string `mapstructure:"table" yaml:"table" json:"table"`
}

// Config represents a set of configuration parameters for the backing store.
// Configuration can be loaded in different formats (YAML, JSON) using config.Loader, viper,
// or with json.Unmarshal/yaml.Unmarshal functions directly.
type Config struct {
	Type   StoreType    `mapstructure:"type" yaml:"type" json:"type"`
	File   FileConfig   `mapstructure:"file" yaml:"file" json:"file"`
	SQLite SQLiteConfig `mapstructure:"sqlite" yaml:"sqlite" json:"sqlite"`

	// Retry configures repeating of failed store operations. Nil disables retries.
	Retry *retry.Config `mapstructure:"retry" yaml:"retry" json:"retry"`

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
	return &Config{keyPrefix: opts.keyPrefix, Retry: retry.NewConfig()}
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
	dp.SetDefault(cfgKeyType, string(StoreTypeNone))
	dp.SetDefault(cfgKeyFileMaxValueSize, DefaultFileMaxValueSize.String())
	dp.SetDefault(cfgKeySQLiteTable, DefaultSQLiteTable)
	config.CallSetProviderDefaultsForFields(c, dp)
}

// Set sets configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	typeStr, err := dp.GetStringFromSet(cfgKeyType, []string{
		string(StoreTypeNone), string(StoreTypeMemory), string(StoreTypeFile), string(StoreTypeSQLite),
	}, true)
	if err != nil {
		return err
	}
	c.Type = StoreType(strings.ToLower(typeStr))

	if err = c.setFileConfig(dp); err != nil {
		return err
	}
	if err = c.setSQLiteConfig(dp); err != nil {
		return err
	}
	return config.CallSetForFields(c, dp)
}

func (c *Config) setFileConfig(dp config.DataProvider) error {
	var err error
	if c.File.Dir, err = dp.GetString(cfgKeyFileDir); err != nil {
		return err
	}
	if c.Type == StoreTypeFile && c.File.Dir == "" {
		return dp.WrapKeyErr(cfgKeyFileDir, fmt.Errorf("cannot be empty when %q store is used", StoreTypeFile))
	}
	if c.File.MaxValueSize, err = dp.GetByteSize(cfgKeyFileMaxValueSize); err != nil {
		return err
	}
	if c.File.MaxValueSize == 0 {
		return dp.WrapKeyErr(cfgKeyFileMaxValueSize, fmt.Errorf("should be > 0"))
	}
	if c.File.Sync, err = dp.GetBool(cfgKeyFileSync); err != nil {
		return err
	}
	return nil
}

func (c *Config) setSQLiteConfig(dp config.DataProvider) error {
	var err error
	if c.SQLite.Path, err = dp.GetString(cfgKeySQLitePath); err != nil {
		return err
	}
	if c.Type == StoreTypeSQLite && c.SQLite.Path == "" {
		return dp.WrapKeyErr(cfgKeySQLitePath, fmt.Errorf("cannot be empty when %q store is used", StoreTypeSQLite))
	}
	if c.SQLite.Table, err = dp.GetString(cfgKeySQLiteTable); err != nil {
		return err
	}
	if !sqlIdentifierRe.MatchString(c.SQLite.Table) {
		return dp.WrapKeyErr(cfgKeySQLiteTable, fmt.Errorf("%q is not a valid table name", c.SQLite.Table))
	}
	return nil
}
