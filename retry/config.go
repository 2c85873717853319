/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package retry

import (
	"fmt"
	"strings"
	"time"

	"github.com/acronis/go-cachekit/config"
)

const cfgDefaultKeyPrefix = "retry"

const (
	cfgKeyEnabled         = "enabled"
	cfgKeyPolicy          = "policy"
	cfgKeyMaxAttempts     = "maxAttempts"
	cfgKeyInitialInterval = "initialInterval"
)

// Default values.
const (
	DefaultMaxAttempts     = 3
	DefaultInitialInterval = 100 * time.Millisecond
)

// PolicyType defines possible values for backoff policies.
type PolicyType string

// Backoff policies.
const (
	PolicyTypeExponential PolicyType = "exponential"
	PolicyTypeConstant    PolicyType = "constant"
)

// Config represents a set of configuration parameters for retrying failed operations.
type Config struct {
	Enabled         bool          `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Policy          PolicyType    `mapstructure:"policy" yaml:"policy" json:"policy"`
	MaxAttempts     int           `mapstructure:"maxAttempts" yaml:"maxAttempts" json:"maxAttempts"`
	InitialInterval time.Duration `mapstructure:"initialInterval" yaml:"initialInterval" json:"initialInterval"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return &Config{keyPrefix: cfgDefaultKeyPrefix}
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
	dp.SetDefault(cfgKeyPolicy, string(PolicyTypeExponential))
	dp.SetDefault(cfgKeyMaxAttempts, DefaultMaxAttempts)
	dp.SetDefault(cfgKeyInitialInterval, DefaultInitialInterval.String())
}

// Set sets configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Enabled, err = dp.GetBool(cfgKeyEnabled); err != nil {
		return err
	}

	var policyStr string
	if policyStr, err = dp.GetStringFromSet(
		cfgKeyPolicy, []string{string(PolicyTypeExponential), string(PolicyTypeConstant)}, true,
	); err != nil {
		return err
	}
	c.Policy = PolicyType(strings.ToLower(policyStr))

	if c.MaxAttempts, err = dp.GetInt(cfgKeyMaxAttempts); err != nil {
		return err
	}
	if c.MaxAttempts < 0 {
		return dp.WrapKeyErr(cfgKeyMaxAttempts, fmt.Errorf("should be >= 0"))
	}

	if c.InitialInterval, err = dp.GetDuration(cfgKeyInitialInterval); err != nil {
		return err
	}
	if c.InitialInterval <= 0 {
		return dp.WrapKeyErr(cfgKeyInitialInterval, fmt.Errorf("should be > 0"))
	}
	return nil
}

// NewPolicy makes a backoff policy from the configuration.
// MaxAttempts counts retries after the first failure, so 0 retries until the context is done.
func (c *Config) NewPolicy() BackoffPolicy {
	return BackoffPolicy{Type: c.Policy, Interval: c.InitialInterval, MaxRetries: c.MaxAttempts}
}
