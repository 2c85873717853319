/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import "time"

// prefixedDataProvider exposes a nested configuration section to the Config that owns it,
// so "maxAttempts" read by the retry settings of the "backing" section resolves to "backing.retry.maxAttempts".
type prefixedDataProvider struct {
	root   DataProvider
	prefix string
}

var _ DataProvider = (*prefixedDataProvider)(nil)

// withKeyPrefix returns a DataProvider scoped to the section. Nested sections are flattened
// onto the root provider instead of wrapping each other.
func withKeyPrefix(dp DataProvider, prefix string) DataProvider {
	if prefix == "" {
		return dp
	}
	if p, ok := dp.(*prefixedDataProvider); ok {
		return &prefixedDataProvider{root: p.root, prefix: p.key(prefix)}
	}
	return &prefixedDataProvider{root: dp, prefix: prefix}
}

func (p *prefixedDataProvider) key(key string) string {
	return p.prefix + "." + key
}

func (p *prefixedDataProvider) SetDefault(key string, value interface{}) {
	p.root.SetDefault(p.key(key), value)
}

func (p *prefixedDataProvider) GetBool(key string) (bool, error) {
	return p.root.GetBool(p.key(key))
}

func (p *prefixedDataProvider) GetInt(key string) (int, error) {
	return p.root.GetInt(p.key(key))
}

func (p *prefixedDataProvider) GetString(key string) (string, error) {
	return p.root.GetString(p.key(key))
}

func (p *prefixedDataProvider) GetStringFromSet(key string, set []string, ignoreCase bool) (string, error) {
	return p.root.GetStringFromSet(p.key(key), set, ignoreCase)
}

func (p *prefixedDataProvider) GetDuration(key string) (time.Duration, error) {
	return p.root.GetDuration(p.key(key))
}

func (p *prefixedDataProvider) GetByteSize(key string) (ByteSize, error) {
	return p.root.GetByteSize(p.key(key))
}

func (p *prefixedDataProvider) WrapKeyErr(key string, err error) error {
	return p.root.WrapKeyErr(p.key(key), err)
}
