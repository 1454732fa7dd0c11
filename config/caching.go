package config

import (
	"github.com/sirupsen/logrus"
)

// CachingConfig configuration for the shared answer cache
type CachingConfig struct {
	// MaxItemsCount limits the cache size, zero disables caching.
	MaxItemsCount int `yaml:"maxItemsCount" default:"4096"`
	// MaxTTL caps the time a record stays cached regardless of its TTL.
	MaxTTL Duration `yaml:"maxTTL" default:"2h"`
	// MinTTL lifts the effective TTL of authenticated records which
	// arrive with TTL zero, so they stay resolvable from the cache.
	MinTTL Duration `yaml:"minTTL"`
	// NegativeTTL applies to negative replies carrying no SOA record.
	NegativeTTL Duration `yaml:"negativeTTL" default:"30s"`
}

// IsEnabled implements `config.Configurable`.
func (c *CachingConfig) IsEnabled() bool {
	return c.MaxItemsCount > 0
}

// LogConfig implements `config.Configurable`.
func (c *CachingConfig) LogConfig(logger *logrus.Entry) {
	logger.Infof("maxItemsCount = %d", c.MaxItemsCount)

	logger.Infof("maxTTL = %s", c.MaxTTL)

	if c.MinTTL.IsAboveZero() {
		logger.Infof("minTTL = %s", c.MinTTL)
	}

	logger.Infof("negativeTTL = %s", c.NegativeTTL)
}
