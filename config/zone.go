package config

import (
	"github.com/sirupsen/logrus"
)

// ZoneConfig local records announced and defended on the multicast scopes
type ZoneConfig struct {
	// Hostname to announce. Empty means the system hostname.
	Hostname string `yaml:"hostname"`
	// Records are additional local records in zone file syntax.
	Records []string `yaml:"records"`
}

// IsEnabled implements `config.Configurable`.
func (c *ZoneConfig) IsEnabled() bool {
	return c.Hostname != "" || len(c.Records) != 0
}

// LogConfig implements `config.Configurable`.
func (c *ZoneConfig) LogConfig(logger *logrus.Entry) {
	if c.Hostname != "" {
		logger.Infof("hostname = %s", c.Hostname)
	}

	logger.Infof("records = %d", len(c.Records))
}
