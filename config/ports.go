package config

import (
	"github.com/sirupsen/logrus"
)

// PortsConfig listener addresses of the stub listener and the REST API
type PortsConfig struct {
	DNS  string `yaml:"dns" default:"127.0.0.53:53"`
	HTTP string `yaml:"http"`
}

// IsEnabled implements `config.Configurable`.
func (c *PortsConfig) IsEnabled() bool {
	return c.DNS != "" || c.HTTP != ""
}

// LogConfig implements `config.Configurable`.
func (c *PortsConfig) LogConfig(logger *logrus.Entry) {
	logger.Infof("dns = %s", c.DNS)

	if c.HTTP != "" {
		logger.Infof("http = %s", c.HTTP)
	}
}
