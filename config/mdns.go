package config

import (
	"github.com/sirupsen/logrus"
)

// MDNSConfig configuration for multicast DNS
type MDNSConfig struct {
	Enable bool `yaml:"enable" default:"true"`
	// Respond controls whether own names are announced and defended.
	// When false the protocol is used for resolving only.
	Respond bool `yaml:"respond" default:"true"`
}

// IsEnabled implements `config.Configurable`.
func (c *MDNSConfig) IsEnabled() bool {
	return c.Enable
}

// LogConfig implements `config.Configurable`.
func (c *MDNSConfig) LogConfig(logger *logrus.Entry) {
	logger.Infof("respond = %t", c.Respond)
}
