package config

import (
	"github.com/sirupsen/logrus"
)

// LLMNRConfig configuration for link-local multicast name resolution
type LLMNRConfig struct {
	Enable bool `yaml:"enable" default:"true"`
	// Respond controls whether own names are announced and defended.
	// When false the protocol is used for resolving only.
	Respond bool `yaml:"respond" default:"true"`
}

// IsEnabled implements `config.Configurable`.
func (c *LLMNRConfig) IsEnabled() bool {
	return c.Enable
}

// LogConfig implements `config.Configurable`.
func (c *LLMNRConfig) LogConfig(logger *logrus.Entry) {
	logger.Infof("respond = %t", c.Respond)
}
