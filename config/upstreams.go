package config

import (
	"github.com/sirupsen/logrus"
)

// UpstreamsConfig upstream servers for the classic unicast DNS scope
type UpstreamsConfig struct {
	Servers []Upstream `yaml:"servers"`
	// SearchDomains are appended to single label names and give their
	// subtrees a higher routing score on the unicast scope.
	SearchDomains []string `yaml:"searchDomains"`
}

// IsEnabled implements `config.Configurable`.
func (c *UpstreamsConfig) IsEnabled() bool {
	return len(c.Servers) != 0
}

// LogConfig implements `config.Configurable`.
func (c *UpstreamsConfig) LogConfig(logger *logrus.Entry) {
	logger.Info("servers:")

	for _, upstream := range c.Servers {
		logger.Infof("  - %s", upstream)
	}

	if len(c.SearchDomains) > 0 {
		logger.Infof("searchDomains = %v", c.SearchDomains)
	}
}
