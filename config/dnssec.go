package config

//go:generate go run github.com/abice/go-enum -f=$GOFILE --marshal --names

import (
	"github.com/sirupsen/logrus"
)

// DnssecMode mode of DNSSEC validation ENUM(
// off // no validation
// allow-downgrade // validate, fall back to insecure when the upstream can't carry DNSSEC
// strict // require validation for every answer
// )
type DnssecMode int

// DnssecConfig configuration for DNSSEC validation
type DnssecConfig struct {
	Mode DnssecMode `yaml:"mode" default:"off"`
	// TrustAnchors are DS or DNSKEY records in zone file syntax which
	// replace the built-in root anchors.
	TrustAnchors []string `yaml:"trustAnchors"`
	// NegativeAnchors are domain suffixes below which no validation takes place.
	NegativeAnchors []string `yaml:"negativeAnchors"`
	// ClockSkew widens the signature validity window in both directions.
	ClockSkew Duration `yaml:"clockSkew" default:"1h"`
}

// IsEnabled implements `config.Configurable`.
func (c *DnssecConfig) IsEnabled() bool {
	return c.Mode != DnssecModeOff
}

// LogConfig implements `config.Configurable`.
func (c *DnssecConfig) LogConfig(logger *logrus.Entry) {
	logger.Infof("mode = %s", c.Mode)

	if len(c.TrustAnchors) > 0 {
		logger.Infof("trustAnchors = %d", len(c.TrustAnchors))
	} else {
		logger.Info("using built-in root trust anchors")
	}

	if len(c.NegativeAnchors) > 0 {
		logger.Infof("negativeAnchors = %d", len(c.NegativeAnchors))
	}

	logger.Infof("clockSkew = %s", c.ClockSkew)
}

// UnmarshalYAML implements `yaml.Unmarshaler`.
func (m *DnssecMode) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var input string
	if err := unmarshal(&input); err != nil {
		return err
	}

	return m.UnmarshalText([]byte(input))
}
