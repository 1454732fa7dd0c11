// Package config provides the YAML based configuration of the resolver:
// upstream servers, multicast protocols, DNSSEC, caching, the local zone
// and the listeners. Every subsystem owns one small config struct which
// knows whether it is enabled and how to log itself.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/0xERR0R/resolvd/log"
	"github.com/creasty/defaults"
	"github.com/hashicorp/go-multierror"
	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// Configurable is implemented by all sub configurations.
type Configurable interface {
	// IsEnabled returns true when the receiver will be used by the resolver.
	IsEnabled() bool

	// LogConfig logs the receiver's configuration using the given logger.
	LogConfig(logger *logrus.Entry)
}

// Config is the top level configuration.
type Config struct {
	Upstreams  UpstreamsConfig `yaml:"upstreams"`
	LLMNR      LLMNRConfig     `yaml:"llmnr"`
	MDNS       MDNSConfig      `yaml:"mdns"`
	DNSSEC     DnssecConfig    `yaml:"dnssec"`
	Caching    CachingConfig   `yaml:"caching"`
	Zone       ZoneConfig      `yaml:"zone"`
	Ports      PortsConfig     `yaml:"ports"`
	Log        log.Config      `yaml:"log"`
	Prometheus MetricsConfig   `yaml:"prometheus"`
}

// LoadConfig reads the config file from the given path. A missing file is
// only an error if mandatory is set, otherwise defaults apply.
func LoadConfig(path string, mandatory bool) (*Config, error) {
	cfg := Config{}
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("can't apply default values: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !mandatory {
			return &cfg, nil
		}

		return nil, fmt.Errorf("can't read config file: %w", err)
	}

	if err := unmarshalConfig(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func unmarshalConfig(data []byte, cfg *Config) error {
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return fmt.Errorf("wrong file structure: %w", err)
	}

	return cfg.validate()
}

func (cfg *Config) validate() error {
	var result *multierror.Error

	if _, _, err := net.SplitHostPort(cfg.Ports.DNS); err != nil {
		result = multierror.Append(result, fmt.Errorf("invalid dns listen address '%s': %w", cfg.Ports.DNS, err))
	}

	if cfg.Ports.HTTP != "" {
		if _, _, err := net.SplitHostPort(cfg.Ports.HTTP); err != nil {
			result = multierror.Append(result, fmt.Errorf("invalid http listen address '%s': %w", cfg.Ports.HTTP, err))
		}
	}

	if !cfg.Caching.MinTTL.IsAtLeastZero() {
		result = multierror.Append(result, fmt.Errorf("caching.minTTL must not be negative"))
	}

	if !cfg.Caching.MaxTTL.IsAtLeastZero() {
		result = multierror.Append(result, fmt.Errorf("caching.maxTTL must not be negative"))
	}

	for _, anchor := range cfg.DNSSEC.TrustAnchors {
		if _, err := dns.NewRR(anchor); err != nil {
			result = multierror.Append(result, fmt.Errorf("invalid trust anchor '%s': %w", anchor, err))
		}
	}

	for _, record := range cfg.Zone.Records {
		if _, err := dns.NewRR(record); err != nil {
			result = multierror.Append(result, fmt.Errorf("invalid zone record '%s': %w", record, err))
		}
	}

	if cfg.DNSSEC.Mode == DnssecModeStrict && len(cfg.Upstreams.Servers) == 0 {
		result = multierror.Append(result,
			fmt.Errorf("dnssec mode '%s' needs at least one upstream server", cfg.DNSSEC.Mode))
	}

	return result.ErrorOrNil()
}

// ConvertPort converts a string representation into a valid port (0 - 65535).
func ConvertPort(in string) (uint16, error) {
	const (
		base    = 10
		bitSize = 16
	)

	p, err := strconv.ParseUint(strings.TrimSpace(in), base, bitSize)
	if err != nil {
		return 0, err
	}

	return uint16(p), nil
}
