package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	defaultConfigPath = "./config.yml"
	defaultHost       = "localhost"
	defaultPort       = 4000
)

//nolint:gochecknoglobals
var (
	configPath string
	apiHost    string
	apiPort    uint16
)

// NewRootCommand creates a new root cli command instance
func NewRootCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "resolvd",
		Short: "resolvd is a local DNS resolution daemon",
		Long: `A caching, DNSSEC-validating local resolver with LLMNR and mDNS
support and a REST control surface.`,
		RunE: startServer,
	}

	c.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	c.PersistentFlags().StringVar(&apiHost, "apiHost", defaultHost, "host of resolvd (API)")
	c.PersistentFlags().Uint16Var(&apiPort, "apiPort", defaultPort, "port of resolvd (API)")

	c.AddCommand(newServeCommand(),
		NewQueryCommand(),
		NewCacheCommand(),
		NewValidateCommand(),
		NewVersionCommand(),
		NewHealthcheckCommand())

	return c
}

func apiURL(path string) string {
	return fmt.Sprintf("http://%s:%d%s", apiHost, apiPort, path)
}

// Execute executes the root command
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
