package cmd

import (
	"fmt"

	"github.com/0xERR0R/resolvd/util"
	"github.com/spf13/cobra"
)

// NewVersionCommand creates new command instance
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Args:  cobra.NoArgs,
		Short: "Print the version number of resolvd",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println("resolvd")
			fmt.Printf("Version: %s\n", util.Version)
			fmt.Printf("Build time: %s\n", util.BuildTime)
		},
	}
}
