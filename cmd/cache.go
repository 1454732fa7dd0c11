package cmd

import (
	"fmt"
	"io"
	"net/http"

	"github.com/0xERR0R/resolvd/api"
	"github.com/0xERR0R/resolvd/log"
	"github.com/spf13/cobra"
)

// NewCacheCommand creates new command instance
func NewCacheCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "cache",
		Short: "Performs cache operations",
	}

	c.AddCommand(&cobra.Command{
		Use:   "flush",
		Args:  cobra.NoArgs,
		Short: "Flush all cached answers",
		RunE:  flushCache,
	})

	return c
}

func flushCache(_ *cobra.Command, _ []string) error {
	resp, err := http.Post(apiURL(api.PathCacheFlush), "application/json", nil)
	if err != nil {
		return fmt.Errorf("can't execute: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)

		return fmt.Errorf("response NOK, %s %s", resp.Status, string(body))
	}

	log.Log().Info("OK")

	return nil
}
